package config

const EnvPrefix = "BILLINGSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "BILLINGSYNC_APP_ENV"
	EnvPort     = "BILLINGSYNC_APP_PORT"
	EnvLogLevel = "BILLINGSYNC_LOG_LEVEL"

	EnvDBDSN    = "BILLINGSYNC_DB_DSN"
	EnvDBDriver = "BILLINGSYNC_DB_DRIVER"
	EnvDBHost   = "BILLINGSYNC_DB_HOST"
	EnvDBUser   = "BILLINGSYNC_DB_USER"
	EnvDBName   = "BILLINGSYNC_DB_NAME"

	EnvRedisURL = "BILLINGSYNC_REDIS_URL"

	EnvJWTSecret = "BILLINGSYNC_JWT_SECRET"
	EnvJWTIssuer = "BILLINGSYNC_JWT_ISSUER"

	EnvStripeAPIKey           = "BILLINGSYNC_STRIPE_API_KEY"
	EnvStripeWebhookSecret    = "BILLINGSYNC_STRIPE_WEBHOOK_SECRET"
	EnvStripeWebhookTolerance = "BILLINGSYNC_STRIPE_WEBHOOK_TOLERANCE"

	EnvWebhookIdempotencyTTL    = "BILLINGSYNC_WEBHOOK_IDEMPOTENCY_TTL"
	EnvWebhookProcessingTimeout = "BILLINGSYNC_WEBHOOK_PROCESSING_TIMEOUT"
	EnvReconcileLockEnabled     = "BILLINGSYNC_RECONCILE_LOCK_ENABLED"
	EnvReconcileLockTTL         = "BILLINGSYNC_RECONCILE_LOCK_TTL"

	EnvPubSubBillingTopic = "BILLINGSYNC_PUBSUB_BILLING_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
