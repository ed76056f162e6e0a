package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Webhook      WebhookConfig
	Reconcile    ReconcileConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Reconcile.checkLockTTL(cfg.Webhook.ProcessingTimeout); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BILLINGSYNC_APP_ENV" required:"true"`
	Port         string   `envconfig:"BILLINGSYNC_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BILLINGSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BILLINGSYNC_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BILLINGSYNC_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BILLINGSYNC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BILLINGSYNC_DB_DSN"`
	Driver string `envconfig:"BILLINGSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BILLINGSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"BILLINGSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BILLINGSYNC_DB_USER"`
	LegacyPassword string `envconfig:"BILLINGSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"BILLINGSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"BILLINGSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BILLINGSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BILLINGSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BILLINGSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BILLINGSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"BILLINGSYNC_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"BILLINGSYNC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BILLINGSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"BILLINGSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"BILLINGSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BILLINGSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BILLINGSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BILLINGSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BILLINGSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BILLINGSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification side of bearer tokens minted by the auth service.
type JWTConfig struct {
	Secret string `envconfig:"BILLINGSYNC_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"BILLINGSYNC_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BILLINGSYNC_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey             string        `envconfig:"BILLINGSYNC_STRIPE_API_KEY"`
	WebhookSecret      string        `envconfig:"BILLINGSYNC_STRIPE_WEBHOOK_SECRET"`
	Env                string        `envconfig:"BILLINGSYNC_STRIPE_ENV" default:"test"`
	WebhookTolerance   time.Duration `envconfig:"BILLINGSYNC_STRIPE_WEBHOOK_TOLERANCE" default:"5m"`
	CheckoutSuccessURL string        `envconfig:"BILLINGSYNC_STRIPE_CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/account"`
	CheckoutCancelURL  string        `envconfig:"BILLINGSYNC_STRIPE_CHECKOUT_CANCEL_URL" default:"http://localhost:3000/"`
	PortalReturnURL    string        `envconfig:"BILLINGSYNC_STRIPE_PORTAL_RETURN_URL" default:"http://localhost:3000/account"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type WebhookConfig struct {
	IdempotencyTTL    time.Duration `envconfig:"BILLINGSYNC_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	ProcessingTimeout time.Duration `envconfig:"BILLINGSYNC_WEBHOOK_PROCESSING_TIMEOUT" default:"30s"`
}

type ReconcileConfig struct {
	LockEnabled  bool          `envconfig:"BILLINGSYNC_RECONCILE_LOCK_ENABLED" default:"true"`
	LockTTL      time.Duration `envconfig:"BILLINGSYNC_RECONCILE_LOCK_TTL" default:"45s"`
	CronInterval time.Duration `envconfig:"BILLINGSYNC_RECONCILE_CRON_INTERVAL" default:"1h"`
	CronLimit    int           `envconfig:"BILLINGSYNC_RECONCILE_CRON_LIMIT" default:"200"`
	CronLookback time.Duration `envconfig:"BILLINGSYNC_RECONCILE_CRON_LOOKBACK" default:"48h"`
}

// checkLockTTL keeps a reconcile lock alive for at least as long as the
// webhook processing that holds it.
func (r ReconcileConfig) checkLockTTL(processingTimeout time.Duration) error {
	if !r.LockEnabled || r.LockTTL > processingTimeout {
		return nil
	}
	return fmt.Errorf("%s (%s) must exceed %s (%s)", EnvReconcileLockTTL, r.LockTTL, EnvWebhookProcessingTimeout, processingTimeout)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BILLINGSYNC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BILLINGSYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BILLINGSYNC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BillingTopic string `envconfig:"BILLINGSYNC_PUBSUB_BILLING_TOPIC" default:"billing-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BILLINGSYNC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BILLINGSYNC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BILLINGSYNC_OUTBOX_MAX_ATTEMPTS" default:"10"`

	Retention time.Duration `envconfig:"BILLINGSYNC_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
