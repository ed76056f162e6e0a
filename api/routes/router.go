package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/billingsync/api/controllers"
	billingcontrollers "github.com/angelmondragon/billingsync/api/controllers/billing"
	webhookcontrollers "github.com/angelmondragon/billingsync/api/controllers/webhooks"
	"github.com/angelmondragon/billingsync/api/middleware"
	"github.com/angelmondragon/billingsync/pkg/config"
	"github.com/angelmondragon/billingsync/pkg/db"
	"github.com/angelmondragon/billingsync/pkg/logger"
	"github.com/angelmondragon/billingsync/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	catalogService billingcontrollers.CatalogService,
	billingService billingcontrollers.BillingService,
	stripeWebhook webhookcontrollers.StripeWebhookParams,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["database"] = dbP
	}
	if redisP != nil {
		deps["redis"] = redisP
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	// Provider deliveries are authenticated by signature, not by bearer token.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		if stripeWebhook.Logger == nil {
			stripeWebhook.Logger = logg
		}
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhook))
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
		r.Get("/products", billingcontrollers.Products(catalogService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/checkout", billingcontrollers.Checkout(billingService, logg))
			r.Post("/portal", billingcontrollers.Portal(billingService, logg))
			r.Get("/subscription", billingcontrollers.CurrentSubscription(billingService, logg))
		})
	})

	return r
}
