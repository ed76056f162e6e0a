package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	webhookcontrollers "github.com/angelmondragon/billingsync/api/controllers/webhooks"
	"github.com/angelmondragon/billingsync/api/routes"
	"github.com/angelmondragon/billingsync/internal/billing"
	"github.com/angelmondragon/billingsync/internal/catalog"
	"github.com/angelmondragon/billingsync/internal/customers"
	"github.com/angelmondragon/billingsync/internal/subscriptions"
	stripewebhook "github.com/angelmondragon/billingsync/internal/webhooks/stripe"
	"github.com/angelmondragon/billingsync/pkg/config"
	"github.com/angelmondragon/billingsync/pkg/db"
	"github.com/angelmondragon/billingsync/pkg/instance"
	"github.com/angelmondragon/billingsync/pkg/logger"
	"github.com/angelmondragon/billingsync/pkg/metrics"
	"github.com/angelmondragon/billingsync/pkg/migrate"
	"github.com/angelmondragon/billingsync/pkg/outbox"
	"github.com/angelmondragon/billingsync/pkg/redis"
	pkgstripe "github.com/angelmondragon/billingsync/pkg/stripe"
)

const (
	webhookIdempotencyScope = "stripe-webhook"
	reconcileLockScope      = "subscription-reconcile"
	shutdownTimeout         = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(customers.ServiceParams{
		Repo:   customers.NewRepository(dbClient.DB()),
		Stripe: customers.NewStripeClient(stripeClient),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	var locker subscriptions.Locker
	if cfg.Reconcile.LockEnabled {
		keyed, err := redis.NewKeyedLocker(redisClient, reconcileLockScope, cfg.Reconcile.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create reconcile locker", err)
			os.Exit(1)
		}
		locker = keyed
	}

	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())
	reconciler, err := subscriptions.NewReconciler(subscriptions.ReconcilerParams{
		Repo:              subscriptionRepo,
		Customers:         customerService,
		Stripe:            subscriptions.NewStripeClient(stripeClient),
		TransactionRunner: dbClient,
		Outbox:            outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Locker:            locker,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription reconciler", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Catalog:    catalogService,
		Reconciler: reconciler,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, 2*cfg.Webhook.ProcessingTimeout, webhookIdempotencyScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		Prices:        catalogService,
		Customers:     customerService,
		Subscriptions: subscriptionRepo,
		Stripe:        billing.NewStripeClient(stripeClient),
		URLs: billing.URLs{
			CheckoutSuccess: cfg.Stripe.CheckoutSuccessURL,
			CheckoutCancel:  cfg.Stripe.CheckoutCancelURL,
			PortalReturn:    cfg.Stripe.PortalReturnURL,
		},
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	stripeWebhook := webhookcontrollers.StripeWebhookParams{
		Service:           webhookService,
		Verifier:          stripewebhook.NewVerifier(stripeClient.SigningSecret(), stripeClient.WebhookTolerance()),
		Guard:             guard,
		Metrics:           metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		ProcessingTimeout: cfg.Webhook.ProcessingTimeout,
		Logger:            logg,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.ID(),
		"stripe_env": stripeClient.Environment(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, catalogService, billingService, stripeWebhook, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
