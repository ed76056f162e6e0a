package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/billingsync/internal/subscriptions"
	"github.com/angelmondragon/billingsync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
)

const (
	defaultReconcileLimit    = 200
	defaultReconcileLookback = 48 * time.Hour
)

type reconcileTargetLister interface {
	ListForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]subscriptions.ReconcileTarget, error)
}

type subscriptionReconciler interface {
	Reconcile(ctx context.Context, subscriptionID, customerID string, createAction bool) (*models.Subscription, error)
}

// SubscriptionReconcileJobParams configures the subscription re-sync cron job.
type SubscriptionReconcileJobParams struct {
	Logger     *logger.Logger
	Targets    reconcileTargetLister
	Reconciler subscriptionReconciler
	Limit      int
	Lookback   time.Duration
}

// NewSubscriptionReconcileJob builds a job that re-derives live subscriptions
// from the provider, covering any deliveries that never arrived.
func NewSubscriptionReconcileJob(params SubscriptionReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Targets == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("subscription reconciler required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultReconcileLookback
	}
	return &subscriptionReconcileJob{
		logg:       params.Logger,
		targets:    params.Targets,
		reconciler: params.Reconciler,
		limit:      limit,
		lookback:   lookback,
	}, nil
}

type subscriptionReconcileJob struct {
	logg       *logger.Logger
	targets    reconcileTargetLister
	reconciler subscriptionReconciler
	limit      int
	lookback   time.Duration
}

func (j *subscriptionReconcileJob) Name() string { return "subscription-reconcile" }

func (j *subscriptionReconcileJob) Run(ctx context.Context) error {
	targets, err := j.targets.ListForReconciliation(ctx, j.limit, j.lookback)
	if err != nil {
		return fmt.Errorf("list subscriptions for reconciliation: %w", err)
	}

	var errs error
	synced, skipped := 0, 0
	for _, target := range targets {
		logCtx := j.logg.WithSubscriptionID(ctx, target.SubscriptionID)
		_, err := j.reconciler.Reconcile(logCtx, target.SubscriptionID, target.StripeCustomerID, false)
		switch {
		case err == nil:
			synced++
		case pkgerrors.HasCode(err, pkgerrors.CodeNotFound), pkgerrors.HasCode(err, pkgerrors.CodeConflict):
			// Gone at the provider, or a delivery is reconciling it right now.
			skipped++
			j.logg.Info(logCtx, "subscription skipped: "+err.Error())
		default:
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", target.SubscriptionID, err))
		}
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(targets),
		"synced":     synced,
		"skipped":    skipped,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(reportCtx, "subscription reconcile loop complete")
	return errs
}
