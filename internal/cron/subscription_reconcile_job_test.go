package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/billingsync/internal/subscriptions"
	"github.com/angelmondragon/billingsync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
)

type fakeTargetLister struct {
	targets  []subscriptions.ReconcileTarget
	err      error
	limit    int
	lookback time.Duration
}

func (f *fakeTargetLister) ListForReconciliation(_ context.Context, limit int, lookback time.Duration) ([]subscriptions.ReconcileTarget, error) {
	f.limit = limit
	f.lookback = lookback
	return f.targets, f.err
}

type reconcileCall struct {
	subscriptionID string
	customerID     string
	createAction   bool
}

type fakeJobReconciler struct {
	errs  map[string]error
	calls []reconcileCall
}

func (f *fakeJobReconciler) Reconcile(_ context.Context, subscriptionID, customerID string, createAction bool) (*models.Subscription, error) {
	f.calls = append(f.calls, reconcileCall{subscriptionID, customerID, createAction})
	if err := f.errs[subscriptionID]; err != nil {
		return nil, err
	}
	return &models.Subscription{ID: subscriptionID}, nil
}

func TestSubscriptionReconcileJobResyncsTargets(t *testing.T) {
	lister := &fakeTargetLister{targets: []subscriptions.ReconcileTarget{
		{SubscriptionID: "sub_1", StripeCustomerID: "cus_1"},
		{SubscriptionID: "sub_2", StripeCustomerID: "cus_2"},
	}}
	reconciler := &fakeJobReconciler{}

	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:     quietLogger(),
		Targets:    lister,
		Reconciler: reconciler,
	})
	require.NoError(t, err)
	assert.Equal(t, "subscription-reconcile", job.Name())

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, defaultReconcileLimit, lister.limit)
	assert.Equal(t, defaultReconcileLookback, lister.lookback)
	assert.Equal(t, []reconcileCall{
		{"sub_1", "cus_1", false},
		{"sub_2", "cus_2", false},
	}, reconciler.calls)
}

func TestSubscriptionReconcileJobSkipsGoneAndLockedSubscriptions(t *testing.T) {
	lister := &fakeTargetLister{targets: []subscriptions.ReconcileTarget{
		{SubscriptionID: "sub_gone", StripeCustomerID: "cus_1"},
		{SubscriptionID: "sub_locked", StripeCustomerID: "cus_2"},
		{SubscriptionID: "sub_ok", StripeCustomerID: "cus_3"},
	}}
	reconciler := &fakeJobReconciler{errs: map[string]error{
		"sub_gone":   pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found at provider"),
		"sub_locked": pkgerrors.New(pkgerrors.CodeConflict, "reconcile in progress"),
	}}

	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:     quietLogger(),
		Targets:    lister,
		Reconciler: reconciler,
		Limit:      10,
		Lookback:   time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, reconciler.calls, 3)
	assert.Equal(t, 10, lister.limit)
	assert.Equal(t, time.Hour, lister.lookback)
}

func TestSubscriptionReconcileJobAggregatesFailures(t *testing.T) {
	lister := &fakeTargetLister{targets: []subscriptions.ReconcileTarget{
		{SubscriptionID: "sub_1", StripeCustomerID: "cus_1"},
		{SubscriptionID: "sub_2", StripeCustomerID: "cus_2"},
		{SubscriptionID: "sub_3", StripeCustomerID: "cus_3"},
	}}
	reconciler := &fakeJobReconciler{errs: map[string]error{
		"sub_1": pkgerrors.New(pkgerrors.CodeIncompleteData, "missing period"),
		"sub_3": pkgerrors.New(pkgerrors.CodeStoreWrite, "upsert subscription"),
	}}

	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:     quietLogger(),
		Targets:    lister,
		Reconciler: reconciler,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.True(t, pkgerrors.HasCode(errs[0], pkgerrors.CodeIncompleteData))
	assert.True(t, pkgerrors.HasCode(errs[1], pkgerrors.CodeStoreWrite))
	assert.Len(t, reconciler.calls, 3)
}

func TestSubscriptionReconcileJobListError(t *testing.T) {
	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:     quietLogger(),
		Targets:    &fakeTargetLister{err: errors.New("db down")},
		Reconciler: &fakeJobReconciler{},
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list subscriptions for reconciliation")
}

func TestNewSubscriptionReconcileJobValidatesParams(t *testing.T) {
	_, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Targets:    &fakeTargetLister{},
		Reconciler: &fakeJobReconciler{},
	})
	assert.Error(t, err)

	_, err = NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:     quietLogger(),
		Reconciler: &fakeJobReconciler{},
	})
	assert.Error(t, err)

	_, err = NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:  quietLogger(),
		Targets: &fakeTargetLister{},
	})
	assert.Error(t, err)
}
