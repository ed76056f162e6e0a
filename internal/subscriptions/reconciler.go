package subscriptions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/billingsync/internal/customers"
	"github.com/angelmondragon/billingsync/pkg/db/models"
	"github.com/angelmondragon/billingsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
	"github.com/angelmondragon/billingsync/pkg/outbox"
	pkgstripe "github.com/angelmondragon/billingsync/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerResolver interface {
	UserIDForCustomer(ctx context.Context, customerID string) (uuid.UUID, error)
	CopyBillingDetails(ctx context.Context, userID uuid.UUID, customerID string, details *customers.BillingDetails) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Locker serializes reconciliations of the same subscription id.
type Locker interface {
	TryLock(ctx context.Context, id string) (release func(context.Context) error, ok bool, err error)
}

// ReconcilerParams groups dependencies for the reconciler. Locker is optional;
// without it concurrent reconciliations of one id resolve last-write-wins.
type ReconcilerParams struct {
	Repo              Repository
	Customers         customerResolver
	Stripe            StripeSubscriptionClient
	TransactionRunner txRunner
	Outbox            eventEmitter
	Locker            Locker
	Logger            *logger.Logger
}

// Reconciler re-derives the local subscription row from the provider's live
// state.
type Reconciler struct {
	repo      Repository
	customers customerResolver
	stripe    StripeSubscriptionClient
	txRunner  txRunner
	outbox    eventEmitter
	locker    Locker
	logg      *logger.Logger
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repository required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer resolver required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &Reconciler{
		repo:      params.Repo,
		customers: params.Customers,
		stripe:    params.Stripe,
		txRunner:  params.TransactionRunner,
		outbox:    params.Outbox,
		locker:    params.Locker,
		logg:      params.Logger,
	}, nil
}

// Reconcile fetches subscriptionID from the provider and replaces the stored
// row. createAction marks a creation event: it adds the created outbox event
// (only when no row was stored yet) and the billing details copy but never
// changes the row itself.
func (r *Reconciler) Reconcile(ctx context.Context, subscriptionID, customerID string, createAction bool) (*models.Subscription, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	customerID = strings.TrimSpace(customerID)
	if subscriptionID == "" || customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "subscription and customer ids are required")
	}
	if r.logg != nil {
		ctx = r.logg.WithSubscriptionID(ctx, subscriptionID)
		ctx = r.logg.WithField(ctx, "stripe_customer_id", customerID)
	}

	if r.locker != nil {
		release, ok, err := r.locker.TryLock(ctx, subscriptionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire subscription lock")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "subscription reconciliation already in progress")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil && r.logg != nil {
				r.logg.Warn(ctx, "release subscription lock failed: "+err.Error())
			}
		}()
	}

	userID, err := r.customers.UserIDForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	snapshot, err := r.stripe.Get(ctx, subscriptionID)
	if err != nil {
		if pkgstripe.IsResourceMissing(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "stripe subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
	}
	if snapshot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "stripe returned no subscription")
	}
	if snapshot.ID != subscriptionID {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "stripe returned a different subscription").
			WithDetails(map[string]any{"requested": subscriptionID, "received": snapshot.ID})
	}

	row, err := BuildSubscription(snapshot, userID)
	if err != nil {
		return nil, err
	}

	err = r.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		previous, err := repo.FindByID(ctx, row.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreWrite, err, "load stored subscription")
		}
		if err := repo.Upsert(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreWrite, err, "upsert subscription")
		}
		return r.emitEvents(ctx, tx, row, previous, customerID, createAction)
	})
	if err != nil {
		return nil, err
	}

	if r.logg != nil {
		r.logg.Info(r.logg.WithField(ctx, "status", string(row.Status)), "subscription reconciled")
	}

	if createAction && snapshot.DefaultPaymentMethod.Complete() {
		if err := r.customers.CopyBillingDetails(ctx, userID, customerID, snapshot.DefaultPaymentMethod); err != nil {
			return nil, err
		}
	}

	return row, nil
}

func (r *Reconciler) emitEvents(ctx context.Context, tx *gorm.DB, row, previous *models.Subscription, customerID string, createAction bool) error {
	// A second creation event for a stored row (checkout completion plus
	// customer.subscription.created, or a redelivery) emits nothing new.
	if createAction && previous == nil {
		err := r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionCreated,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   row.ID,
			Data: outbox.SubscriptionCreatedEvent{
				SubscriptionID:   row.ID,
				UserID:           row.UserID,
				StripeCustomerID: customerID,
				Status:           row.Status,
				PriceID:          row.PriceID,
				CurrentPeriodEnd: row.CurrentPeriodEnd,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreWrite, err, "emit subscription created")
		}
	}

	var previousStatus *enums.SubscriptionStatus
	if previous != nil {
		if previous.Status == row.Status {
			return nil
		}
		status := previous.Status
		previousStatus = &status
	}
	err := r.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSubscriptionStatusChanged,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   row.ID,
		Data: outbox.SubscriptionStatusChangedEvent{
			SubscriptionID: row.ID,
			UserID:         row.UserID,
			PreviousStatus: previousStatus,
			Status:         row.Status,
			Entitled:       row.Status.IsEntitled(),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreWrite, err, "emit subscription status changed")
	}
	return nil
}
