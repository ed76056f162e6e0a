package stripewebhook

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/billingsync/internal/catalog"
	"github.com/angelmondragon/billingsync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
)

const checkoutModeSubscription = "subscription"

type catalogWriter interface {
	UpsertProduct(ctx context.Context, input catalog.ProductInput) (*models.Product, error)
	UpsertPrice(ctx context.Context, input catalog.PriceInput) (*models.Price, error)
}

type subscriptionReconciler interface {
	Reconcile(ctx context.Context, subscriptionID, customerID string, createAction bool) (*models.Subscription, error)
}

type ServiceParams struct {
	Catalog    catalogWriter
	Reconciler subscriptionReconciler
	Logger     *logger.Logger
}

// Service routes verified provider events to the catalog and subscription
// handlers.
type Service struct {
	catalog    catalogWriter
	reconciler subscriptionReconciler
	logg       *logger.Logger
	relevant   map[stripe.EventType]struct{}
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog service required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription reconciler required")
	}
	return &Service{
		catalog:    params.Catalog,
		reconciler: params.Reconciler,
		logg:       params.Logger,
		relevant:   relevantEvents(),
	}, nil
}

func relevantEvents() map[stripe.EventType]struct{} {
	return map[stripe.EventType]struct{}{
		stripe.EventTypeProductCreated:              {},
		stripe.EventTypeProductUpdated:              {},
		stripe.EventTypePriceCreated:                {},
		stripe.EventTypePriceUpdated:                {},
		stripe.EventTypeCheckoutSessionCompleted:    {},
		stripe.EventTypeCustomerSubscriptionCreated: {},
		stripe.EventTypeCustomerSubscriptionUpdated: {},
		stripe.EventTypeCustomerSubscriptionDeleted: {},
		stripe.EventTypeInvoicePaymentSucceeded:     {},
		stripe.EventTypeInvoicePaymentFailed:        {},
	}
}

// IsRelevant reports whether the event type is one the service acts on.
func (s *Service) IsRelevant(eventType stripe.EventType) bool {
	_, ok := s.relevant[eventType]
	return ok
}

// HandleEvent applies a verified event. Events outside the relevant set are
// acknowledged without side effects and reported as not handled.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (bool, error) {
	if event == nil {
		return false, pkgerrors.New(pkgerrors.CodeIncompleteData, "stripe event required")
	}
	if !s.IsRelevant(event.Type) {
		if s.logg != nil {
			s.logg.Info(ctx, "stripe event ignored")
		}
		return false, nil
	}
	if event.Data == nil {
		return false, pkgerrors.New(pkgerrors.CodeIncompleteData, "stripe event data required")
	}
	raw := event.Data.Raw

	switch event.Type {
	case stripe.EventTypeProductCreated, stripe.EventTypeProductUpdated:
		var payload productPayload
		if err := decodePayload(raw, &payload, "product"); err != nil {
			return false, err
		}
		if _, err := s.catalog.UpsertProduct(ctx, payload.input()); err != nil {
			return false, err
		}
		return true, nil

	case stripe.EventTypePriceCreated, stripe.EventTypePriceUpdated:
		var payload pricePayload
		if err := decodePayload(raw, &payload, "price"); err != nil {
			return false, err
		}
		if _, err := s.catalog.UpsertPrice(ctx, payload.input()); err != nil {
			return false, err
		}
		return true, nil

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var payload subscriptionPayload
		if err := decodePayload(raw, &payload, "subscription"); err != nil {
			return false, err
		}
		createAction := event.Type == stripe.EventTypeCustomerSubscriptionCreated
		return s.reconcile(ctx, payload.ID, payload.Customer.String(), createAction)

	case stripe.EventTypeCheckoutSessionCompleted:
		var payload checkoutSessionPayload
		if err := decodePayload(raw, &payload, "checkout session"); err != nil {
			return false, err
		}
		if payload.Mode != checkoutModeSubscription {
			return true, nil
		}
		return s.reconcile(ctx, payload.Subscription.String(), payload.Customer.String(), true)

	case stripe.EventTypeInvoicePaymentSucceeded, stripe.EventTypeInvoicePaymentFailed:
		var payload invoicePayload
		if err := decodePayload(raw, &payload, "invoice"); err != nil {
			return false, err
		}
		subscriptionID := payload.subscriptionID()
		if subscriptionID == "" {
			return true, nil
		}
		return s.reconcile(ctx, subscriptionID, payload.Customer.String(), false)
	}

	return false, pkgerrors.New(pkgerrors.CodeUnhandledEvent, "unhandled relevant event: "+string(event.Type))
}

func (s *Service) reconcile(ctx context.Context, subscriptionID, customerID string, createAction bool) (bool, error) {
	if _, err := s.reconciler.Reconcile(ctx, subscriptionID, customerID, createAction); err != nil {
		return false, err
	}
	return true, nil
}
