package billing

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/billingsync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
)

type priceFinder interface {
	FindPrice(ctx context.Context, id string) (*models.Price, error)
}

type customerResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, email string) (string, error)
}

type subscriptionReader interface {
	FindCurrentForUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// URLs are the provider redirect targets used when none is supplied per request.
type URLs struct {
	CheckoutSuccess string
	CheckoutCancel  string
	PortalReturn    string
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Prices        priceFinder
	Customers     customerResolver
	Subscriptions subscriptionReader
	Stripe        StripeSessionClient
	URLs          URLs
	Logger        *logger.Logger
}

// Service bridges signed-in users to the provider's hosted checkout and
// billing portal.
type Service struct {
	prices        priceFinder
	customers     customerResolver
	subscriptions subscriptionReader
	stripe        StripeSessionClient
	urls          URLs
	logg          *logger.Logger
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Prices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "price finder required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer resolver required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription reader required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe session client required")
	}
	return &Service{
		prices:        params.Prices,
		customers:     params.Customers,
		subscriptions: params.Subscriptions,
		stripe:        params.Stripe,
		urls:          params.URLs,
		logg:          params.Logger,
	}, nil
}

type CheckoutRequest struct {
	UserID   uuid.UUID
	Email    string
	PriceID  string
	Quantity int64
	Metadata map[string]string
}

type CheckoutResult struct {
	SessionID string
	URL       string
}

// StartCheckout opens a hosted checkout for an active price. Recurring prices
// open in subscription mode and carry the price's trial period.
func (s *Service) StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	price, err := s.prices.FindPrice(ctx, req.PriceID)
	if err != nil {
		return nil, err
	}
	if !price.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price is not available")
	}

	customerID, err := s.customers.Resolve(ctx, req.UserID, req.Email)
	if err != nil {
		return nil, err
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID:      customerID,
		UserID:          req.UserID.String(),
		PriceID:         price.ID,
		Quantity:        quantity,
		Subscription:    price.IsRecurring(),
		TrialPeriodDays: price.TrialPeriodDays,
		SuccessURL:      s.urls.CheckoutSuccess,
		CancelURL:       s.urls.CheckoutCancel,
		Metadata:        req.Metadata,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return &CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

type PortalRequest struct {
	UserID    uuid.UUID
	Email     string
	ReturnURL string
}

// OpenPortal returns a billing portal URL for the user's provider customer.
func (s *Service) OpenPortal(ctx context.Context, req PortalRequest) (string, error) {
	if req.UserID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	customerID, err := s.customers.Resolve(ctx, req.UserID, req.Email)
	if err != nil {
		return "", err
	}
	returnURL := strings.TrimSpace(req.ReturnURL)
	if returnURL == "" {
		returnURL = s.urls.PortalReturn
	}

	session, err := s.stripe.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create billing portal session")
	}
	return session.URL, nil
}

// CurrentSubscription returns the user's most recent trialing or active
// subscription with its price and product, or CodeNotFound.
func (s *Service) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	sub, err := s.subscriptions.FindCurrentForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}
	return sub, nil
}
