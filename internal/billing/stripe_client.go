package billing

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	portalsession "github.com/stripe/stripe-go/v84/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/angelmondragon/billingsync/pkg/stripe"
)

// CheckoutSessionInput describes the hosted checkout page to open.
type CheckoutSessionInput struct {
	CustomerID      string
	UserID          string
	PriceID         string
	Quantity        int64
	Subscription    bool
	TrialPeriodDays *int64
	SuccessURL      string
	CancelURL       string
	Metadata        map[string]string
}

// Session is the subset of a provider session handed back to callers.
type Session struct {
	ID  string
	URL string
}

// StripeSessionClient opens hosted provider pages.
type StripeSessionClient interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error)
}

type stripeSessionClient struct{}

func NewStripeClient(api *pkgstripe.Client) StripeSessionClient {
	if api == nil {
		return nil
	}
	return &stripeSessionClient{}
}

func (c *stripeSessionClient) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:                 stripe.String(input.CustomerID),
		ClientReferenceID:        stripe.String(input.UserID),
		SuccessURL:               stripe.String(input.SuccessURL),
		CancelURL:                stripe.String(input.CancelURL),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(input.PriceID),
			Quantity: stripe.Int64(input.Quantity),
		}},
		Metadata: input.Metadata,
	}
	if input.Subscription {
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: input.Metadata,
		}
		if input.TrialPeriodDays != nil && *input.TrialPeriodDays > 0 {
			params.SubscriptionData.TrialPeriodDays = stripe.Int64(*input.TrialPeriodDays)
		}
	} else {
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
	}
	params.Context = ctx

	created, err := checkoutsession.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: created.ID, URL: created.URL}, nil
}

func (c *stripeSessionClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	created, err := portalsession.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: created.ID, URL: created.URL}, nil
}
