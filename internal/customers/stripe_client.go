package customers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"

	pkgstripe "github.com/angelmondragon/billingsync/pkg/stripe"
)

const userIDMetadataKey = "user_id"

// StripeCustomerClient exposes the subset of Stripe customer operations the resolver needs.
type StripeCustomerClient interface {
	Create(ctx context.Context, userID uuid.UUID, email string) (string, error)
	UpdateBillingDetails(ctx context.Context, customerID string, details BillingDetails) error
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the resolver can be tested.
func NewStripeClient(api *pkgstripe.Client) StripeCustomerClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

// Create mints a provider customer. The idempotency key is derived from the
// user id so concurrent first calls collapse into one remote customer.
func (w *stripeClientWrapper) Create(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Metadata: map[string]string{userIDMetadataKey: userID.String()},
	}
	if email = strings.TrimSpace(email); email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx
	params.SetIdempotencyKey(CreateIdempotencyKey(userID))

	created, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (w *stripeClientWrapper) UpdateBillingDetails(ctx context.Context, customerID string, details BillingDetails) error {
	params := &stripe.CustomerParams{
		Name:  stripe.String(details.Name),
		Phone: stripe.String(details.Phone),
	}
	if addr := details.Address; addr != nil {
		params.Address = &stripe.AddressParams{
			Line1:      stripe.String(addr.Line1),
			Line2:      stripe.String(addr.Line2),
			City:       stripe.String(addr.City),
			State:      stripe.String(addr.State),
			PostalCode: stripe.String(addr.PostalCode),
			Country:    stripe.String(addr.Country),
		}
	}
	params.Context = ctx
	_, err := customer.Update(customerID, params)
	return err
}

// CreateIdempotencyKey is the provider idempotency key for the first customer
// creation of a user.
func CreateIdempotencyKey(userID uuid.UUID) string {
	return "customer-create-" + userID.String()
}
