package subscriptions

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/subscription"

	"github.com/angelmondragon/billingsync/internal/customers"
	pkgstripe "github.com/angelmondragon/billingsync/pkg/stripe"
)

// StripeSubscriptionClient exposes the subset of Stripe operations required by the reconciler.
type StripeSubscriptionClient interface {
	Get(ctx context.Context, id string) (*ProviderSubscription, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the reconciler can be tested.
func NewStripeClient(api *pkgstripe.Client) StripeSubscriptionClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) Get(ctx context.Context, id string) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("default_payment_method")
	sub, err := subscription.Get(id, params)
	if err != nil {
		return nil, err
	}
	return SnapshotFromStripe(sub), nil
}

// SnapshotFromStripe converts the SDK object into the reconciler snapshot.
// Zero epochs become nil.
func SnapshotFromStripe(sub *stripe.Subscription) *ProviderSubscription {
	if sub == nil {
		return nil
	}
	snapshot := &ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CancelAt:          epochPtr(sub.CancelAt),
		CanceledAt:        epochPtr(sub.CanceledAt),
		EndedAt:           epochPtr(sub.EndedAt),
		Created:           sub.Created,
		TrialStart:        epochPtr(sub.TrialStart),
		TrialEnd:          epochPtr(sub.TrialEnd),
		Metadata:          sub.Metadata,
	}
	if sub.Customer != nil {
		snapshot.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item == nil {
				continue
			}
			converted := SubscriptionItem{
				CurrentPeriodStart: epochPtr(item.CurrentPeriodStart),
				CurrentPeriodEnd:   epochPtr(item.CurrentPeriodEnd),
			}
			if item.Price != nil {
				converted.PriceID = item.Price.ID
			}
			if item.Quantity > 0 {
				quantity := item.Quantity
				converted.Quantity = &quantity
			}
			snapshot.Items = append(snapshot.Items, converted)
		}
	}
	snapshot.DefaultPaymentMethod = billingDetailsFromStripe(sub.DefaultPaymentMethod)
	return snapshot
}

func billingDetailsFromStripe(pm *stripe.PaymentMethod) *customers.BillingDetails {
	if pm == nil || pm.BillingDetails == nil {
		return nil
	}
	details := &customers.BillingDetails{
		Name:              pm.BillingDetails.Name,
		Phone:             pm.BillingDetails.Phone,
		PaymentMethodType: string(pm.Type),
		PaymentMethod:     typeSpecificBlock(pm),
	}
	if addr := pm.BillingDetails.Address; addr != nil {
		details.Address = &customers.Address{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		}
	}
	return details
}

// typeSpecificBlock extracts the object keyed by the payment method type
// ("card", "us_bank_account", ...).
func typeSpecificBlock(pm *stripe.PaymentMethod) json.RawMessage {
	if pm.Type == "" {
		return nil
	}
	raw, err := json.Marshal(pm)
	if err != nil {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	block, ok := fields[string(pm.Type)]
	if !ok || string(block) == "null" {
		return nil
	}
	return block
}

func epochPtr(ts int64) *int64 {
	if ts <= 0 {
		return nil
	}
	return &ts
}
