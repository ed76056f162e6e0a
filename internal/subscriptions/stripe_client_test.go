package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

func TestSnapshotFromStripe(t *testing.T) {
	sub := &stripe.Subscription{
		ID:         "sub_1",
		Status:     stripe.SubscriptionStatusTrialing,
		Customer:   &stripe.Customer{ID: "cus_1"},
		Created:    900,
		TrialStart: 1000,
		TrialEnd:   2000,
		Metadata:   map[string]string{"plan": "pro"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{
				Price:              &stripe.Price{ID: "price_1"},
				Quantity:           2,
				CurrentPeriodStart: 5000,
				CurrentPeriodEnd:   6000,
			}},
		},
		DefaultPaymentMethod: &stripe.PaymentMethod{
			Type: stripe.PaymentMethodTypeCard,
			BillingDetails: &stripe.PaymentMethodBillingDetails{
				Name:    "Ada",
				Phone:   "+15550100",
				Address: &stripe.Address{Line1: "1 Main St", City: "Austin", Country: "US"},
			},
			Card: &stripe.PaymentMethodCard{Last4: "4242"},
		},
	}

	snapshot := SnapshotFromStripe(sub)
	require.NotNil(t, snapshot)
	assert.Equal(t, "sub_1", snapshot.ID)
	assert.Equal(t, "cus_1", snapshot.CustomerID)
	assert.Equal(t, "trialing", snapshot.Status)
	assert.Nil(t, snapshot.CancelAt)
	assert.Nil(t, snapshot.EndedAt)
	require.NotNil(t, snapshot.TrialEnd)
	assert.Equal(t, int64(2000), *snapshot.TrialEnd)

	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "price_1", snapshot.Items[0].PriceID)
	require.NotNil(t, snapshot.Items[0].Quantity)
	assert.Equal(t, int64(2), *snapshot.Items[0].Quantity)

	details := snapshot.DefaultPaymentMethod
	require.NotNil(t, details)
	assert.True(t, details.Complete())
	assert.Equal(t, "card", details.PaymentMethodType)
	assert.Contains(t, string(details.PaymentMethod), `"last4":"4242"`)
}

func TestSnapshotFromStripeWithoutPaymentMethod(t *testing.T) {
	snapshot := SnapshotFromStripe(&stripe.Subscription{ID: "sub_1", Status: stripe.SubscriptionStatusActive})
	require.NotNil(t, snapshot)
	assert.Nil(t, snapshot.DefaultPaymentMethod)
	assert.Empty(t, snapshot.Items)
	assert.Nil(t, SnapshotFromStripe(nil))
}
