package subscriptions

import "github.com/angelmondragon/billingsync/internal/customers"

// ProviderSubscription is the live provider state of one subscription as
// fetched at reconciliation time. Epoch fields are seconds; nil means the
// provider did not set them.
type ProviderSubscription struct {
	ID                   string
	CustomerID           string
	Status               string
	Items                []SubscriptionItem
	CancelAtPeriodEnd    bool
	CancelAt             *int64
	CanceledAt           *int64
	EndedAt              *int64
	Created              int64
	TrialStart           *int64
	TrialEnd             *int64
	Metadata             map[string]string
	DefaultPaymentMethod *customers.BillingDetails
}

// SubscriptionItem is one line of a provider subscription. Period bounds
// live on items in current provider API versions.
type SubscriptionItem struct {
	PriceID            string
	Quantity           *int64
	CurrentPeriodStart *int64
	CurrentPeriodEnd   *int64
}
