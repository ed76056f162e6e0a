package outbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/billingsync/pkg/enums"
)

// SubscriptionCreatedEvent is emitted the first time a subscription is reconciled
// from a creation event.
type SubscriptionCreatedEvent struct {
	SubscriptionID   string                   `json:"subscription_id"`
	UserID           uuid.UUID                `json:"user_id"`
	StripeCustomerID string                   `json:"stripe_customer_id"`
	Status           enums.SubscriptionStatus `json:"status"`
	PriceID          *string                  `json:"price_id,omitempty"`
	CurrentPeriodEnd time.Time                `json:"current_period_end"`
}

// SubscriptionStatusChangedEvent reports a transition of the stored status.
type SubscriptionStatusChangedEvent struct {
	SubscriptionID string                    `json:"subscription_id"`
	UserID         uuid.UUID                 `json:"user_id"`
	PreviousStatus *enums.SubscriptionStatus `json:"previous_status,omitempty"`
	Status         enums.SubscriptionStatus  `json:"status"`
	Entitled       bool                      `json:"entitled"`
}
