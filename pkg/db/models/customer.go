package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Customer maps an internal user to exactly one provider customer.
type Customer struct {
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	StripeCustomerID string          `gorm:"column:stripe_customer_id;not null;uniqueIndex"`
	Email            *string         `gorm:"column:email"`
	BillingAddress   json.RawMessage `gorm:"column:billing_address;type:jsonb"`
	PaymentMethod    json.RawMessage `gorm:"column:payment_method;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
