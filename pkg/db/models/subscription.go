package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/billingsync/pkg/enums"
)

// Subscription is the local projection of a provider subscription. Every
// reconciliation replaces the whole row.
type Subscription struct {
	ID                 string                   `gorm:"column:id;primaryKey"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Status             enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null"`
	PriceID            *string                  `gorm:"column:price_id"`
	Quantity           int64                    `gorm:"column:quantity;not null"`
	CancelAtPeriodEnd  bool                     `gorm:"column:cancel_at_period_end;not null"`
	CancelAt           *time.Time               `gorm:"column:cancel_at"`
	CanceledAt         *time.Time               `gorm:"column:canceled_at"`
	EndedAt            *time.Time               `gorm:"column:ended_at"`
	CurrentPeriodStart time.Time                `gorm:"column:current_period_start;not null"`
	CurrentPeriodEnd   time.Time                `gorm:"column:current_period_end;not null"`
	TrialStart         *time.Time               `gorm:"column:trial_start"`
	TrialEnd           *time.Time               `gorm:"column:trial_end"`
	Created            time.Time                `gorm:"column:created;not null"`
	Metadata           json.RawMessage          `gorm:"column:metadata;type:jsonb"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Price *Price `gorm:"foreignKey:PriceID;references:ID"`
}
