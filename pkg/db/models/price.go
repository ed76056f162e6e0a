package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/billingsync/pkg/enums"
)

// Price mirrors a provider price. ProductID is a soft reference: a price may
// arrive before the product it belongs to.
type Price struct {
	ID                string               `gorm:"column:id;primaryKey"`
	ProductID         string               `gorm:"column:product_id;not null;index"`
	Active            bool                 `gorm:"column:active;not null"`
	Currency          string               `gorm:"column:currency;not null"`
	Description       *string              `gorm:"column:description"`
	Type              enums.PriceType      `gorm:"column:type;type:pricing_type;not null"`
	UnitAmount        *int64               `gorm:"column:unit_amount"`
	UnitAmountDecimal decimal.NullDecimal  `gorm:"column:unit_amount_decimal;type:numeric(24,12)"`
	Interval          *enums.PriceInterval `gorm:"column:interval;type:pricing_plan_interval"`
	IntervalCount     *int64               `gorm:"column:interval_count"`
	TrialPeriodDays   *int64               `gorm:"column:trial_period_days"`
	Metadata          json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Product *Product `gorm:"foreignKey:ProductID;references:ID"`
}

// IsRecurring reports whether checkout should open in subscription mode.
func (p Price) IsRecurring() bool {
	return p.Type == enums.PriceTypeRecurring
}
