package models

import (
	"encoding/json"
	"time"
)

// Product mirrors a provider catalog product. Rows are only ever upserted.
type Product struct {
	ID          string          `gorm:"column:id;primaryKey"`
	Active      bool            `gorm:"column:active;not null"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	Image       *string         `gorm:"column:image"`
	Metadata    json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Prices []Price `gorm:"foreignKey:ProductID;references:ID"`
}
