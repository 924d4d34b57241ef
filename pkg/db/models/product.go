package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog read model. The exchange engine never writes it.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SKU        string    `gorm:"column:sku;uniqueIndex;not null"`
	Name       string    `gorm:"column:name;not null"`
	PriceCents int       `gorm:"column:price_cents;not null"`
	CostCents  int       `gorm:"column:cost_cents;not null;default:0"`
	Active     bool      `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
