package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// InventoryLevel tracks the on-hand count per product.
type InventoryLevel struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	OnHandQty int       `gorm:"column:on_hand_qty;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// InventoryTransaction is the audit row for one stock movement. Audit-only
// rows (rma_vendor/dispose) carry a zero quantity delta.
type InventoryTransaction struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID              `gorm:"column:product_id;type:uuid;not null;index"`
	Type            enums.InventoryTxnType `gorm:"column:type;type:text;not null"`
	QuantityDelta   int                    `gorm:"column:quantity_delta;not null"`
	ReferenceType   enums.InventoryRefType `gorm:"column:reference_type;type:text;not null"`
	ReferenceID     uuid.UUID              `gorm:"column:reference_id;type:uuid;not null;index"`
	ReferenceNumber string                 `gorm:"column:reference_number;not null"`
	CreatedBy       *uuid.UUID             `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (i *InventoryTransaction) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
