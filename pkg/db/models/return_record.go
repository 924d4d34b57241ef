package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// ReturnRecord represents one return or exchange transaction against an
// original order. The exchange engine owns this table exclusively.
type ReturnRecord struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ReturnNumber    string              `gorm:"column:return_number;uniqueIndex;not null"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ReturnType      enums.ReturnType    `gorm:"column:return_type;type:text;not null"`
	Status          enums.ReturnStatus  `gorm:"column:status;type:text;not null;default:'processing'"`
	SubtotalCents   int                 `gorm:"column:subtotal_cents;not null"`
	TaxCents        int                 `gorm:"column:tax_cents;not null;default:0"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	RefundMethod    *enums.RefundMethod `gorm:"column:refund_method;type:text"`
	ExchangeOrderID *uuid.UUID          `gorm:"column:exchange_order_id;type:uuid"`
	InitiatedBy     *uuid.UUID          `gorm:"column:initiated_by;type:uuid"`
	Notes           *string             `gorm:"column:notes"`
	Items           []ReturnLineItem    `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ReturnRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ReturnLineItem is one returned unit group. The sum of Qty across all
// non-cancelled, non-rejected line items referencing the same order item must
// never exceed that item's original quantity.
type ReturnLineItem struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ReturnID          uuid.UUID           `gorm:"column:return_id;type:uuid;not null;index"`
	OrderItemID       uuid.UUID           `gorm:"column:order_item_id;type:uuid;not null;index"`
	ProductID         uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Qty               int                 `gorm:"column:qty;not null"`
	UnitPriceCents    int                 `gorm:"column:unit_price_cents;not null"`
	RefundAmountCents int                 `gorm:"column:refund_amount_cents;not null"`
	Condition         enums.ItemCondition `gorm:"column:condition;type:text;not null"`
	ReasonCode        string              `gorm:"column:reason_code;not null"`
	ReasonNotes       *string             `gorm:"column:reason_notes"`
	Disposition       enums.Disposition   `gorm:"column:disposition;type:text;not null"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ReturnLineItem) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
