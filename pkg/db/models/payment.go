package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Payment is one tender movement against an order. Refund rows carry a
// negative amount; exchange_credit rows represent trade-in value applied as
// tender rather than money received.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Type        enums.PaymentType   `gorm:"column:type;type:text;not null"`
	Method      enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	AmountCents int                 `gorm:"column:amount_cents;not null"`
	Status      string              `gorm:"column:status;not null;default:'completed'"`
	ReturnID    *uuid.UUID          `gorm:"column:return_id;type:uuid;index"`
	Notes       *string             `gorm:"column:notes"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
