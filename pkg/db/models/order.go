package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Order is a sales record. Completed orders are immutable to the exchange
// engine: it only reads them under a row lock. Exchange orders are created by
// the engine with Source=exchange and then live the normal order lifecycle.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber      string            `gorm:"column:order_number;uniqueIndex;not null"`
	Source           enums.OrderSource `gorm:"column:source;type:text;not null;default:'pos'"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	CustomerID       uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	TaxJurisdiction  string            `gorm:"column:tax_jurisdiction;not null"`
	TaxExempt        bool              `gorm:"column:tax_exempt;not null;default:false"`
	SubtotalCents    int               `gorm:"column:subtotal_cents;not null"`
	TaxCents         int               `gorm:"column:tax_cents;not null;default:0"`
	TotalCents       int               `gorm:"column:total_cents;not null"`
	AmountPaidCents  int               `gorm:"column:amount_paid_cents;not null;default:0"`
	IsExchange       bool              `gorm:"column:is_exchange;not null;default:false"`
	ExchangeReturnID *uuid.UUID        `gorm:"column:exchange_return_id;type:uuid"`
	Notes            *string           `gorm:"column:notes"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments         []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id client-side so the model works on both Postgres
// and the SQLite databases used in tests.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem captures the priced snapshot of one line on an order.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	UnitCostCents  int       `gorm:"column:unit_cost_cents;not null;default:0"`
	TotalCents     int       `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
