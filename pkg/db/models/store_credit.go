package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// StoreCredit is a redeemable balance issued to a customer in lieu of a cash
// refund. The exchange engine only creates credits and their opening ledger
// entry; redemption flows mutate the balance later.
type StoreCredit struct {
	ID                  uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Code                string                   `gorm:"column:code;uniqueIndex;not null"`
	CustomerID          uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	OriginalAmountCents int                      `gorm:"column:original_amount_cents;not null"`
	CurrentBalanceCents int                      `gorm:"column:current_balance_cents;not null"`
	SourceType          enums.StoreCreditSource  `gorm:"column:source_type;type:text;not null"`
	ReturnID            *uuid.UUID               `gorm:"column:return_id;type:uuid"`
	IssuedBy            *uuid.UUID               `gorm:"column:issued_by;type:uuid"`
	Status              string                   `gorm:"column:status;not null;default:'active'"`
	Transactions        []StoreCreditTransaction `gorm:"foreignKey:StoreCreditID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *StoreCredit) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// StoreCreditTransaction is one ledger entry against a store credit.
type StoreCreditTransaction struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	StoreCreditID     uuid.UUID                `gorm:"column:store_credit_id;type:uuid;not null;index"`
	Type              enums.StoreCreditTxnType `gorm:"column:type;type:text;not null"`
	AmountCents       int                      `gorm:"column:amount_cents;not null"`
	BalanceAfterCents int                      `gorm:"column:balance_after_cents;not null"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (s *StoreCreditTransaction) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
