package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// Movement describes one stock adjustment and its audit reference.
type Movement struct {
	ProductID       uuid.UUID
	Qty             int
	ReferenceType   enums.InventoryRefType
	ReferenceID     uuid.UUID
	ReferenceNumber string
	CreatedBy       *uuid.UUID
}

// Gateway routes stock movements for the return and sale legs of an exchange.
//
// RestoreFromReturn failures are advisory: the write runs inside a savepoint
// so the caller can log the error and keep the surrounding transaction alive.
// DeductForSale failures are mandatory and must abort the caller.
type Gateway interface {
	WithTx(tx *gorm.DB) Gateway
	RestoreFromReturn(ctx context.Context, disposition enums.Disposition, m Movement) error
	DeductForSale(ctx context.Context, m Movement) error
}

type gateway struct {
	db *gorm.DB
}

// NewGateway returns an inventory gateway bound to the provided database.
func NewGateway(db *gorm.DB) Gateway {
	return &gateway{db: db}
}

func (g *gateway) WithTx(tx *gorm.DB) Gateway {
	if tx == nil {
		return g
	}
	return &gateway{db: tx}
}

// RestoreFromReturn adds restocking dispositions back to on-hand stock and
// records audit-only zero-delta transactions for the rest.
func (g *gateway) RestoreFromReturn(ctx context.Context, disposition enums.Disposition, m Movement) error {
	if err := validateMovement(m); err != nil {
		return err
	}
	if !disposition.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown disposition").
			WithDetails(map[string]any{"disposition": disposition.String()})
	}

	txnType := enums.InventoryTxnForDisposition(disposition)
	delta := 0
	if disposition.Restocks() {
		delta = m.Qty
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if delta > 0 {
			if err := adjustLevel(tx, m.ProductID, delta); err != nil {
				return err
			}
		}
		return tx.Create(&models.InventoryTransaction{
			ProductID:       m.ProductID,
			Type:            txnType,
			QuantityDelta:   delta,
			ReferenceType:   m.ReferenceType,
			ReferenceID:     m.ReferenceID,
			ReferenceNumber: m.ReferenceNumber,
			CreatedBy:       m.CreatedBy,
		}).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore inventory from return")
	}
	return nil
}

// DeductForSale removes sold units from on-hand stock. Selling units that
// cannot be deducted is not acceptable, so shortages fail the caller.
func (g *gateway) DeductForSale(ctx context.Context, m Movement) error {
	if err := validateMovement(m); err != nil {
		return err
	}

	res := g.db.WithContext(ctx).Model(&models.InventoryLevel{}).
		Where("product_id = ? AND on_hand_qty >= ?", m.ProductID, m.Qty).
		UpdateColumn("on_hand_qty", gorm.Expr("on_hand_qty - ?", m.Qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "deduct inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{"product_id": m.ProductID.String(), "qty": m.Qty})
	}

	txn := &models.InventoryTransaction{
		ProductID:       m.ProductID,
		Type:            enums.InventoryTxnSale,
		QuantityDelta:   -m.Qty,
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
		ReferenceNumber: m.ReferenceNumber,
		CreatedBy:       m.CreatedBy,
	}
	if err := g.db.WithContext(ctx).Create(txn).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale transaction")
	}
	return nil
}

func adjustLevel(tx *gorm.DB, productID uuid.UUID, delta int) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"on_hand_qty": gorm.Expr("on_hand_qty + ?", delta),
		}),
	}).Create(&models.InventoryLevel{ProductID: productID, OnHandQty: delta}).Error
}

func validateMovement(m Movement) error {
	if m.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if m.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"qty": m.Qty})
	}
	if !m.ReferenceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown inventory reference type")
	}
	if m.ReferenceID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}
	return nil
}
