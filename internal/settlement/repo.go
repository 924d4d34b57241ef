package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Repository persists the tender rows a settlement produces.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreateStoreCredit(ctx context.Context, credit *models.StoreCredit) error
	CreateStoreCreditTransaction(ctx context.Context, txn *models.StoreCreditTransaction) error
	MarkOrderPaid(ctx context.Context, orderID uuid.UUID, amountCents int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) CreateStoreCredit(ctx context.Context, credit *models.StoreCredit) error {
	// Savepoint so a code collision aborts only this insert, not the
	// surrounding exchange transaction.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(credit).Error
	})
}

func (r *repository) CreateStoreCreditTransaction(ctx context.Context, txn *models.StoreCreditTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) MarkOrderPaid(ctx context.Context, orderID uuid.UUID, amountCents int) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":            enums.OrderStatusPaid,
			"amount_paid_cents": amountCents,
		}).Error
}
