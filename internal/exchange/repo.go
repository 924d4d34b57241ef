package exchange

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Repository manages persistence for exchange transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CreateReturnRecord(ctx context.Context, record *models.ReturnRecord) error
	CreateOrder(ctx context.Context, order *models.Order) error
	FinalizeReturn(ctx context.Context, returnID, exchangeOrderID uuid.UUID) error
	FindReturnByID(ctx context.Context, returnID uuid.UUID) (*models.ReturnRecord, error)
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an exchange repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindOrderForUpdate loads the original order and its items, holding an
// exclusive row lock on the order until the surrounding transaction ends.
// SQLite has no FOR UPDATE; its single-writer model serializes writers anyway.
func (r *repository) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) CreateReturnRecord(ctx context.Context, record *models.ReturnRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FinalizeReturn(ctx context.Context, returnID, exchangeOrderID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.ReturnRecord{}).
		Where("id = ?", returnID).
		Updates(map[string]any{
			"status":            enums.ReturnStatusCompleted,
			"exchange_order_id": exchangeOrderID,
		}).Error
}

func (r *repository) FindReturnByID(ctx context.Context, returnID uuid.UUID) (*models.ReturnRecord, error) {
	var record models.ReturnRecord
	if err := r.db.WithContext(ctx).Preload("Items").First(&record, "id = ?", returnID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
