package valuation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Repository answers the already-returned-quantity question the return
// valuator depends on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ReturnedQty(ctx context.Context, orderItemID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a valuation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ReturnedQty sums quantities across all line items whose parent return still
// counts against the returnable quantity (cancelled/rejected ones do not).
func (r *repository) ReturnedQty(ctx context.Context, orderItemID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ReturnLineItem{}).
		Select("COALESCE(SUM(return_line_items.qty), 0)").
		Joins("JOIN return_records ON return_records.id = return_line_items.return_id").
		Where("return_line_items.order_item_id = ?", orderItemID).
		Where("return_records.status NOT IN ?", []enums.ReturnStatus{
			enums.ReturnStatusCancelled,
			enums.ReturnStatusRejected,
		}).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}
