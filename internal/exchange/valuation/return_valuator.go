package valuation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// ReturnItemInput is one requested return entry as submitted by the caller.
type ReturnItemInput struct {
	OrderItemID uuid.UUID
	Qty         int
	ReasonCode  string
	ReasonNotes *string
	Condition   enums.ItemCondition
}

// ReturnLine is a validated return entry with its refund value and the
// disposition derived once from the item condition.
type ReturnLine struct {
	OrderItem         *models.OrderItem
	Qty               int
	UnitPriceCents    int
	RefundAmountCents int
	Condition         enums.ItemCondition
	ReasonCode        string
	ReasonNotes       *string
	Disposition       enums.Disposition
}

// ReturnValuation is the validated return leg before tax.
type ReturnValuation struct {
	Lines         []ReturnLine
	SubtotalCents int
}

// ReturnValuator validates requested return entries against the original
// order and prices the refund.
type ReturnValuator struct {
	repo Repository
}

// NewReturnValuator wires a return valuator with the provided repository.
func NewReturnValuator(repo Repository) *ReturnValuator {
	return &ReturnValuator{repo: repo}
}

// WithTx rebinds the valuator's repository to the given transaction.
func (v *ReturnValuator) WithTx(tx *gorm.DB) *ReturnValuator {
	if tx == nil {
		return v
	}
	return &ReturnValuator{repo: v.repo.WithTx(tx)}
}

// Valuate checks every requested entry against the original order's items and
// the quantities already consumed by prior returns, then prices the leg.
func (v *ReturnValuator) Valuate(ctx context.Context, order *models.Order, items []ReturnItemInput) (*ReturnValuation, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "return valuation requires the original order")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one return item is required")
	}

	itemsByID := make(map[uuid.UUID]*models.OrderItem, len(order.Items))
	for i := range order.Items {
		itemsByID[order.Items[i].ID] = &order.Items[i]
	}

	valuation := &ReturnValuation{Lines: make([]ReturnLine, 0, len(items))}
	requested := make(map[uuid.UUID]int, len(items))

	for _, input := range items {
		orderItem, ok := itemsByID[input.OrderItemID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to the original order").
				WithDetails(map[string]any{"order_item_id": input.OrderItemID.String()})
		}
		if input.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return quantity must be at least 1").
				WithDetails(map[string]any{"order_item_id": input.OrderItemID.String(), "qty": input.Qty})
		}
		if input.Qty > orderItem.Qty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return quantity exceeds purchased quantity").
				WithDetails(map[string]any{"order_item_id": input.OrderItemID.String(), "qty": input.Qty, "purchased": orderItem.Qty})
		}
		condition := input.Condition
		if condition == "" {
			condition = enums.ItemConditionOther
		}
		if !condition.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown item condition").
				WithDetails(map[string]any{"condition": condition.String()})
		}

		alreadyReturned, err := v.repo.ReturnedQty(ctx, orderItem.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load returned quantity")
		}
		maxReturnable := orderItem.Qty - alreadyReturned - requested[orderItem.ID]
		if input.Qty > maxReturnable {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return quantity exceeds remaining returnable quantity").
				WithDetails(map[string]any{
					"order_item_id":  orderItem.ID.String(),
					"qty":            input.Qty,
					"max_returnable": maxReturnable,
				})
		}
		requested[orderItem.ID] += input.Qty

		refund := orderItem.UnitPriceCents * input.Qty
		valuation.Lines = append(valuation.Lines, ReturnLine{
			OrderItem:         orderItem,
			Qty:               input.Qty,
			UnitPriceCents:    orderItem.UnitPriceCents,
			RefundAmountCents: refund,
			Condition:         condition,
			ReasonCode:        input.ReasonCode,
			ReasonNotes:       input.ReasonNotes,
			Disposition:       enums.DispositionFor(condition),
		})
		valuation.SubtotalCents += refund
	}

	return valuation, nil
}
