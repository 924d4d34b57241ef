package valuation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// NewItemInput is one requested replacement line. UnitPriceCents overrides the
// catalog price when present (POS price adjustments).
type NewItemInput struct {
	ProductID      uuid.UUID
	Qty            int
	UnitPriceCents *int
}

// NewLine is a priced replacement line with the catalog cost snapshot.
type NewLine struct {
	Product        *models.Product
	Qty            int
	UnitPriceCents int
	UnitCostCents  int
	TotalCents     int
}

// NewValuation is the priced new-order leg before tax.
type NewValuation struct {
	Lines         []NewLine
	SubtotalCents int
}

// NewItemValuator prices replacement items against the catalog.
type NewItemValuator struct {
	products products.Repository
}

// NewNewItemValuator wires a new-item valuator with the catalog repository.
func NewNewItemValuator(repo products.Repository) *NewItemValuator {
	return &NewItemValuator{products: repo}
}

// WithTx rebinds the valuator's catalog repository to the given transaction.
func (v *NewItemValuator) WithTx(tx *gorm.DB) *NewItemValuator {
	if tx == nil {
		return v
	}
	return &NewItemValuator{products: v.products.WithTx(tx)}
}

// Valuate resolves and prices every replacement line. Products are cached per
// call so each catalog row is fetched at most once.
func (v *NewItemValuator) Valuate(ctx context.Context, items []NewItemInput) (*NewValuation, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one new item is required")
	}

	cache := make(map[uuid.UUID]*models.Product, len(items))
	valuation := &NewValuation{Lines: make([]NewLine, 0, len(items))}

	for _, input := range items {
		if input.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if input.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "new item quantity must be at least 1").
				WithDetails(map[string]any{"product_id": input.ProductID.String(), "qty": input.Qty})
		}

		product, ok := cache[input.ProductID]
		if !ok {
			loaded, err := v.products.FindByID(ctx, input.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
						WithDetails(map[string]any{"product_id": input.ProductID.String()})
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			cache[input.ProductID] = loaded
			product = loaded
		}

		unitPrice := product.PriceCents
		if input.UnitPriceCents != nil {
			if *input.UnitPriceCents < 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price override must not be negative").
					WithDetails(map[string]any{"product_id": input.ProductID.String()})
			}
			unitPrice = *input.UnitPriceCents
		}

		total := unitPrice * input.Qty
		valuation.Lines = append(valuation.Lines, NewLine{
			Product:        product,
			Qty:            input.Qty,
			UnitPriceCents: unitPrice,
			UnitCostCents:  product.CostCents,
			TotalCents:     total,
		})
		valuation.SubtotalCents += total
	}

	return valuation, nil
}
