package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/exchange/valuation"
	"github.com/tillpoint/tillpoint-backend/internal/inventory"
	"github.com/tillpoint/tillpoint-backend/internal/settlement"
	"github.com/tillpoint/tillpoint-backend/internal/tax"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
)

// OrderNumberPrefix marks orders created by the exchange flow.
const OrderNumberPrefix = "EXC"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type numberGenerator interface {
	ReturnNumber() (string, error)
	OrderNumber(prefix string) (string, error)
}

// ExecuteInput is the full request for one exchange transaction.
type ExecuteInput struct {
	OriginalOrderID uuid.UUID
	ReturnItems     []valuation.ReturnItemInput
	NewItems        []valuation.NewItemInput
	PaymentMethod   enums.PaymentMethod
	RefundMethod    enums.RefundMethod
	Notes           *string
	InitiatedBy     *uuid.UUID
}

// Result reports the persisted exchange with both value breakdowns.
type Result struct {
	ReturnRecord *models.ReturnRecord
	NewOrder     *models.Order
	Settlement   *settlement.Outcome

	ReturnSubtotalCents int
	ReturnTaxCents      int
	ReturnTotalCents    int
	NewSubtotalCents    int
	NewTaxCents         int
	NewTotalCents       int
	DifferenceCents     int
}

// Service executes exchange orchestration.
type Service interface {
	Execute(ctx context.Context, input ExecuteInput) (*Result, error)
	GetByReturnID(ctx context.Context, returnID uuid.UUID) (*Result, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	returnVal  *valuation.ReturnValuator
	newVal     *valuation.NewItemValuator
	inventory  inventory.Gateway
	settlement settlement.Resolver
	taxes      *tax.Calculator
	numbers    numberGenerator
	logg       *logger.Logger
	metrics    *metrics.ExchangeMetrics
}

// NewService builds the exchange orchestrator. metrics may be nil.
func NewService(
	tx txRunner,
	repo Repository,
	returnVal *valuation.ReturnValuator,
	newVal *valuation.NewItemValuator,
	gateway inventory.Gateway,
	resolver settlement.Resolver,
	taxes *tax.Calculator,
	numbers numberGenerator,
	logg *logger.Logger,
	exchangeMetrics *metrics.ExchangeMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("exchange repository required")
	}
	if returnVal == nil || newVal == nil {
		return nil, fmt.Errorf("valuators required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("inventory gateway required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("settlement resolver required")
	}
	if taxes == nil {
		return nil, fmt.Errorf("tax calculator required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("number generator required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		returnVal:  returnVal,
		newVal:     newVal,
		inventory:  gateway,
		settlement: resolver,
		taxes:      taxes,
		numbers:    numbers,
		logg:       logg,
		metrics:    exchangeMetrics,
	}, nil
}

// Execute runs the whole exchange inside one transaction: either everything
// commits or nothing does. The original order row stays locked for the
// duration to serialize concurrent returns against it.
func (s *service) Execute(ctx context.Context, input ExecuteInput) (*Result, error) {
	if input.OriginalOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "original order id required")
	}
	if len(input.ReturnItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one return item is required")
	}
	if len(input.NewItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one new item is required")
	}

	started := time.Now()
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.executeInTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		s.observeFailure(err)
		return nil, err
	}
	s.observeSuccess(result, time.Since(started))
	return result, nil
}

func (s *service) executeInTx(ctx context.Context, tx *gorm.DB, input ExecuteInput) (*Result, error) {
	repo := s.repo.WithTx(tx)
	gateway := s.inventory.WithTx(tx)

	original, err := repo.FindOrderForUpdate(ctx, input.OriginalOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "original order not found")
		}
		if db.IsLockContention(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "original order locked by another transaction")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load original order")
	}
	if !original.Status.IsExchangeEligible() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order not exchange-eligible").
			WithDetails(map[string]any{"status": original.Status.String()})
	}

	returnLeg, err := s.returnVal.WithTx(tx).Valuate(ctx, original, input.ReturnItems)
	if err != nil {
		return nil, err
	}
	newLeg, err := s.newVal.WithTx(tx).Valuate(ctx, input.NewItems)
	if err != nil {
		return nil, err
	}

	// Both legs are taxed under the original order's jurisdiction and
	// exemption: the return refunds what was charged, and the replacement
	// sale happens at the same counter.
	returnTax := s.taxes.Apply(int64(returnLeg.SubtotalCents), original.TaxJurisdiction, original.TaxExempt)
	newTax := s.taxes.Apply(int64(newLeg.SubtotalCents), original.TaxJurisdiction, original.TaxExempt)

	result := &Result{
		ReturnSubtotalCents: returnLeg.SubtotalCents,
		ReturnTaxCents:      int(returnTax),
		ReturnTotalCents:    returnLeg.SubtotalCents + int(returnTax),
		NewSubtotalCents:    newLeg.SubtotalCents,
		NewTaxCents:         int(newTax),
		NewTotalCents:       newLeg.SubtotalCents + int(newTax),
	}
	result.DifferenceCents = result.NewTotalCents - result.ReturnTotalCents

	record, err := s.insertReturnRecord(ctx, repo, original, input, returnLeg, result)
	if err != nil {
		return nil, err
	}
	result.ReturnRecord = record

	s.restoreReturnedStock(ctx, gateway, record)

	newOrder, err := s.insertExchangeOrder(ctx, repo, gateway, original, record, newLeg, result, input.Notes)
	if err != nil {
		return nil, err
	}
	result.NewOrder = newOrder

	outcome, err := s.settlement.WithTx(tx).Resolve(ctx, settlement.Input{
		OriginalOrder:    original,
		NewOrder:         newOrder,
		ReturnID:         record.ID,
		ReturnTotalCents: result.ReturnTotalCents,
		PaymentMethod:    input.PaymentMethod,
		RefundMethod:     input.RefundMethod,
		InitiatedBy:      input.InitiatedBy,
	})
	if err != nil {
		return nil, err
	}
	result.Settlement = outcome

	if err := repo.FinalizeReturn(ctx, record.ID, newOrder.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize return record")
	}
	record.Status = enums.ReturnStatusCompleted
	record.ExchangeOrderID = &newOrder.ID

	return result, nil
}

func (s *service) insertReturnRecord(
	ctx context.Context,
	repo Repository,
	original *models.Order,
	input ExecuteInput,
	leg *valuation.ReturnValuation,
	result *Result,
) (*models.ReturnRecord, error) {
	number, err := s.numbers.ReturnNumber()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate return number")
	}

	record := &models.ReturnRecord{
		ReturnNumber:  number,
		OrderID:       original.ID,
		ReturnType:    enums.ReturnTypeExchange,
		Status:        enums.ReturnStatusProcessing,
		SubtotalCents: result.ReturnSubtotalCents,
		TaxCents:      result.ReturnTaxCents,
		TotalCents:    result.ReturnTotalCents,
		InitiatedBy:   input.InitiatedBy,
		Notes:         input.Notes,
	}
	if result.DifferenceCents < 0 {
		method := input.RefundMethod
		if method == "" {
			method = enums.RefundMethodStoreCredit
		}
		record.RefundMethod = &method
	}
	record.Items = make([]models.ReturnLineItem, 0, len(leg.Lines))
	for _, line := range leg.Lines {
		record.Items = append(record.Items, models.ReturnLineItem{
			OrderItemID:       line.OrderItem.ID,
			ProductID:         line.OrderItem.ProductID,
			Qty:               line.Qty,
			UnitPriceCents:    line.UnitPriceCents,
			RefundAmountCents: line.RefundAmountCents,
			Condition:         line.Condition,
			ReasonCode:        line.ReasonCode,
			ReasonNotes:       line.ReasonNotes,
			Disposition:       line.Disposition,
		})
	}

	if err := repo.CreateReturnRecord(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return record")
	}
	return record, nil
}

// restoreReturnedStock runs the advisory return leg: failures are logged and
// swallowed so a stock hiccup never voids the customer's exchange.
func (s *service) restoreReturnedStock(ctx context.Context, gateway inventory.Gateway, record *models.ReturnRecord) {
	for _, item := range record.Items {
		err := gateway.RestoreFromReturn(ctx, item.Disposition, inventory.Movement{
			ProductID:       item.ProductID,
			Qty:             item.Qty,
			ReferenceType:   enums.InventoryRefReturn,
			ReferenceID:     record.ID,
			ReferenceNumber: record.ReturnNumber,
			CreatedBy:       record.InitiatedBy,
		})
		if err != nil && s.logg != nil {
			logCtx := s.logg.WithReturnID(ctx, record.ID.String())
			logCtx = s.logg.WithFields(logCtx, map[string]any{
				"product_id": item.ProductID.String(),
				"qty":        item.Qty,
				"error":      err.Error(),
			})
			s.logg.Warn(logCtx, "inventory restore failed; continuing exchange")
		}
	}
}

func (s *service) insertExchangeOrder(
	ctx context.Context,
	repo Repository,
	gateway inventory.Gateway,
	original *models.Order,
	record *models.ReturnRecord,
	leg *valuation.NewValuation,
	result *Result,
	notes *string,
) (*models.Order, error) {
	number, err := s.numbers.OrderNumber(OrderNumberPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}

	order := &models.Order{
		OrderNumber:      number,
		Source:           enums.OrderSourceExchange,
		Status:           enums.OrderStatusPending,
		CustomerID:       original.CustomerID,
		TaxJurisdiction:  original.TaxJurisdiction,
		TaxExempt:        original.TaxExempt,
		SubtotalCents:    result.NewSubtotalCents,
		TaxCents:         result.NewTaxCents,
		TotalCents:       result.NewTotalCents,
		IsExchange:       true,
		ExchangeReturnID: &record.ID,
		Notes:            notes,
	}
	order.Items = make([]models.OrderItem, 0, len(leg.Lines))
	for _, line := range leg.Lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:      line.Product.ID,
			Name:           line.Product.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			UnitCostCents:  line.UnitCostCents,
			TotalCents:     line.TotalCents,
		})
	}

	if err := repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create exchange order")
	}

	for _, line := range leg.Lines {
		err := gateway.DeductForSale(ctx, inventory.Movement{
			ProductID:       line.Product.ID,
			Qty:             line.Qty,
			ReferenceType:   enums.InventoryRefOrder,
			ReferenceID:     order.ID,
			ReferenceNumber: order.OrderNumber,
			CreatedBy:       record.InitiatedBy,
		})
		if err != nil {
			return nil, err
		}
	}

	return order, nil
}

// GetByReturnID loads a previously executed exchange for display/audit.
func (s *service) GetByReturnID(ctx context.Context, returnID uuid.UUID) (*Result, error) {
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}

	record, err := s.repo.FindReturnByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return record")
	}
	if record.ReturnType != enums.ReturnTypeExchange || record.ExchangeOrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
	}

	order, err := s.repo.FindOrderByID(ctx, *record.ExchangeOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange order")
	}

	return &Result{
		ReturnRecord:        record,
		NewOrder:            order,
		ReturnSubtotalCents: record.SubtotalCents,
		ReturnTaxCents:      record.TaxCents,
		ReturnTotalCents:    record.TotalCents,
		NewSubtotalCents:    order.SubtotalCents,
		NewTaxCents:         order.TaxCents,
		NewTotalCents:       order.TotalCents,
		DifferenceCents:     order.TotalCents - record.TotalCents,
	}, nil
}

func (s *service) observeSuccess(result *Result, elapsed time.Duration) {
	if s.metrics == nil || result == nil || result.Settlement == nil {
		return
	}
	kind := result.Settlement.Kind.String()
	s.metrics.IncSuccess(kind)
	s.metrics.ObserveDuration(kind, elapsed)
}

func (s *service) observeFailure(err error) {
	if s.metrics == nil {
		return
	}
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.IncFailure(string(code))
}
