package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// DefaultCodeAttempts bounds the store-credit code collision retry loop.
const DefaultCodeAttempts = 10

type codeGenerator interface {
	StoreCreditCode() (string, error)
}

// Input carries everything the resolver needs to settle an exchange.
type Input struct {
	OriginalOrder    *models.Order
	NewOrder         *models.Order
	ReturnID         uuid.UUID
	ReturnTotalCents int
	PaymentMethod    enums.PaymentMethod
	RefundMethod     enums.RefundMethod
	InitiatedBy      *uuid.UUID
}

// Outcome reports which settlement branch ran and what it produced.
type Outcome struct {
	Kind            enums.SettlementKind
	DifferenceCents int
	Payments        []*models.Payment
	StoreCredit     *models.StoreCredit
}

// Resolver settles the money difference between the return leg and the new
// order, leaving the new order paid in full in every branch.
type Resolver interface {
	WithTx(tx *gorm.DB) Resolver
	Resolve(ctx context.Context, input Input) (*Outcome, error)
}

type resolver struct {
	repo         Repository
	codes        codeGenerator
	codeAttempts int
}

// NewResolver wires a settlement resolver. codeAttempts <= 0 falls back to
// DefaultCodeAttempts.
func NewResolver(repo Repository, codes codeGenerator, codeAttempts int) (Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement repository required")
	}
	if codes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store credit code generator required")
	}
	if codeAttempts <= 0 {
		codeAttempts = DefaultCodeAttempts
	}
	return &resolver{repo: repo, codes: codes, codeAttempts: codeAttempts}, nil
}

func (r *resolver) WithTx(tx *gorm.DB) Resolver {
	if tx == nil {
		return r
	}
	return &resolver{repo: r.repo.WithTx(tx), codes: r.codes, codeAttempts: r.codeAttempts}
}

func (r *resolver) Resolve(ctx context.Context, input Input) (*Outcome, error) {
	if input.OriginalOrder == nil || input.NewOrder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement requires both orders")
	}
	if input.ReturnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement requires a return id")
	}

	difference := input.NewOrder.TotalCents - input.ReturnTotalCents
	outcome := &Outcome{DifferenceCents: difference}

	switch {
	case difference > 0:
		outcome.Kind = enums.SettlementCustomerPays
		if err := r.settleCustomerPays(ctx, input, difference, outcome); err != nil {
			return nil, err
		}
	case difference < 0:
		outcome.Kind = enums.SettlementCustomerRefund
		if err := r.settleCustomerRefund(ctx, input, -difference, outcome); err != nil {
			return nil, err
		}
	default:
		outcome.Kind = enums.SettlementEvenExchange
		if err := r.recordExchangeCredit(ctx, input, input.NewOrder.TotalCents, outcome); err != nil {
			return nil, err
		}
	}

	if err := r.repo.MarkOrderPaid(ctx, input.NewOrder.ID, input.NewOrder.TotalCents); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark exchange order paid")
	}
	input.NewOrder.Status = enums.OrderStatusPaid
	input.NewOrder.AmountPaidCents = input.NewOrder.TotalCents

	return outcome, nil
}

// settleCustomerPays records the extra tender plus the trade-in value applied
// as an exchange credit.
func (r *resolver) settleCustomerPays(ctx context.Context, input Input, owed int, outcome *Outcome) error {
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCash
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"payment_method": method.String()})
	}

	payment := &models.Payment{
		OrderID:     input.NewOrder.ID,
		Type:        enums.PaymentTypePayment,
		Method:      method,
		AmountCents: owed,
		ReturnID:    &input.ReturnID,
	}
	if err := r.repo.CreatePayment(ctx, payment); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record settlement payment")
	}
	outcome.Payments = append(outcome.Payments, payment)

	if input.ReturnTotalCents > 0 {
		if err := r.recordExchangeCredit(ctx, input, input.ReturnTotalCents, outcome); err != nil {
			return err
		}
	}
	return nil
}

// settleCustomerRefund covers the new order from the trade-in value and then
// issues the refund through exactly one instrument.
func (r *resolver) settleCustomerRefund(ctx context.Context, input Input, owed int, outcome *Outcome) error {
	if input.NewOrder.TotalCents > 0 {
		if err := r.recordExchangeCredit(ctx, input, input.NewOrder.TotalCents, outcome); err != nil {
			return err
		}
	}

	method := input.RefundMethod
	if method == "" {
		method = enums.RefundMethodStoreCredit
	}
	switch method {
	case enums.RefundMethodStoreCredit:
		return r.issueStoreCredit(ctx, input, owed, outcome)
	case enums.RefundMethodCash, enums.RefundMethodOriginalPayment:
		refund := &models.Payment{
			OrderID:     input.OriginalOrder.ID,
			Type:        enums.PaymentTypeRefund,
			Method:      enums.PaymentMethod(method),
			AmountCents: -owed,
			ReturnID:    &input.ReturnID,
		}
		if err := r.repo.CreatePayment(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund payment")
		}
		outcome.Payments = append(outcome.Payments, refund)
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown refund method").
			WithDetails(map[string]any{"refund_method": method.String()})
	}
}

func (r *resolver) recordExchangeCredit(ctx context.Context, input Input, amount int, outcome *Outcome) error {
	credit := &models.Payment{
		OrderID:     input.NewOrder.ID,
		Type:        enums.PaymentTypeExchangeCredit,
		Method:      enums.PaymentMethodExchangeCredit,
		AmountCents: amount,
		ReturnID:    &input.ReturnID,
	}
	if err := r.repo.CreatePayment(ctx, credit); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record exchange credit")
	}
	outcome.Payments = append(outcome.Payments, credit)
	return nil
}

// issueStoreCredit allocates a unique code, giving up with a retryable
// conflict after codeAttempts collisions.
func (r *resolver) issueStoreCredit(ctx context.Context, input Input, amount int, outcome *Outcome) error {
	var credit *models.StoreCredit
	for attempt := 0; attempt < r.codeAttempts; attempt++ {
		code, err := r.codes.StoreCreditCode()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate store credit code")
		}
		candidate := &models.StoreCredit{
			Code:                code,
			CustomerID:          input.OriginalOrder.CustomerID,
			OriginalAmountCents: amount,
			CurrentBalanceCents: amount,
			SourceType:          enums.StoreCreditSourceRefund,
			ReturnID:            &input.ReturnID,
			IssuedBy:            input.InitiatedBy,
		}
		createErr := r.repo.CreateStoreCredit(ctx, candidate)
		if createErr == nil {
			credit = candidate
			break
		}
		if !db.IsUniqueViolation(createErr, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create store credit")
		}
	}
	if credit == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique store credit code").
			WithDetails(map[string]any{"attempts": r.codeAttempts})
	}

	issue := &models.StoreCreditTransaction{
		StoreCreditID:     credit.ID,
		Type:              enums.StoreCreditTxnIssue,
		AmountCents:       amount,
		BalanceAfterCents: amount,
	}
	if err := r.repo.CreateStoreCreditTransaction(ctx, issue); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record store credit issue")
	}
	outcome.StoreCredit = credit
	return nil
}
