package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/api/responses"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	exchangesvc "github.com/tillpoint/tillpoint-backend/internal/exchange"
	"github.com/tillpoint/tillpoint-backend/internal/exchange/valuation"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
)

// ExecuteExchange handles the atomic return-and-repurchase flow.
func ExecuteExchange(svc exchangesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange service unavailable"))
			return
		}

		var payload exchangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newExchangeResponse(result))
	}
}

// GetExchange loads a completed exchange by its return record id.
func GetExchange(svc exchangesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange service unavailable"))
			return
		}

		returnID, err := uuid.Parse(chi.URLParam(r, "returnID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid return id"))
			return
		}

		result, err := svc.GetByReturnID(r.Context(), returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newExchangeResponse(result))
	}
}

type exchangeRequest struct {
	OriginalOrderID uuid.UUID           `json:"original_order_id" validate:"required,uuid"`
	ReturnItems     []returnItemRequest `json:"return_items" validate:"required,min=1,dive"`
	NewItems        []newItemRequest    `json:"new_items" validate:"required,min=1,dive"`
	PaymentMethod   string              `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card store_credit"`
	RefundMethod    string              `json:"refund_method,omitempty" validate:"omitempty,oneof=store_credit cash original_payment"`
	Notes           *string             `json:"notes,omitempty" validate:"omitempty,max=2000"`
	InitiatedBy     *uuid.UUID          `json:"initiated_by,omitempty" validate:"omitempty,uuid"`
}

type returnItemRequest struct {
	OrderItemID uuid.UUID `json:"order_item_id" validate:"required,uuid"`
	Qty         int       `json:"qty" validate:"required,min=1"`
	Condition   string    `json:"condition,omitempty" validate:"omitempty,oneof=resellable damaged defective other"`
	ReasonCode  string    `json:"reason_code" validate:"required,max=64"`
	ReasonNotes *string   `json:"reason_notes,omitempty" validate:"omitempty,max=2000"`
}

type newItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required,uuid"`
	Qty            int       `json:"qty" validate:"required,min=1"`
	UnitPriceCents *int      `json:"unit_price_cents,omitempty" validate:"omitempty,min=0"`
}

func (req exchangeRequest) toInput() exchangesvc.ExecuteInput {
	returnItems := make([]valuation.ReturnItemInput, 0, len(req.ReturnItems))
	for _, item := range req.ReturnItems {
		returnItems = append(returnItems, valuation.ReturnItemInput{
			OrderItemID: item.OrderItemID,
			Qty:         item.Qty,
			Condition:   enums.ItemCondition(item.Condition),
			ReasonCode:  item.ReasonCode,
			ReasonNotes: item.ReasonNotes,
		})
	}
	newItems := make([]valuation.NewItemInput, 0, len(req.NewItems))
	for _, item := range req.NewItems {
		newItems = append(newItems, valuation.NewItemInput{
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return exchangesvc.ExecuteInput{
		OriginalOrderID: req.OriginalOrderID,
		ReturnItems:     returnItems,
		NewItems:        newItems,
		PaymentMethod:   enums.PaymentMethod(req.PaymentMethod),
		RefundMethod:    enums.RefundMethod(req.RefundMethod),
		Notes:           req.Notes,
		InitiatedBy:     req.InitiatedBy,
	}
}

type exchangeResponse struct {
	ReturnID        uuid.UUID               `json:"return_id"`
	ReturnNumber    string                  `json:"return_number"`
	ReturnStatus    string                  `json:"return_status"`
	OrderID         uuid.UUID               `json:"order_id"`
	OrderNumber     string                  `json:"order_number"`
	OrderStatus     string                  `json:"order_status"`
	ReturnedItems   []returnedItemResponse  `json:"returned_items"`
	NewItems        []orderItemResponse     `json:"new_items"`
	ReturnValue     legBreakdown            `json:"return_value"`
	NewValue        legBreakdown            `json:"new_value"`
	DifferenceCents int                     `json:"difference_cents"`
	Settlement      settlementResponse `json:"settlement"`
}

type legBreakdown struct {
	SubtotalCents int `json:"subtotal_cents"`
	TaxCents      int `json:"tax_cents"`
	TotalCents    int `json:"total_cents"`
}

type returnedItemResponse struct {
	OrderItemID       uuid.UUID `json:"order_item_id"`
	ProductID         uuid.UUID `json:"product_id"`
	Qty               int       `json:"qty"`
	UnitPriceCents    int       `json:"unit_price_cents"`
	RefundAmountCents int       `json:"refund_amount_cents"`
	Condition         string    `json:"condition"`
	Disposition       string    `json:"disposition"`
	ReasonCode        string    `json:"reason_code"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Qty            int       `json:"qty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	TotalCents     int       `json:"total_cents"`
}

type settlementResponse struct {
	Kind        string              `json:"kind,omitempty"`
	Payments    []paymentResponse   `json:"payments,omitempty"`
	StoreCredit *storeCreditSummary `json:"store_credit,omitempty"`
}

type paymentResponse struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	Type        string    `json:"type"`
	Method      string    `json:"method"`
	AmountCents int       `json:"amount_cents"`
}

type storeCreditSummary struct {
	StoreCreditID uuid.UUID `json:"store_credit_id"`
	Code          string    `json:"code"`
	AmountCents   int       `json:"amount_cents"`
	BalanceCents  int       `json:"balance_cents"`
}

func newExchangeResponse(result *exchangesvc.Result) exchangeResponse {
	if result == nil {
		return exchangeResponse{}
	}

	resp := exchangeResponse{
		ReturnValue: legBreakdown{
			SubtotalCents: result.ReturnSubtotalCents,
			TaxCents:      result.ReturnTaxCents,
			TotalCents:    result.ReturnTotalCents,
		},
		NewValue: legBreakdown{
			SubtotalCents: result.NewSubtotalCents,
			TaxCents:      result.NewTaxCents,
			TotalCents:    result.NewTotalCents,
		},
		DifferenceCents: result.DifferenceCents,
	}

	if record := result.ReturnRecord; record != nil {
		resp.ReturnID = record.ID
		resp.ReturnNumber = record.ReturnNumber
		resp.ReturnStatus = record.Status.String()
		resp.ReturnedItems = make([]returnedItemResponse, 0, len(record.Items))
		for _, item := range record.Items {
			resp.ReturnedItems = append(resp.ReturnedItems, returnedItemResponse{
				OrderItemID:       item.OrderItemID,
				ProductID:         item.ProductID,
				Qty:               item.Qty,
				UnitPriceCents:    item.UnitPriceCents,
				RefundAmountCents: item.RefundAmountCents,
				Condition:         item.Condition.String(),
				Disposition:       item.Disposition.String(),
				ReasonCode:        item.ReasonCode,
			})
		}
	}

	if order := result.NewOrder; order != nil {
		resp.OrderID = order.ID
		resp.OrderNumber = order.OrderNumber
		resp.OrderStatus = order.Status.String()
		resp.NewItems = make([]orderItemResponse, 0, len(order.Items))
		for _, item := range order.Items {
			resp.NewItems = append(resp.NewItems, orderItemResponse{
				ProductID:      item.ProductID,
				Name:           item.Name,
				Qty:            item.Qty,
				UnitPriceCents: item.UnitPriceCents,
				TotalCents:     item.TotalCents,
			})
		}
	}

	if outcome := result.Settlement; outcome != nil {
		resp.Settlement.Kind = outcome.Kind.String()
		resp.Settlement.Payments = make([]paymentResponse, 0, len(outcome.Payments))
		for _, payment := range outcome.Payments {
			resp.Settlement.Payments = append(resp.Settlement.Payments, newPaymentResponse(payment))
		}
		if credit := outcome.StoreCredit; credit != nil {
			resp.Settlement.StoreCredit = &storeCreditSummary{
				StoreCreditID: credit.ID,
				Code:          credit.Code,
				AmountCents:   credit.OriginalAmountCents,
				BalanceCents:  credit.CurrentBalanceCents,
			}
		}
	} else if result.NewOrder != nil {
		resp.Settlement = settlementFromPayments(result.NewOrder.Payments, result.DifferenceCents)
	}

	return resp
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	if payment == nil {
		return paymentResponse{}
	}
	return paymentResponse{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		Type:        payment.Type.String(),
		Method:      payment.Method.String(),
		AmountCents: payment.AmountCents,
	}
}

// settlementFromPayments rebuilds the settlement view for lookups, where only
// the persisted payment rows survive.
func settlementFromPayments(payments []models.Payment, differenceCents int) settlementResponse {
	resp := settlementResponse{Kind: settlementKindFor(differenceCents).String()}
	resp.Payments = make([]paymentResponse, 0, len(payments))
	for i := range payments {
		resp.Payments = append(resp.Payments, newPaymentResponse(&payments[i]))
	}
	return resp
}

func settlementKindFor(differenceCents int) enums.SettlementKind {
	switch {
	case differenceCents > 0:
		return enums.SettlementCustomerPays
	case differenceCents < 0:
		return enums.SettlementCustomerRefund
	default:
		return enums.SettlementEvenExchange
	}
}
