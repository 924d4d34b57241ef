package valuation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:valuation_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.ReturnRecord{},
		&models.ReturnLineItem{},
		&models.Product{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedOrderWithItems(t *testing.T, conn *gorm.DB) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber: "POS-20260820-" + uuid.NewString()[:6],
		Source:      enums.OrderSourcePOS,
		Status:      enums.OrderStatusCompleted,
		CustomerID:  uuid.New(),
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Name: "Red Shirt M", Qty: 3, UnitPriceCents: 2999, TotalCents: 8997},
			{ProductID: uuid.New(), Name: "Blue Jeans 32", Qty: 1, UnitPriceCents: 5999, TotalCents: 5999},
		},
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func seedPriorReturn(t *testing.T, conn *gorm.DB, order *models.Order, orderItemID uuid.UUID, qty int, status enums.ReturnStatus) {
	t.Helper()
	record := &models.ReturnRecord{
		ReturnNumber: "RET-20260820-" + uuid.NewString()[:6],
		OrderID:      order.ID,
		ReturnType:   enums.ReturnTypeRefund,
		Status:       status,
		Items: []models.ReturnLineItem{{
			OrderItemID:       orderItemID,
			ProductID:         uuid.New(),
			Qty:               qty,
			UnitPriceCents:    2999,
			RefundAmountCents: 2999 * qty,
			Condition:         enums.ItemConditionResellable,
			ReasonCode:        "CHANGED_MIND",
			Disposition:       enums.DispositionReturnToStock,
		}},
	}
	if err := conn.Create(record).Error; err != nil {
		t.Fatalf("seed prior return: %v", err)
	}
}

func TestReturnValuatorHappyPath(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewReturnValuator(NewRepository(conn))
	order := seedOrderWithItems(t, conn)
	notes := "seam split"

	valuation, err := valuator.Valuate(context.Background(), order, []ReturnItemInput{
		{OrderItemID: order.Items[0].ID, Qty: 2, ReasonCode: "WRONG_SIZE", Condition: enums.ItemConditionResellable},
		{OrderItemID: order.Items[1].ID, Qty: 1, ReasonCode: "DAMAGED", ReasonNotes: &notes, Condition: enums.ItemConditionDamaged},
	})
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	if valuation.SubtotalCents != 2*2999+5999 {
		t.Fatalf("unexpected subtotal %d", valuation.SubtotalCents)
	}
	if valuation.Lines[0].Disposition != enums.DispositionReturnToStock {
		t.Fatalf("expected return_to_stock, got %s", valuation.Lines[0].Disposition)
	}
	if valuation.Lines[1].Disposition != enums.DispositionClearance {
		t.Fatalf("expected clearance, got %s", valuation.Lines[1].Disposition)
	}
	if valuation.Lines[0].RefundAmountCents != 5998 {
		t.Fatalf("unexpected refund %d", valuation.Lines[0].RefundAmountCents)
	}
}

func TestReturnValuatorDefaultsConditionToOther(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewReturnValuator(NewRepository(conn))
	order := seedOrderWithItems(t, conn)

	valuation, err := valuator.Valuate(context.Background(), order, []ReturnItemInput{
		{OrderItemID: order.Items[0].ID, Qty: 1, ReasonCode: "OTHER"},
	})
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	if valuation.Lines[0].Condition != enums.ItemConditionOther {
		t.Fatalf("expected other, got %s", valuation.Lines[0].Condition)
	}
	if valuation.Lines[0].Disposition != enums.DispositionDispose {
		t.Fatalf("expected dispose, got %s", valuation.Lines[0].Disposition)
	}
}

func TestReturnValuatorRejectsForeignItem(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewReturnValuator(NewRepository(conn))
	order := seedOrderWithItems(t, conn)

	_, err := valuator.Valuate(context.Background(), order, []ReturnItemInput{
		{OrderItemID: uuid.New(), Qty: 1, ReasonCode: "WRONG_SIZE"},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReturnValuatorQuantityBounds(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewReturnValuator(NewRepository(conn))
	order := seedOrderWithItems(t, conn)
	ctx := context.Background()

	for _, qty := range []int{0, -1, 4} {
		_, err := valuator.Valuate(ctx, order, []ReturnItemInput{
			{OrderItemID: order.Items[0].ID, Qty: qty, ReasonCode: "WRONG_SIZE"},
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("qty %d: expected validation error, got %v", qty, err)
		}
	}
}

func TestReturnValuatorEnforcesAlreadyReturned(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewReturnValuator(NewRepository(conn))
	order := seedOrderWithItems(t, conn)
	ctx := context.Background()

	seedPriorReturn(t, conn, order, order.Items[0].ID, 2, enums.ReturnStatusCompleted)

	// Only one of three units remains returnable.
	if _, err := valuator.Valuate(ctx, order, []ReturnItemInput{
		{OrderItemID: order.Items[0].ID, Qty: 2, ReasonCode: "WRONG_SIZE"},
	}); pkgerrors.As(err) == nil {
		t.Fatalf("expected over-return to fail, got %v", err)
	}

	if _, err := valuator.Valuate(ctx, order, []ReturnItemInput{
		{OrderItemID: order.Items[0].ID, Qty: 1, ReasonCode: "WRONG_SIZE"},
	}); err != nil {
		t.Fatalf("expected remaining unit to be returnable: %v", err)
	}
}

func TestReturnValuatorIgnoresCancelledAndRejectedReturns(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewReturnValuator(NewRepository(conn))
	order := seedOrderWithItems(t, conn)

	seedPriorReturn(t, conn, order, order.Items[0].ID, 3, enums.ReturnStatusCancelled)
	seedPriorReturn(t, conn, order, order.Items[0].ID, 3, enums.ReturnStatusRejected)

	if _, err := valuator.Valuate(context.Background(), order, []ReturnItemInput{
		{OrderItemID: order.Items[0].ID, Qty: 3, ReasonCode: "WRONG_SIZE"},
	}); err != nil {
		t.Fatalf("cancelled/rejected returns must not consume quantity: %v", err)
	}
}

func TestReturnValuatorCountsDuplicatesWithinRequest(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewReturnValuator(NewRepository(conn))
	order := seedOrderWithItems(t, conn)

	_, err := valuator.Valuate(context.Background(), order, []ReturnItemInput{
		{OrderItemID: order.Items[0].ID, Qty: 2, ReasonCode: "WRONG_SIZE"},
		{OrderItemID: order.Items[0].ID, Qty: 2, ReasonCode: "WRONG_SIZE"},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected duplicate entries to exceed quantity, got %v", err)
	}
}

func TestNewItemValuator(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewNewItemValuator(products.NewRepository(conn))
	ctx := context.Background()

	product := &models.Product{
		ID:         uuid.New(),
		SKU:        "SKU-GRN-L",
		Name:       "Green Shirt L",
		PriceCents: 3499,
		CostCents:  1400,
		Active:     true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	override := 2999
	valuation, err := valuator.Valuate(ctx, []NewItemInput{
		{ProductID: product.ID, Qty: 2},
		{ProductID: product.ID, Qty: 1, UnitPriceCents: &override},
	})
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	if valuation.SubtotalCents != 2*3499+2999 {
		t.Fatalf("unexpected subtotal %d", valuation.SubtotalCents)
	}
	if valuation.Lines[0].UnitCostCents != 1400 || valuation.Lines[1].UnitCostCents != 1400 {
		t.Fatalf("expected cost snapshot 1400, got %+v", valuation.Lines)
	}
	if valuation.Lines[1].UnitPriceCents != 2999 {
		t.Fatalf("expected override to win, got %d", valuation.Lines[1].UnitPriceCents)
	}
}

func TestNewItemValuatorFailures(t *testing.T) {
	conn := newTestDB(t)
	valuator := NewNewItemValuator(products.NewRepository(conn))
	ctx := context.Background()

	if _, err := valuator.Valuate(ctx, nil); pkgerrors.As(err) == nil {
		t.Fatalf("expected empty input to fail, got %v", err)
	}

	_, err := valuator.Valuate(ctx, []NewItemInput{{ProductID: uuid.New(), Qty: 1}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = valuator.Valuate(ctx, []NewItemInput{{ProductID: uuid.Nil, Qty: 1}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = valuator.Valuate(ctx, []NewItemInput{{ProductID: uuid.New(), Qty: 0}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for qty, got %v", err)
	}
}
