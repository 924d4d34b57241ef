package exchange

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/exchange/valuation"
	"github.com/tillpoint/tillpoint-backend/internal/inventory"
	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/internal/sequence"
	"github.com/tillpoint/tillpoint-backend/internal/settlement"
	"github.com/tillpoint/tillpoint-backend/internal/tax"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:exchange_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.ReturnRecord{},
		&models.ReturnLineItem{},
		&models.Payment{},
		&models.StoreCredit{},
		&models.StoreCreditTransaction{},
		&models.Product{},
		&models.InventoryLevel{},
		&models.InventoryTransaction{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	resolver, err := settlement.NewResolver(settlement.NewRepository(conn), sequence.NewGenerator(), 0)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	svc, err := NewService(
		testTxRunner{db: conn},
		NewRepository(conn),
		valuation.NewReturnValuator(valuation.NewRepository(conn)),
		valuation.NewNewItemValuator(products.NewRepository(conn)),
		inventory.NewGateway(conn),
		resolver,
		tax.NewCalculator("ON"),
		sequence.NewGenerator(),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

type fixture struct {
	order   *models.Order
	product *models.Product
}

// seedFixture creates an original order with one line of the given quantity
// and price, plus a replacement product with stock.
func seedFixture(t *testing.T, conn *gorm.DB, opts struct {
	status       enums.OrderStatus
	jurisdiction string
	exempt       bool
	qty          int
	unitPrice    int
	productPrice int
	stock        int
}) fixture {
	t.Helper()
	order := &models.Order{
		OrderNumber:     "POS-20260820-" + uuid.NewString()[:6],
		Source:          enums.OrderSourcePOS,
		Status:          opts.status,
		CustomerID:      uuid.New(),
		TaxJurisdiction: opts.jurisdiction,
		TaxExempt:       opts.exempt,
		Items: []models.OrderItem{{
			ProductID:      uuid.New(),
			Name:           "Original Item",
			Qty:            opts.qty,
			UnitPriceCents: opts.unitPrice,
			TotalCents:     opts.qty * opts.unitPrice,
		}},
	}
	order.SubtotalCents = order.Items[0].TotalCents
	order.TotalCents = order.SubtotalCents
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	product := &models.Product{
		ID:         uuid.New(),
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "Replacement Item",
		PriceCents: opts.productPrice,
		CostCents:  opts.productPrice / 2,
		Active:     true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := conn.Create(&models.InventoryLevel{ProductID: product.ID, OnHandQty: opts.stock}).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return fixture{order: order, product: product}
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	if err := conn.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func assertNoExchangeRows(t *testing.T, conn *gorm.DB) {
	t.Helper()
	if n := countRows(t, conn, &models.ReturnRecord{}); n != 0 {
		t.Fatalf("expected no return records, found %d", n)
	}
	var exchanges int64
	if err := conn.Model(&models.Order{}).Where("is_exchange = ?", true).Count(&exchanges).Error; err != nil {
		t.Fatalf("count exchange orders: %v", err)
	}
	if exchanges != 0 {
		t.Fatalf("expected no exchange orders, found %d", exchanges)
	}
	if n := countRows(t, conn, &models.InventoryTransaction{}); n != 0 {
		t.Fatalf("expected no inventory transactions, found %d", n)
	}
	if n := countRows(t, conn, &models.Payment{}); n != 0 {
		t.Fatalf("expected no payments, found %d", n)
	}
}

func TestExecuteEvenExchange(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusCompleted, jurisdiction: "ON", qty: 1, unitPrice: 50000, productPrice: 50000, stock: 5})

	result, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: fx.order.ID,
		ReturnItems: []valuation.ReturnItemInput{{
			OrderItemID: fx.order.Items[0].ID,
			Qty:         1,
			ReasonCode:  "WRONG_SIZE",
			Condition:   enums.ItemConditionResellable,
		}},
		NewItems: []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.DifferenceCents != 0 {
		t.Fatalf("expected even exchange, difference %d", result.DifferenceCents)
	}
	if result.Settlement.Kind != enums.SettlementEvenExchange {
		t.Fatalf("expected even_exchange, got %s", result.Settlement.Kind)
	}
	if result.ReturnTaxCents != 6500 || result.NewTaxCents != 6500 {
		t.Fatalf("expected 6500 tax per leg, got %d/%d", result.ReturnTaxCents, result.NewTaxCents)
	}
	if result.NewTotalCents != 56500 {
		t.Fatalf("expected new total 56500, got %d", result.NewTotalCents)
	}

	var order models.Order
	if err := conn.Preload("Payments").First(&order, "id = ?", result.NewOrder.ID).Error; err != nil {
		t.Fatalf("load new order: %v", err)
	}
	if order.Status != enums.OrderStatusPaid || order.AmountPaidCents != order.TotalCents {
		t.Fatalf("expected paid in full, got %+v", order)
	}
	if len(order.Payments) != 1 || order.Payments[0].Type != enums.PaymentTypeExchangeCredit || order.Payments[0].AmountCents != 56500 {
		t.Fatalf("expected single exchange credit of 56500, got %+v", order.Payments)
	}

	var record models.ReturnRecord
	if err := conn.First(&record, "id = ?", result.ReturnRecord.ID).Error; err != nil {
		t.Fatalf("load return record: %v", err)
	}
	if record.Status != enums.ReturnStatusCompleted {
		t.Fatalf("expected completed return, got %s", record.Status)
	}
	if record.ExchangeOrderID == nil || *record.ExchangeOrderID != order.ID {
		t.Fatal("return record not linked to exchange order")
	}
}

func TestExecuteCustomerPaysCash(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusPaid, jurisdiction: "ON", exempt: true, qty: 1, unitPrice: 30000, productPrice: 80000, stock: 2})

	result, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: fx.order.ID,
		ReturnItems: []valuation.ReturnItemInput{{
			OrderItemID: fx.order.Items[0].ID,
			Qty:         1,
			ReasonCode:  "WRONG_ITEM",
			Condition:   enums.ItemConditionResellable,
		}},
		NewItems:      []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
		PaymentMethod: enums.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.DifferenceCents != 50000 {
		t.Fatalf("expected difference 50000, got %d", result.DifferenceCents)
	}
	if result.Settlement.Kind != enums.SettlementCustomerPays {
		t.Fatalf("expected customer_pays, got %s", result.Settlement.Kind)
	}

	var payments []models.Payment
	if err := conn.Where("order_id = ?", result.NewOrder.ID).Order("amount_cents DESC").Find(&payments).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
	if payments[0].Method != enums.PaymentMethodCash || payments[0].AmountCents != 50000 {
		t.Fatalf("unexpected cash payment %+v", payments[0])
	}
	if payments[1].Type != enums.PaymentTypeExchangeCredit || payments[1].AmountCents != 30000 {
		t.Fatalf("unexpected exchange credit %+v", payments[1])
	}

	var order models.Order
	if err := conn.First(&order, "id = ?", result.NewOrder.ID).Error; err != nil {
		t.Fatalf("load new order: %v", err)
	}
	if order.Status != enums.OrderStatusPaid || order.AmountPaidCents != order.TotalCents {
		t.Fatalf("expected paid in full, got %+v", order)
	}
}

func TestExecuteCustomerRefundStoreCredit(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusFulfilled, jurisdiction: "ON", exempt: true, qty: 1, unitPrice: 80000, productPrice: 30000, stock: 2})

	result, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: fx.order.ID,
		ReturnItems: []valuation.ReturnItemInput{{
			OrderItemID: fx.order.Items[0].ID,
			Qty:         1,
			ReasonCode:  "CHANGED_MIND",
			Condition:   enums.ItemConditionResellable,
		}},
		NewItems:     []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
		RefundMethod: enums.RefundMethodStoreCredit,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.DifferenceCents != -50000 {
		t.Fatalf("expected difference -50000, got %d", result.DifferenceCents)
	}
	if result.Settlement.StoreCredit == nil {
		t.Fatal("expected store credit")
	}

	var credit models.StoreCredit
	if err := conn.Preload("Transactions").First(&credit, "id = ?", result.Settlement.StoreCredit.ID).Error; err != nil {
		t.Fatalf("load credit: %v", err)
	}
	if credit.CurrentBalanceCents != 50000 || credit.OriginalAmountCents != 50000 {
		t.Fatalf("unexpected credit %+v", credit)
	}
	if credit.CustomerID != fx.order.CustomerID {
		t.Fatal("credit issued to the wrong customer")
	}
	if len(credit.Transactions) != 1 || credit.Transactions[0].Type != enums.StoreCreditTxnIssue {
		t.Fatalf("expected one issue entry, got %+v", credit.Transactions)
	}

	var exchangeCredit models.Payment
	if err := conn.First(&exchangeCredit, "order_id = ? AND type = ?", result.NewOrder.ID, enums.PaymentTypeExchangeCredit).Error; err != nil {
		t.Fatalf("load exchange credit: %v", err)
	}
	if exchangeCredit.AmountCents != 30000 {
		t.Fatalf("expected exchange credit of 30000, got %d", exchangeCredit.AmountCents)
	}

	var record models.ReturnRecord
	if err := conn.First(&record, "id = ?", result.ReturnRecord.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.RefundMethod == nil || *record.RefundMethod != enums.RefundMethodStoreCredit {
		t.Fatalf("expected refund method recorded, got %+v", record.RefundMethod)
	}
}

func TestExecuteRejectsOverReturn(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusCompleted, jurisdiction: "ON", qty: 2, unitPrice: 1000, productPrice: 1000, stock: 5})

	_, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: fx.order.ID,
		ReturnItems: []valuation.ReturnItemInput{{
			OrderItemID: fx.order.Items[0].ID,
			Qty:         3,
			ReasonCode:  "WRONG_SIZE",
		}},
		NewItems: []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	assertNoExchangeRows(t, conn)
}

func TestExecuteRejectsIneligibleOrder(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusDraft, jurisdiction: "ON", qty: 1, unitPrice: 1000, productPrice: 1000, stock: 5})

	_, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: fx.order.ID,
		ReturnItems: []valuation.ReturnItemInput{{
			OrderItemID: fx.order.Items[0].ID,
			Qty:         1,
			ReasonCode:  "WRONG_SIZE",
		}},
		NewItems: []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	assertNoExchangeRows(t, conn)
}

func TestExecuteUnknownOrderIsNotFound(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)

	_, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: uuid.New(),
		ReturnItems:     []valuation.ReturnItemInput{{OrderItemID: uuid.New(), Qty: 1, ReasonCode: "X"}},
		NewItems:        []valuation.NewItemInput{{ProductID: uuid.New(), Qty: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

// Atomicity: an insufficient-stock failure on the sale leg must leave no trace
// of the attempt, including the already-applied return-leg restock.
func TestExecuteRollsBackOnDeductFailure(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusCompleted, jurisdiction: "ON", qty: 1, unitPrice: 1000, productPrice: 1000, stock: 0})

	_, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: fx.order.ID,
		ReturnItems: []valuation.ReturnItemInput{{
			OrderItemID: fx.order.Items[0].ID,
			Qty:         1,
			ReasonCode:  "WRONG_SIZE",
			Condition:   enums.ItemConditionResellable,
		}},
		NewItems: []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	assertNoExchangeRows(t, conn)

	// The restock applied mid-transaction must have been rolled back too.
	var level models.InventoryLevel
	if err := conn.First(&level, "product_id = ?", fx.product.ID).Error; err != nil {
		t.Fatalf("load level: %v", err)
	}
	if level.OnHandQty != 0 {
		t.Fatalf("expected stock untouched after rollback, got %d", level.OnHandQty)
	}
}

// Quantity conservation: sequential exchanges against the same item never
// exceed the purchased quantity.
func TestExecuteQuantityConservationAcrossExchanges(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusCompleted, jurisdiction: "ON", qty: 2, unitPrice: 1000, productPrice: 1000, stock: 10})
	ctx := context.Background()

	run := func(qty int) error {
		_, err := svc.Execute(ctx, ExecuteInput{
			OriginalOrderID: fx.order.ID,
			ReturnItems: []valuation.ReturnItemInput{{
				OrderItemID: fx.order.Items[0].ID,
				Qty:         qty,
				ReasonCode:  "WRONG_SIZE",
				Condition:   enums.ItemConditionResellable,
			}},
			NewItems: []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
		})
		return err
	}

	if err := run(1); err != nil {
		t.Fatalf("first exchange: %v", err)
	}
	if err := run(1); err != nil {
		t.Fatalf("second exchange: %v", err)
	}
	if err := run(1); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("third exchange must exceed returnable quantity, got %v", err)
	}

	var returned int64
	if err := conn.Model(&models.ReturnLineItem{}).
		Select("COALESCE(SUM(qty), 0)").
		Where("order_item_id = ?", fx.order.Items[0].ID).
		Scan(&returned).Error; err != nil {
		t.Fatalf("sum returned: %v", err)
	}
	if returned != 2 {
		t.Fatalf("expected 2 units returned in total, got %d", returned)
	}
}

// Tax rounding: identical pre-tax totals produce identical tax regardless of
// line composition.
func TestExecuteTaxComputedPerLeg(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)

	order := &models.Order{
		OrderNumber:     "POS-20260820-" + uuid.NewString()[:6],
		Source:          enums.OrderSourcePOS,
		Status:          enums.OrderStatusCompleted,
		CustomerID:      uuid.New(),
		TaxJurisdiction: "ON",
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Name: "A", Qty: 1, UnitPriceCents: 50, TotalCents: 50},
			{ProductID: uuid.New(), Name: "B", Qty: 1, UnitPriceCents: 50, TotalCents: 50},
			{ProductID: uuid.New(), Name: "C", Qty: 1, UnitPriceCents: 50, TotalCents: 50},
		},
		SubtotalCents: 150,
		TotalCents:    150,
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	product := &models.Product{ID: uuid.New(), SKU: "SKU-LEG", Name: "Leg", PriceCents: 150, Active: true}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := conn.Create(&models.InventoryLevel{ProductID: product.ID, OnHandQty: 5}).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	result, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: order.ID,
		ReturnItems: []valuation.ReturnItemInput{
			{OrderItemID: order.Items[0].ID, Qty: 1, ReasonCode: "X"},
			{OrderItemID: order.Items[1].ID, Qty: 1, ReasonCode: "X"},
			{OrderItemID: order.Items[2].ID, Qty: 1, ReasonCode: "X"},
		},
		NewItems: []valuation.NewItemInput{{ProductID: product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	// 150 * 0.13 = 19.5 rounds to 20 once per leg; per-line rounding would
	// have produced 21 on the return leg.
	if result.ReturnTaxCents != 20 || result.NewTaxCents != 20 {
		t.Fatalf("expected 20/20 tax, got %d/%d", result.ReturnTaxCents, result.NewTaxCents)
	}
	if result.DifferenceCents != 0 {
		t.Fatalf("identical totals must settle even, got %d", result.DifferenceCents)
	}
}

func TestGetByReturnID(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusCompleted, jurisdiction: "ON", qty: 1, unitPrice: 2000, productPrice: 3000, stock: 5})
	ctx := context.Background()

	executed, err := svc.Execute(ctx, ExecuteInput{
		OriginalOrderID: fx.order.ID,
		ReturnItems: []valuation.ReturnItemInput{{
			OrderItemID: fx.order.Items[0].ID,
			Qty:         1,
			ReasonCode:  "WRONG_SIZE",
			Condition:   enums.ItemConditionResellable,
		}},
		NewItems: []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	loaded, err := svc.GetByReturnID(ctx, executed.ReturnRecord.ID)
	if err != nil {
		t.Fatalf("get by return id: %v", err)
	}
	if loaded.ReturnRecord.ReturnNumber != executed.ReturnRecord.ReturnNumber {
		t.Fatal("return number mismatch")
	}
	if len(loaded.ReturnRecord.Items) != 1 || len(loaded.NewOrder.Items) != 1 {
		t.Fatalf("expected line items on both sides, got %d/%d", len(loaded.ReturnRecord.Items), len(loaded.NewOrder.Items))
	}
	if len(loaded.NewOrder.Payments) == 0 {
		t.Fatal("expected payments on the exchange order")
	}
	if loaded.DifferenceCents != executed.DifferenceCents {
		t.Fatalf("difference mismatch %d vs %d", loaded.DifferenceCents, executed.DifferenceCents)
	}

	if _, err := svc.GetByReturnID(ctx, uuid.New()); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

// restoreFailingGateway delegates sale-leg deductions to the real gateway but
// rejects every return-leg restock.
type restoreFailingGateway struct {
	inner inventory.Gateway
}

func (g restoreFailingGateway) WithTx(tx *gorm.DB) inventory.Gateway {
	return restoreFailingGateway{inner: g.inner.WithTx(tx)}
}

func (g restoreFailingGateway) RestoreFromReturn(ctx context.Context, disposition enums.Disposition, m inventory.Movement) error {
	return stderrors.New("stock adjustment rejected")
}

func (g restoreFailingGateway) DeductForSale(ctx context.Context, m inventory.Movement) error {
	return g.inner.DeductForSale(ctx, m)
}

// The return-leg restock is advisory: a stock hiccup gets logged and the
// exchange still commits in full.
func TestExecuteCommitsWhenRestockFails(t *testing.T) {
	conn := newTestDB(t)
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})
	resolver, err := settlement.NewResolver(settlement.NewRepository(conn), sequence.NewGenerator(), 0)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	svc, err := NewService(
		testTxRunner{db: conn},
		NewRepository(conn),
		valuation.NewReturnValuator(valuation.NewRepository(conn)),
		valuation.NewNewItemValuator(products.NewRepository(conn)),
		restoreFailingGateway{inner: inventory.NewGateway(conn)},
		resolver,
		tax.NewCalculator("ON"),
		sequence.NewGenerator(),
		logg,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	fx := seedFixture(t, conn, struct {
		status       enums.OrderStatus
		jurisdiction string
		exempt       bool
		qty          int
		unitPrice    int
		productPrice int
		stock        int
	}{status: enums.OrderStatusCompleted, jurisdiction: "ON", exempt: true, qty: 1, unitPrice: 1000, productPrice: 1000, stock: 1})

	result, err := svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: fx.order.ID,
		ReturnItems: []valuation.ReturnItemInput{{
			OrderItemID: fx.order.Items[0].ID,
			Qty:         1,
			ReasonCode:  "WRONG_SIZE",
			Condition:   enums.ItemConditionResellable,
		}},
		NewItems: []valuation.NewItemInput{{ProductID: fx.product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var record models.ReturnRecord
	if err := conn.First(&record, "id = ?", result.ReturnRecord.ID).Error; err != nil {
		t.Fatalf("load return: %v", err)
	}
	if record.Status != enums.ReturnStatusCompleted {
		t.Fatalf("expected completed return, got %s", record.Status)
	}
	var order models.Order
	if err := conn.First(&order, "id = ?", result.NewOrder.ID).Error; err != nil {
		t.Fatalf("load new order: %v", err)
	}
	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid exchange order, got %s", order.Status)
	}

	// The sale-leg deduction still applied even though the restock did not.
	var level models.InventoryLevel
	if err := conn.First(&level, "product_id = ?", fx.product.ID).Error; err != nil {
		t.Fatalf("load level: %v", err)
	}
	if level.OnHandQty != 0 {
		t.Fatalf("expected sale deduction to stand, got %d on hand", level.OnHandQty)
	}

	if !strings.Contains(logs.String(), "inventory restore failed") {
		t.Fatalf("expected restock failure warning, got logs: %s", logs.String())
	}
}

// lockedOrderRepo simulates Postgres refusing the row lock on the original
// order.
type lockedOrderRepo struct {
	Repository
	err error
}

func (r lockedOrderRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r lockedOrderRepo) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, r.err
}

func TestExecuteLockContentionIsRetryableConflict(t *testing.T) {
	conn := newTestDB(t)
	resolver, err := settlement.NewResolver(settlement.NewRepository(conn), sequence.NewGenerator(), 0)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	lockErr := fmt.Errorf("lock order row: %w", &pgconn.PgError{
		Code:    "55P03",
		Message: "canceling statement due to lock timeout",
	})
	svc, err := NewService(
		testTxRunner{db: conn},
		lockedOrderRepo{err: lockErr},
		valuation.NewReturnValuator(valuation.NewRepository(conn)),
		valuation.NewNewItemValuator(products.NewRepository(conn)),
		inventory.NewGateway(conn),
		resolver,
		tax.NewCalculator("ON"),
		sequence.NewGenerator(),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Execute(context.Background(), ExecuteInput{
		OriginalOrderID: uuid.New(),
		ReturnItems:     []valuation.ReturnItemInput{{OrderItemID: uuid.New(), Qty: 1, ReasonCode: "WRONG_ITEM"}},
		NewItems:        []valuation.NewItemInput{{ProductID: uuid.New(), Qty: 1}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !pkgerrors.MetadataFor(typed.Code()).Retryable {
		t.Fatal("expected lock contention to be retryable")
	}
}
