package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/core/tx"
	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/cash"
	"tradeledger/internal/domain/catalog"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/domain/reports"
	"tradeledger/internal/domain/warehouse"
)

type staticSource []catalog.Product

func (s staticSource) Load(context.Context) ([]catalog.Product, error) {
	return s, nil
}

// stubReportRepo returns canned stock rows and zeroes for everything else.
type stubReportRepo struct {
	stock []warehouse.StockCount
}

func (s *stubReportRepo) SupplyMovements(context.Context, time.Time, time.Time) ([]reports.MovementLine, error) {
	return nil, nil
}

func (s *stubReportRepo) SalesMovements(context.Context, time.Time, time.Time) ([]reports.MovementLine, error) {
	return nil, nil
}

func (s *stubReportRepo) CashSums(context.Context, time.Time) (types.Money, types.Money, error) {
	return types.Zero(), types.Zero(), nil
}

func (s *stubReportRepo) StockValue(context.Context) (types.Money, error) {
	return types.Zero(), nil
}

func (s *stubReportRepo) StockCounts(context.Context) ([]warehouse.StockCount, error) {
	return s.stock, nil
}

func (s *stubReportRepo) Expenses(context.Context, time.Time, time.Time) ([]reports.ExpenseLine, error) {
	return nil, nil
}

func (s *stubReportRepo) ExpensesByMonth(context.Context, int) ([]reports.MonthlyExpense, error) {
	return nil, nil
}

type testEnv struct {
	engine    *Engine
	units     *warehouse.MemoryUnitRepository
	suppliers *orders.MemorySupplierRepository
	clients   *orders.MemoryClientRepository
	cashRepo  *cash.MemoryRepository
	orders    *orders.Service
	stock     *stubReportRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	units := warehouse.NewMemoryUnitRepository()
	suppliers := orders.NewMemorySupplierRepository()
	clients := orders.NewMemoryClientRepository()
	counterparties := orders.NewMemoryCounterpartyRepository()
	cashRepo := cash.NewMemoryRepository()

	reconciler := warehouse.NewReconciler(units, tx.Nop())
	orderSvc := orders.NewService(
		suppliers, clients, counterparties, cashRepo, reconciler,
		orders.NewMemoryNumbering(), tx.Nop())
	cashSvc := cash.NewService(cashRepo, tx.Nop())
	stock := &stubReportRepo{}
	reportSvc := reports.NewService(stock)
	directory := catalog.NewDirectory(staticSource{
		{Code: "W1", Name: "Widget"},
		{Code: "G1", Name: "Gadget"},
		{Code: "G2", Name: "Gizmo"},
	})

	engine := NewEngine(orderSvc, cashSvc, reportSvc, directory)
	engine.now = func() time.Time {
		return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	}

	return &testEnv{
		engine:    engine,
		units:     units,
		suppliers: suppliers,
		clients:   clients,
		cashRepo:  cashRepo,
		orders:    orderSvc,
		stock:     stock,
	}
}

const testUser int64 = 42

func (env *testEnv) text(t *testing.T, text string) Prompt {
	t.Helper()
	return env.engine.Handle(context.Background(), Event{UserID: testUser, Text: text})
}

func (env *testEnv) press(t *testing.T, callback string) Prompt {
	t.Helper()
	return env.engine.Handle(context.Background(), Event{UserID: testUser, Callback: callback})
}

func TestEngineCancelDiscardsFlow(t *testing.T) {
	env := newTestEnv(t)

	p := env.press(t, MenuNewSupplier)
	require.Contains(t, p.Text, "date")

	p = env.press(t, CallbackCancel)
	assert.Contains(t, p.Text, "Cancelled")

	// No draft was written and the next event lands on the menu.
	assert.Zero(t, env.units.Len())
	p = env.text(t, "stray input")
	assert.Contains(t, p.Text, "What would you like to do?")
}

func TestEngineRecoverableErrorRepeatsQuestion(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuNewSupplier)
	env.press(t, cbDateToday)
	env.text(t, "Acme")
	env.text(t, "widget")

	p := env.text(t, "not a number")
	require.Contains(t, p.Text, "quantity")
	assert.False(t, p.Terminal)

	// The flow survived and accepts the corrected input.
	p = env.text(t, "3")
	assert.Contains(t, p.Text, "price")
}

func TestEngineUnknownCallbackShowsMenu(t *testing.T) {
	env := newTestEnv(t)
	p := env.press(t, "no-such-action")
	assert.Contains(t, p.Text, "What would you like to do?")
}

func TestEngineWarehouseView(t *testing.T) {
	env := newTestEnv(t)
	env.stock.stock = []warehouse.StockCount{
		{ProductName: "Widget", InStock: 3},
		{ProductName: "Gadget", InStock: 1},
	}

	p := env.press(t, MenuWarehouse)
	assert.Contains(t, p.Text, "Widget: 3 pcs")
	assert.Contains(t, p.Text, "Total 4 unit(s)")
	// Single-shot view, the menu is offered again.
	assert.Contains(t, p.Text, "What would you like to do?")
}

func TestEngineCatalogRefresh(t *testing.T) {
	env := newTestEnv(t)
	p := env.press(t, MenuRefreshCatalog)
	assert.Contains(t, p.Text, "Catalog")
	assert.Contains(t, p.Text, "What would you like to do?")
}

func TestEngineSessionsAreIsolatedPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.press(t, MenuNewSupplier)
	p := env.engine.Handle(ctx, Event{UserID: 7, Callback: MenuCash})
	assert.Contains(t, p.Text, "Cash")

	// The first user's flow is still at the date question.
	p = env.press(t, cbDateToday)
	assert.Contains(t, p.Text, "supplier name")
}
