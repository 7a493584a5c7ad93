package dialog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/warehouse"
)

func TestBuilderSupplierOrderWithSerials(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuNewSupplier)
	env.press(t, cbDateToday)
	env.text(t, "Acme Wholesale")
	env.text(t, "widget")
	env.text(t, "2")
	env.text(t, "1000")
	env.press(t, cbSerialsNow)
	env.text(t, "SN1")
	p := env.text(t, "SN2")
	require.Contains(t, p.Text, "Added Widget x2")

	p = env.press(t, cbItemFinalize)
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "OP-1")
	assert.Contains(t, p.Text, "2000")

	order, err := env.suppliers.GetByID(context.Background(), "OP-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Wholesale", order.Supplier)
	assert.Equal(t, 2, env.units.Len())
}

func TestBuilderSupplierDeferredSerials(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuNewSupplier)
	env.press(t, cbDateToday)
	env.text(t, "Acme Wholesale")
	env.text(t, "gadget")
	env.text(t, "3")
	env.text(t, "500")
	p := env.press(t, cbSerialsLater)
	require.Contains(t, p.Text, "Added Gadget x3")

	p = env.press(t, cbItemFinalize)
	require.True(t, p.Terminal)
	assert.Zero(t, env.units.Len())
}

func TestBuilderAmbiguousProductOffersChoices(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuNewSupplier)
	env.press(t, cbDateToday)
	env.text(t, "Acme Wholesale")

	// "g" matches Widget, Gadget and Gizmo.
	p := env.text(t, "g")
	require.Contains(t, p.Text, "Several products match")
	require.Len(t, p.Choices, 4) // three products plus cancel

	p = env.press(t, prefixProduct+"G2")
	assert.Contains(t, p.Text, "Gizmo")
	assert.Contains(t, p.Text, "quantity")
}

func TestBuilderRejectsSerialKnownToWarehouse(t *testing.T) {
	env := newTestEnv(t)
	env.units.Seed(warehouse.Unit{
		Serial: "SN1", ProductName: "Widget",
		SupplierOrderID: "OP-9", UnitCost: types.MustMoney("800"),
	})

	env.press(t, MenuNewSupplier)
	env.press(t, cbDateToday)
	env.text(t, "Acme Wholesale")
	env.text(t, "widget")
	env.text(t, "1")
	env.text(t, "1000")
	env.press(t, cbSerialsNow)

	p := env.text(t, "SN1")
	require.Contains(t, p.Text, "already registered")
	assert.False(t, p.Terminal)

	// A fresh serial completes the item.
	p = env.text(t, "SN2")
	assert.Contains(t, p.Text, "Added Widget x1")
}

func TestBuilderClientBySerialClaimsStock(t *testing.T) {
	env := newTestEnv(t)
	env.units.Seed(
		warehouse.Unit{Serial: "SN1", ProductName: "Widget", SupplierOrderID: "OP-9", UnitCost: types.MustMoney("800")},
		warehouse.Unit{Serial: "SN2", ProductName: "Widget", SupplierOrderID: "OP-9", UnitCost: types.MustMoney("800")},
	)

	env.press(t, MenuClientBySerial)
	env.press(t, cbDateToday)
	env.text(t, "Bob")
	env.text(t, "SN1")
	env.text(t, "SN2")
	p := env.press(t, cbSerialsDone)
	require.Contains(t, p.Text, "Sale price per unit for Widget")

	p = env.text(t, "1500")
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "OC-1")
	assert.Contains(t, p.Text, "3000")

	unit, err := env.units.GetBySerial(context.Background(), "SN1")
	require.NoError(t, err)
	require.NotNil(t, unit.ClientOrderID)
	assert.Equal(t, "OC-1", *unit.ClientOrderID)
}

func TestBuilderClientBySerialSkipsUnavailable(t *testing.T) {
	env := newTestEnv(t)
	sold := "OC-9"
	env.units.Seed(
		warehouse.Unit{Serial: "SN1", ProductName: "Widget", SupplierOrderID: "OP-9", UnitCost: types.MustMoney("800")},
		warehouse.Unit{Serial: "SN2", ProductName: "Widget", SupplierOrderID: "OP-9", UnitCost: types.MustMoney("800"), ClientOrderID: &sold},
	)

	env.press(t, MenuClientBySerial)
	env.press(t, cbDateToday)
	env.text(t, "Bob")
	env.text(t, "SN1")
	env.text(t, "SN2")
	env.text(t, "SNX")
	p := env.press(t, cbSerialsDone)
	require.Contains(t, p.Text, "unavailable")
	require.Contains(t, p.Text, "SN2")
	require.Contains(t, p.Text, "SNX")

	// Drop the problem serials and carry on with what is in stock.
	p = env.press(t, cbSupplyAbort)
	require.Contains(t, p.Text, "1 serial(s)")
	p = env.press(t, cbSerialsDone)
	require.Contains(t, p.Text, "Sale price")

	p = env.text(t, "1500")
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "1500")
}

func TestBuilderClientBySerialSupplyFixCreatesNestedOrder(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuClientBySerial)
	env.press(t, cbDateToday)
	env.text(t, "Bob")
	env.text(t, "SN1")
	p := env.press(t, cbSerialsDone)
	require.Contains(t, p.Text, "unavailable")

	// Register the missing stock through a nested supplier order.
	p = env.press(t, cbSupplyFix)
	require.Contains(t, p.Text, "Order date?")
	env.press(t, cbDateToday)
	env.text(t, "Acme Wholesale")
	env.text(t, "widget")
	env.text(t, "1")
	env.text(t, "800")
	env.press(t, cbSerialsNow)
	env.text(t, "SN1")
	p = env.press(t, cbItemFinalize)
	require.Contains(t, p.Text, "OP-1")
	require.Contains(t, p.Text, "re-check")
	require.False(t, p.Terminal)

	// Back in the client flow the serial now resolves.
	p = env.press(t, cbSerialsDone)
	require.Contains(t, p.Text, "Sale price")
	p = env.text(t, "1200")
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "OC-1")
}

func TestBuilderCustomDate(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuNewSupplier)
	p := env.press(t, cbDateCustom)
	require.Contains(t, p.Text, "day.month.year")

	p = env.text(t, "05.02.2026")
	require.Contains(t, p.Text, "supplier name")

	env.text(t, "Acme Wholesale")
	env.text(t, "gizmo")
	env.text(t, "1")
	env.text(t, "700")
	env.press(t, cbSerialsLater)
	env.press(t, cbItemFinalize)

	order, err := env.suppliers.GetByID(context.Background(), "OP-1")
	require.NoError(t, err)
	assert.Equal(t, "05.02.2026", order.Date.Format(types.DateFormat))
}
