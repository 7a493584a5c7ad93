package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/orders"
)

func seedSupplierOrder(t *testing.T, env *testEnv) *orders.SupplierOrder {
	t.Helper()
	widget := orders.NewLine(1, "W1", "Widget", 2, types.MustMoney("1000"))
	widget.Serials = []string{"SN1", "SN2"}
	gadget := orders.NewLine(2, "G1", "Gadget", 1, types.MustMoney("500"))
	order := &orders.SupplierOrder{
		Date:     time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Supplier: "Acme Wholesale",
		Lines:    []orders.Line{widget, gadget},
	}
	require.NoError(t, env.orders.FinalizeSupplier(context.Background(), order))
	return order
}

func seedClientOrder(t *testing.T, env *testEnv) *orders.ClientOrder {
	t.Helper()
	line := orders.NewLine(1, "W1", "Widget", 2, types.MustMoney("1500"))
	line.Serials = []string{"SN1", "SN2"}
	line.SupplierOrderID = "OP-1"
	order := &orders.ClientOrder{
		Date:   time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
		Client: "Bob",
		Lines:  []orders.Line{line},
	}
	require.NoError(t, env.orders.FinalizeClient(context.Background(), order))
	return order
}

func TestEditorSupplierPriceChange(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)

	env.press(t, MenuEdit)
	env.press(t, cbKindSupplier)
	env.text(t, "OP-1")
	env.press(t, fieldItems)
	env.press(t, prefixLine+"0")
	env.press(t, itemActionPrice)
	env.text(t, "1200")
	p := env.press(t, fieldDone)
	require.Contains(t, p.Text, "About to apply")
	require.Contains(t, p.Text, "1200")

	p = env.press(t, cbConfirmYes)
	require.True(t, p.Terminal)

	order, err := env.suppliers.GetByID(context.Background(), "OP-1")
	require.NoError(t, err)
	assert.True(t, order.Lines[0].UnitPrice.Equal(types.MustMoney("1200")))
	assert.True(t, order.Lines[0].TotalPrice.Equal(types.MustMoney("2400")))
}

func TestEditorDiscardLeavesOrderUntouched(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)

	env.press(t, MenuEdit)
	env.press(t, cbKindSupplier)
	env.text(t, "OP-1")
	env.press(t, fieldDate)
	env.text(t, "20.03.2026")
	env.press(t, fieldDone)
	p := env.press(t, cbConfirmNo)
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "discarded")

	order, err := env.suppliers.GetByID(context.Background(), "OP-1")
	require.NoError(t, err)
	assert.Equal(t, "01.03.2026", order.Date.Format(types.DateFormat))
}

func TestEditorClientPriceChangePostsCompensation(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)
	seedClientOrder(t, env)

	env.press(t, MenuEdit)
	env.press(t, cbKindClient)
	env.text(t, "OC-1")
	env.press(t, fieldItems)
	env.press(t, prefixLine+"0")
	env.press(t, itemActionPrice)
	env.text(t, "1600")
	env.press(t, fieldDone)
	p := env.press(t, cbConfirmYes)
	require.True(t, p.Terminal)

	entries := env.cashRepo.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Income.Equal(types.MustMoney("200")))
	assert.Contains(t, entries[0].Comment, "OC-1")
	// Dated today (the engine clock), not the order's own date.
	assert.True(t, entries[0].Date.Equal(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)))
}

func TestEditorSupplierQuantityIncreaseCollectsSerials(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)

	env.press(t, MenuEdit)
	env.press(t, cbKindSupplier)
	env.text(t, "OP-1")
	env.press(t, fieldItems)
	env.press(t, prefixLine+"0")
	env.press(t, itemActionQuantity)
	p := env.text(t, "3")
	require.Contains(t, p.Text, "serial 1 of 1")

	env.text(t, "SN3")
	env.press(t, fieldDone)
	p = env.press(t, cbConfirmYes)
	require.True(t, p.Terminal)

	assert.Equal(t, 3, env.units.Len())
	order, err := env.suppliers.GetByID(context.Background(), "OP-1")
	require.NoError(t, err)
	assert.Equal(t, 3, order.Lines[0].Quantity)
}

func TestEditorSupplierQuantityDecreaseReleasesChosenSerials(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)

	env.press(t, MenuEdit)
	env.press(t, cbKindSupplier)
	env.text(t, "OP-1")
	env.press(t, fieldItems)
	env.press(t, prefixLine+"0")
	env.press(t, itemActionQuantity)
	p := env.text(t, "1")
	require.Contains(t, p.Text, "Pick serial to release")

	env.press(t, prefixSerial+"SN2")
	env.press(t, fieldDone)
	p = env.press(t, cbConfirmYes)
	require.True(t, p.Terminal)

	assert.Equal(t, 1, env.units.Len())
	_, err := env.units.GetBySerial(context.Background(), "SN1")
	assert.NoError(t, err)
}

func TestEditorRemoveLineBlockedBySaleNeedsForce(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)
	seedClientOrder(t, env) // claims SN1 and SN2

	env.press(t, MenuEdit)
	env.press(t, cbKindSupplier)
	env.text(t, "OP-1")
	env.press(t, fieldItems)
	env.press(t, prefixLine+"0")
	p := env.press(t, itemActionRemove)
	require.Contains(t, p.Text, "sold in: OC-1")

	p = env.press(t, cbConfirmYes)
	require.Contains(t, p.Text, "sold units")

	env.press(t, fieldDone)
	p = env.press(t, cbConfirmYes)
	require.True(t, p.Terminal)

	// Units are gone and only the gadget line remains.
	assert.Zero(t, env.units.Len())
	order, err := env.suppliers.GetByID(context.Background(), "OP-1")
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "Gadget", order.Lines[0].ProductName)
}

func TestEditorClientQuantityOnSerialLineIsRejected(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)
	seedClientOrder(t, env)

	env.press(t, MenuEdit)
	env.press(t, cbKindClient)
	env.text(t, "OC-1")
	env.press(t, fieldItems)
	env.press(t, prefixLine+"0")
	env.press(t, itemActionQuantity)
	p := env.text(t, "5")
	assert.Contains(t, p.Text, "serial numbers")
	assert.False(t, p.Terminal)
}

func TestEditorUnknownOrderRepeatsQuestion(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuEdit)
	env.press(t, cbKindSupplier)
	p := env.text(t, "OP-404")
	assert.Contains(t, p.Text, "not found")
	assert.Contains(t, p.Text, "order number")
}
