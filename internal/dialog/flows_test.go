package dialog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/types"
)

func TestDeleteClientReleasesStock(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)
	seedClientOrder(t, env)

	env.press(t, MenuDelete)
	env.press(t, cbKindClient)
	p := env.text(t, "OC-1")
	require.Contains(t, p.Text, "Bob")

	p = env.press(t, cbConfirmYes)
	require.True(t, p.Terminal)

	_, err := env.clients.GetByID(context.Background(), "OC-1")
	assert.True(t, apperror.IsNotFound(err))
	unit, err := env.units.GetBySerial(context.Background(), "SN1")
	require.NoError(t, err)
	assert.Nil(t, unit.ClientOrderID)
}

func TestDeleteSupplierBlockedBySale(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)
	seedClientOrder(t, env)

	env.press(t, MenuDelete)
	env.press(t, cbKindSupplier)
	env.text(t, "OP-1")
	p := env.press(t, cbConfirmYes)
	require.Contains(t, p.Text, "referenced by other orders")
	assert.False(t, p.Terminal)

	// Backing out leaves the order in place.
	p = env.press(t, cbConfirmNo)
	require.True(t, p.Terminal)
	_, err := env.suppliers.GetByID(context.Background(), "OP-1")
	assert.NoError(t, err)
}

func TestSearchByID(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)

	env.press(t, MenuSearch)
	env.press(t, cbSearchID)
	p := env.text(t, "OP-1")
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "Found 1 order(s)")
	assert.Contains(t, p.Text, "Acme Wholesale")
}

func TestSearchByProductFindsBothKinds(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)
	seedClientOrder(t, env)

	env.press(t, MenuSearch)
	env.press(t, cbSearchProduct)
	p := env.text(t, "widget")
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "OP-1")
	assert.Contains(t, p.Text, "OC-1")
}

func TestSearchNothingFound(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuSearch)
	env.press(t, cbSearchID)
	p := env.text(t, "OP-404")
	require.True(t, p.Terminal)
	assert.Equal(t, "Nothing found.", p.Text)
}

func TestCashExpenseRecording(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuCash)
	env.press(t, cbCashExpense)
	env.text(t, "250")
	p := env.text(t, "office supplies")
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "250")

	entries := env.cashRepo.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Expense.Equal(types.MustMoney("250")))
	assert.Equal(t, "office supplies", entries[0].Comment)
}

func TestCashBalanceRecording(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuCash)
	env.press(t, cbCashBalance)
	p := env.text(t, "10000")
	require.True(t, p.Terminal)

	entries := env.cashRepo.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Income.Equal(types.MustMoney("10000")))
}

func TestCashDayView(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuCash)
	env.press(t, cbCashExpense)
	env.text(t, "100")
	env.text(t, "fuel")

	env.press(t, MenuCash)
	env.press(t, cbCashDay)
	p := env.text(t, "10.03.2026")
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "fuel")
	assert.Contains(t, p.Text, "net -100")
}

func TestReportFlowRejectsInvertedRange(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, MenuReport)
	env.text(t, "10.03.2026")
	p := env.text(t, "01.03.2026")
	require.Contains(t, p.Text, "precedes")
	assert.False(t, p.Terminal)

	// The end-date question is asked again and a valid range completes.
	p = env.text(t, "31.03.2026")
	assert.True(t, p.Terminal)
	assert.Contains(t, p.Text, "Net profit")
}

func TestDeferredSerialIntake(t *testing.T) {
	env := newTestEnv(t)
	seedSupplierOrder(t, env)
	env.suppliers.Deferred["OP-1"] = true

	p := env.press(t, MenuDeferred)
	require.Contains(t, p.Text, "Which order")

	p = env.press(t, prefixOrder+"OP-1")
	require.Contains(t, p.Text, "Which line?")

	// The gadget line is the one still missing its serial.
	p = env.press(t, prefixLine+"1")
	require.Contains(t, p.Text, "serial")

	env.text(t, "SN9")
	p = env.press(t, cbSerialsDone)
	require.True(t, p.Terminal)
	assert.Contains(t, p.Text, "Gadget")
	assert.Equal(t, 3, env.units.Len())
}

func TestDeferredMenuWithNothingPending(t *testing.T) {
	env := newTestEnv(t)
	p := env.press(t, MenuDeferred)
	assert.Contains(t, p.Text, "No orders are waiting")
	assert.Contains(t, p.Text, "What would you like to do?")
}
