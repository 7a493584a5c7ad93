package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/tx"
	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/cash"
	"tradeledger/internal/domain/warehouse"
)

type fixture struct {
	service   *Service
	suppliers *MemorySupplierRepository
	clients   *MemoryClientRepository
	units     *warehouse.MemoryUnitRepository
	cash      *cash.MemoryRepository
	parties   *MemoryCounterpartyRepository
}

func newFixture() *fixture {
	f := &fixture{
		suppliers: NewMemorySupplierRepository(),
		clients:   NewMemoryClientRepository(),
		units:     warehouse.NewMemoryUnitRepository(),
		cash:      cash.NewMemoryRepository(),
		parties:   NewMemoryCounterpartyRepository(),
	}
	manager := tx.Nop()
	f.service = NewService(
		f.suppliers, f.clients, f.parties, f.cash,
		warehouse.NewReconciler(f.units, manager),
		NewMemoryNumbering(), manager,
	)
	return f
}

func date(day int) time.Time {
	return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC)
}

func supplierDraft(serials ...string) *SupplierOrder {
	line := NewLine(1, "RX200", "Router X200", 3, types.MustMoney("1000"))
	line.Serials = serials
	return &SupplierOrder{Date: date(7), Supplier: "Acme Supply", Lines: []Line{line}}
}

func TestFinalizeSupplier(t *testing.T) {
	t.Run("with serials creates warehouse units", func(t *testing.T) {
		f := newFixture()
		draft := supplierDraft("SN1", "SN2", "SN3")

		require.NoError(t, f.service.FinalizeSupplier(context.Background(), draft))
		assert.Equal(t, "OP-1", draft.ID)
		assert.Equal(t, 3, f.units.Len())

		units, err := f.units.ListBySupplierOrder(context.Background(), draft.ID)
		require.NoError(t, err)
		for _, u := range units {
			assert.True(t, u.InStock())
			assert.True(t, types.MustMoney("1000").Equal(u.UnitCost))
		}

		stored, err := f.service.GetSupplier(context.Background(), draft.ID)
		require.NoError(t, err)
		assert.True(t, types.MustMoney("3000").Equal(stored.Total()))

		names, err := f.service.Counterparties(context.Background(), CounterpartySupplier)
		require.NoError(t, err)
		assert.Equal(t, []string{"Acme Supply"}, names)
	})

	t.Run("deferred serials leave warehouse untouched", func(t *testing.T) {
		f := newFixture()
		draft := supplierDraft()

		require.NoError(t, f.service.FinalizeSupplier(context.Background(), draft))
		assert.Equal(t, 0, f.units.Len())
	})

	t.Run("partial serial set is rejected", func(t *testing.T) {
		f := newFixture()
		draft := supplierDraft("SN1")

		err := f.service.FinalizeSupplier(context.Background(), draft)
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("no lines is rejected", func(t *testing.T) {
		f := newFixture()
		err := f.service.FinalizeSupplier(context.Background(), &SupplierOrder{Date: date(7), Supplier: "Acme"})
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("two lines for the same product are rejected", func(t *testing.T) {
		f := newFixture()
		draft := supplierDraft()
		second := NewLine(2, "RX200", "Router X200", 1, types.MustMoney("900"))
		draft.Lines = append(draft.Lines, second)

		err := f.service.FinalizeSupplier(context.Background(), draft)
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestFinalizeClient(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture()
		require.NoError(t, f.service.FinalizeSupplier(context.Background(), supplierDraft("SN1", "SN2", "SN3")))
		return f
	}

	t.Run("claims serials", func(t *testing.T) {
		f := setup(t)

		line := NewLine(1, "RX200", "Router X200", 2, types.MustMoney("1500"))
		line.Serials = []string{"SN1", "SN2"}
		line.SupplierOrderID = "OP-1"
		order := &ClientOrder{Date: date(8), Client: "Ivanov", Lines: []Line{line}}

		require.NoError(t, f.service.FinalizeClient(context.Background(), order))
		assert.Equal(t, "OC-1", order.ID)
		assert.True(t, types.MustMoney("3000").Equal(order.Total()))

		u1, err := f.units.GetBySerial(context.Background(), "SN1")
		require.NoError(t, err)
		require.NotNil(t, u1.ClientOrderID)
		assert.Equal(t, "OC-1", *u1.ClientOrderID)

		u3, err := f.units.GetBySerial(context.Background(), "SN3")
		require.NoError(t, err)
		assert.Nil(t, u3.ClientOrderID)
	})

	t.Run("sold serial rejects the whole order", func(t *testing.T) {
		f := setup(t)
		first := NewLine(1, "RX200", "Router X200", 1, types.MustMoney("1500"))
		first.Serials = []string{"SN1"}
		require.NoError(t, f.service.FinalizeClient(context.Background(),
			&ClientOrder{Date: date(8), Client: "Ivanov", Lines: []Line{first}}))

		second := NewLine(1, "RX200", "Router X200", 2, types.MustMoney("1500"))
		second.Serials = []string{"SN1", "SN2"}
		err := f.service.FinalizeClient(context.Background(),
			&ClientOrder{Date: date(9), Client: "Petrov", Lines: []Line{second}})
		require.Error(t, err)
		assert.True(t, apperror.IsConflict(err))

		// SN2 must not have been claimed by the failed order.
		u2, lookupErr := f.units.GetBySerial(context.Background(), "SN2")
		require.NoError(t, lookupErr)
		assert.Nil(t, u2.ClientOrderID)
	})

	t.Run("same product from different supplies is allowed", func(t *testing.T) {
		f := setup(t)

		traced := NewLine(1, "RX200", "Router X200", 1, types.MustMoney("1500"))
		traced.Serials = []string{"SN1"}
		traced.SupplierOrderID = "OP-1"
		manual := NewLine(2, "RX200", "Router X200", 1, types.MustMoney("1500"))

		order := &ClientOrder{Date: date(8), Client: "Ivanov", Lines: []Line{traced, manual}}
		require.NoError(t, f.service.FinalizeClient(context.Background(), order))
	})

	t.Run("duplicate product within one supply is rejected", func(t *testing.T) {
		f := setup(t)

		first := NewLine(1, "RX200", "Router X200", 1, types.MustMoney("1500"))
		first.Serials = []string{"SN1"}
		first.SupplierOrderID = "OP-1"
		second := NewLine(2, "RX200", "Router X200", 1, types.MustMoney("1500"))
		second.Serials = []string{"SN2"}
		second.SupplierOrderID = "OP-1"

		order := &ClientOrder{Date: date(8), Client: "Ivanov", Lines: []Line{first, second}}
		err := f.service.FinalizeClient(context.Background(), order)
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})
}

// trackingManager marks the context while the transaction body runs, so a
// collaborator can tell whether it was invoked inside the transaction.
type trackedTxKey struct{}

type trackingManager struct{}

func (trackingManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, trackedTxKey{}, true))
}

type trackingNumbering struct {
	inner      Numbering
	insideTx   bool
	allocation int
}

func (n *trackingNumbering) Next(ctx context.Context, prefix string) (string, error) {
	n.insideTx, _ = ctx.Value(trackedTxKey{}).(bool)
	n.allocation++
	return n.inner.Next(ctx, prefix)
}

func TestFinalizeAllocatesNumberInsideTransaction(t *testing.T) {
	manager := trackingManager{}
	numbering := &trackingNumbering{inner: NewMemoryNumbering()}
	service := NewService(
		NewMemorySupplierRepository(), NewMemoryClientRepository(),
		NewMemoryCounterpartyRepository(), cash.NewMemoryRepository(),
		warehouse.NewReconciler(warehouse.NewMemoryUnitRepository(), manager),
		numbering, manager,
	)

	require.NoError(t, service.FinalizeSupplier(context.Background(), supplierDraft("SN1", "SN2", "SN3")))
	assert.True(t, numbering.insideTx)
	assert.Equal(t, 1, numbering.allocation)

	line := NewLine(1, "RX200", "Router X200", 1, types.MustMoney("1500"))
	require.NoError(t, service.FinalizeClient(context.Background(),
		&ClientOrder{Date: date(8), Client: "Ivanov", Lines: []Line{line}}))
	assert.True(t, numbering.insideTx)
	assert.Equal(t, 2, numbering.allocation)
}

func TestFailedFinalizeLeavesDraftUnnumbered(t *testing.T) {
	f := newFixture()

	// A serial repeated within the batch fails inside the transaction, after
	// the number was assigned.
	draft := supplierDraft("SN1", "SN1", "SN3")
	err := f.service.FinalizeSupplier(context.Background(), draft)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
	assert.Empty(t, draft.ID)

	// The corrected draft finalizes cleanly on retry.
	draft.Lines[0].Serials = []string{"SN1", "SN2", "SN3"}
	require.NoError(t, f.service.FinalizeSupplier(context.Background(), draft))
	assert.NotEmpty(t, draft.ID)
}

func TestDeleteSupplier(t *testing.T) {
	t.Run("unsold units are removed with the order", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.service.FinalizeSupplier(context.Background(), supplierDraft("SN1", "SN2", "SN3")))

		require.NoError(t, f.service.DeleteSupplier(context.Background(), "OP-1"))
		assert.Equal(t, 0, f.units.Len())

		_, err := f.service.GetSupplier(context.Background(), "OP-1")
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("sold unit blocks deletion and names the client order", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.service.FinalizeSupplier(context.Background(), supplierDraft("SN1", "SN2", "SN3")))

		line := NewLine(1, "RX200", "Router X200", 1, types.MustMoney("1500"))
		line.Serials = []string{"SN2"}
		require.NoError(t, f.service.FinalizeClient(context.Background(),
			&ClientOrder{Date: date(8), Client: "Ivanov", Lines: []Line{line}}))

		err := f.service.DeleteSupplier(context.Background(), "OP-1")
		require.Error(t, err)
		assert.True(t, apperror.IsInUse(err))

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, []string{"OC-1"}, appErr.Details["blocked_by"])

		// Order and stock untouched.
		_, getErr := f.service.GetSupplier(context.Background(), "OP-1")
		require.NoError(t, getErr)
		assert.Equal(t, 3, f.units.Len())
	})
}

func TestDeleteClient(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.service.FinalizeSupplier(context.Background(), supplierDraft("SN1", "SN2", "SN3")))

	line := NewLine(1, "RX200", "Router X200", 2, types.MustMoney("1500"))
	line.Serials = []string{"SN1", "SN2"}
	require.NoError(t, f.service.FinalizeClient(context.Background(),
		&ClientOrder{Date: date(8), Client: "Ivanov", Lines: []Line{line}}))

	require.NoError(t, f.service.DeleteClient(context.Background(), "OC-1"))

	// Units stay in the warehouse, unlinked.
	assert.Equal(t, 3, f.units.Len())
	for _, s := range []string{"SN1", "SN2"} {
		u, err := f.units.GetBySerial(context.Background(), s)
		require.NoError(t, err)
		assert.Nil(t, u.ClientOrderID)
	}

	_, err := f.service.GetClient(context.Background(), "OC-1")
	assert.True(t, apperror.IsNotFound(err))
}

func TestCommitClientEdit(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.service.FinalizeSupplier(context.Background(), supplierDraft("SN1", "SN2", "SN3")))

	line := NewLine(1, "RX200", "Router X200", 2, types.MustMoney("1500"))
	line.Serials = []string{"SN1", "SN2"}
	order := &ClientOrder{Date: date(8), Client: "Ivanov", Lines: []Line{line}}
	require.NoError(t, f.service.FinalizeClient(context.Background(), order))

	// Raise the unit price from 1500 to 1600: delta is 2 * 100.
	working, err := f.service.GetClient(context.Background(), order.ID)
	require.NoError(t, err)
	working.Lines = order.Lines
	working.Lines[0].UnitPrice = types.MustMoney("1600")
	working.Lines[0].Recalculate()

	delta := working.Lines[0].TotalPrice.Sub(types.MustMoney("3000"))
	require.NoError(t, f.service.CommitClientEdit(context.Background(), working, SerialOps{}, delta, date(15)))

	entries := f.cash.Entries()
	require.Len(t, entries, 1)
	assert.True(t, types.MustMoney("200").Equal(entries[0].Income))
	assert.Contains(t, entries[0].Comment, order.ID)
	// The compensating entry belongs to the day of the edit, not to the
	// order's own date.
	assert.True(t, entries[0].Date.Equal(date(15)))

	stored, err := f.service.GetClient(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, types.MustMoney("3200").Equal(stored.Total()))
}

func TestCommitSupplierEdit(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.service.FinalizeSupplier(context.Background(), supplierDraft("SN1", "SN2", "SN3")))

	working, err := f.service.GetSupplier(context.Background(), "OP-1")
	require.NoError(t, err)
	working.Lines = supplierDraft().Lines
	working.Lines[0].Quantity = 2
	working.Lines[0].Recalculate()

	ops := SerialOps{Remove: []string{"SN3"}}
	require.NoError(t, f.service.CommitSupplierEdit(context.Background(), working, ops))
	assert.Equal(t, 2, f.units.Len())
}

func TestCommitSupplierEditDuringDeferredIntake(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.service.FinalizeSupplier(context.Background(), supplierDraft()))
	require.NoError(t, f.service.AttachDeferredSerials(context.Background(), "OP-1", "Router X200", []string{"SN1"}))

	// Loading reattaches the partially recorded serial set: one serial on a
	// quantity-3 line.
	working, err := f.service.GetSupplier(context.Background(), "OP-1")
	require.NoError(t, err)
	working.Lines = supplierDraft().Lines
	working.Lines[0].Serials = []string{"SN1"}

	t.Run("rename commits despite incomplete serials", func(t *testing.T) {
		working.Supplier = "Acme Supply LLC"
		require.NoError(t, f.service.CommitSupplierEdit(context.Background(), working, SerialOps{}))

		stored, err := f.service.GetSupplier(context.Background(), "OP-1")
		require.NoError(t, err)
		assert.Equal(t, "Acme Supply LLC", stored.Supplier)
	})

	t.Run("serial set beyond the line quantity is still rejected", func(t *testing.T) {
		working.Lines[0].Serials = []string{"SN1", "SN2", "SN3", "SN4"}
		err := f.service.CommitSupplierEdit(context.Background(), working, SerialOps{})
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestAttachDeferredSerials(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.service.FinalizeSupplier(context.Background(), supplierDraft()))
	f.suppliers.Deferred["OP-1"] = true

	deferred, err := f.service.ListDeferred(context.Background())
	require.NoError(t, err)
	require.Len(t, deferred, 1)

	require.NoError(t, f.service.AttachDeferredSerials(context.Background(), "OP-1", "Router X200", []string{"SN1", "SN2"}))
	assert.Equal(t, 2, f.units.Len())

	// Fourth serial would exceed the line quantity of 3.
	require.NoError(t, f.service.AttachDeferredSerials(context.Background(), "OP-1", "Router X200", []string{"SN3"}))
	err = f.service.AttachDeferredSerials(context.Background(), "OP-1", "Router X200", []string{"SN4"})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	err = f.service.AttachDeferredSerials(context.Background(), "OP-1", "No Such Product", []string{"SN9"})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
