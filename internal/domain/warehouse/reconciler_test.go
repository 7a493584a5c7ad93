package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/tx"
	"tradeledger/internal/core/types"
)

func newTestReconciler() (*Reconciler, *MemoryUnitRepository) {
	repo := NewMemoryUnitRepository()
	return NewReconciler(repo, tx.Nop()), repo
}

func soldTo(clientOrderID string) *string {
	return &clientOrderID
}

func TestClassify(t *testing.T) {
	rec, repo := newTestReconciler()
	repo.Seed(
		Unit{Serial: "SN1", ProductName: "Router X200", SupplierOrderID: "OP-1", UnitCost: types.MustMoney("1000")},
		Unit{Serial: "SN2", ProductName: "Router X200", SupplierOrderID: "OP-1", ClientOrderID: soldTo("OC-9"), UnitCost: types.MustMoney("1000")},
	)

	cls, err := rec.Classify(context.Background(), []string{"SN1", "SN2", "SN3", "SN1"})
	require.NoError(t, err)

	assert.Len(t, cls.Available, 1)
	assert.Equal(t, "SN1", cls.Available[0].Serial)
	assert.Equal(t, []string{"SN2"}, cls.SoldSerials())
	assert.Equal(t, []string{"SN3"}, cls.Unknown)
	assert.False(t, cls.Clean())
}

func TestClaim(t *testing.T) {
	t.Run("claims whole batch", func(t *testing.T) {
		rec, repo := newTestReconciler()
		repo.Seed(
			Unit{Serial: "SN1", ProductName: "Router X200", SupplierOrderID: "OP-1"},
			Unit{Serial: "SN2", ProductName: "Router X200", SupplierOrderID: "OP-1"},
		)

		require.NoError(t, rec.Claim(context.Background(), []string{"SN1", "SN2"}, "OC-1"))

		for _, s := range []string{"SN1", "SN2"} {
			u, err := repo.GetBySerial(context.Background(), s)
			require.NoError(t, err)
			require.NotNil(t, u.ClientOrderID)
			assert.Equal(t, "OC-1", *u.ClientOrderID)
		}
	})

	t.Run("one sold serial fails the whole batch", func(t *testing.T) {
		rec, repo := newTestReconciler()
		repo.Seed(
			Unit{Serial: "SN1", ProductName: "Router X200", SupplierOrderID: "OP-1"},
			Unit{Serial: "SN2", ProductName: "Router X200", SupplierOrderID: "OP-1", ClientOrderID: soldTo("OC-9")},
		)

		err := rec.Claim(context.Background(), []string{"SN1", "SN2"}, "OC-1")
		require.Error(t, err)
		assert.True(t, apperror.IsConflict(err))

		// Nothing was claimed.
		u, err := repo.GetBySerial(context.Background(), "SN1")
		require.NoError(t, err)
		assert.Nil(t, u.ClientOrderID)
	})

	t.Run("unknown serial fails", func(t *testing.T) {
		rec, _ := newTestReconciler()
		err := rec.Claim(context.Background(), []string{"NOPE"}, "OC-1")
		require.Error(t, err)
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		rec, _ := newTestReconciler()
		require.NoError(t, rec.Claim(context.Background(), nil, "OC-1"))
	})
}

func TestRelease(t *testing.T) {
	rec, repo := newTestReconciler()
	repo.Seed(
		Unit{Serial: "SN1", SupplierOrderID: "OP-1", ClientOrderID: soldTo("OC-1")},
		Unit{Serial: "SN2", SupplierOrderID: "OP-1", ClientOrderID: soldTo("OC-2")},
	)

	require.NoError(t, rec.Release(context.Background(), "OC-1"))

	u1, _ := repo.GetBySerial(context.Background(), "SN1")
	u2, _ := repo.GetBySerial(context.Background(), "SN2")
	assert.Nil(t, u1.ClientOrderID)
	require.NotNil(t, u2.ClientOrderID)
	assert.Equal(t, "OC-2", *u2.ClientOrderID)

	// Releasing again is fine.
	require.NoError(t, rec.Release(context.Background(), "OC-1"))
}

func TestAttachSupply(t *testing.T) {
	cost := types.MustMoney("1000")

	t.Run("creates unlinked units", func(t *testing.T) {
		rec, repo := newTestReconciler()
		err := rec.AttachSupply(context.Background(), []string{"SN1", "SN2", "SN3"}, "OP-1", "Router X200", cost)
		require.NoError(t, err)
		assert.Equal(t, 3, repo.Len())

		units, err := repo.ListBySupplierOrder(context.Background(), "OP-1")
		require.NoError(t, err)
		for _, u := range units {
			assert.True(t, u.InStock())
			assert.True(t, cost.Equal(u.UnitCost))
		}
	})

	t.Run("rejects in-batch duplicates", func(t *testing.T) {
		rec, repo := newTestReconciler()
		err := rec.AttachSupply(context.Background(), []string{"SN1", "SN1"}, "OP-1", "Router X200", cost)
		require.Error(t, err)
		assert.True(t, apperror.IsConflict(err))
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("rejects serials registered elsewhere", func(t *testing.T) {
		rec, repo := newTestReconciler()
		repo.Seed(Unit{Serial: "SN1", SupplierOrderID: "OP-0"})
		err := rec.AttachSupply(context.Background(), []string{"SN1", "SN2"}, "OP-1", "Router X200", cost)
		require.Error(t, err)
		assert.True(t, apperror.IsConflict(err))
		assert.Equal(t, 1, repo.Len())
	})
}

func TestAttachDeferred(t *testing.T) {
	cost := types.MustMoney("500")

	rec, repo := newTestReconciler()
	repo.Seed(
		Unit{Serial: "SN1", ProductName: "Switch S8", SupplierOrderID: "OP-1", UnitCost: cost},
	)

	// Line quantity is 3, one serial recorded: two more fit.
	require.NoError(t, rec.AttachDeferred(context.Background(), []string{"SN2", "SN3"}, "OP-1", "Switch S8", cost, 3))
	assert.Equal(t, 3, repo.Len())

	// Line is full now.
	err := rec.AttachDeferred(context.Background(), []string{"SN4"}, "OP-1", "Switch S8", cost, 3)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDetachSupply(t *testing.T) {
	t.Run("removes unsold units", func(t *testing.T) {
		rec, repo := newTestReconciler()
		repo.Seed(
			Unit{Serial: "SN1", SupplierOrderID: "OP-1"},
			Unit{Serial: "SN2", SupplierOrderID: "OP-1"},
			Unit{Serial: "SN3", SupplierOrderID: "OP-2"},
		)

		require.NoError(t, rec.DetachSupply(context.Background(), "OP-1"))
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("blocked by sold unit names the client order", func(t *testing.T) {
		rec, repo := newTestReconciler()
		repo.Seed(
			Unit{Serial: "SN1", SupplierOrderID: "OP-1"},
			Unit{Serial: "SN2", SupplierOrderID: "OP-1", ClientOrderID: soldTo("OC-7")},
		)

		err := rec.DetachSupply(context.Background(), "OP-1")
		require.Error(t, err)
		assert.True(t, apperror.IsInUse(err))

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, []string{"OC-7"}, appErr.Details["blocked_by"])
		assert.Equal(t, 2, repo.Len())
	})
}

func TestRemoveSerials(t *testing.T) {
	rec, repo := newTestReconciler()
	repo.Seed(
		Unit{Serial: "SN1", SupplierOrderID: "OP-1"},
		Unit{Serial: "SN2", SupplierOrderID: "OP-1", ClientOrderID: soldTo("OC-7")},
	)

	require.NoError(t, rec.RemoveSerials(context.Background(), []string{"SN1"}))
	assert.Equal(t, 1, repo.Len())

	err := rec.RemoveSerials(context.Background(), []string{"SN2"})
	require.Error(t, err)
	assert.True(t, apperror.IsInUse(err))
}

func TestGroupBySupply(t *testing.T) {
	units := []Unit{
		{Serial: "B2", ProductName: "Router X200", SupplierOrderID: "OP-2", UnitCost: types.MustMoney("1100")},
		{Serial: "A1", ProductName: "Router X200", SupplierOrderID: "OP-1", UnitCost: types.MustMoney("1000")},
		{Serial: "A2", ProductName: "Router X200", SupplierOrderID: "OP-1", UnitCost: types.MustMoney("1000")},
		{Serial: "C1", ProductName: "Switch S8", SupplierOrderID: "OP-1", UnitCost: types.MustMoney("500")},
	}

	groups := GroupBySupply(units)
	require.Len(t, groups, 3)

	assert.Equal(t, "Router X200", groups[0].ProductName)
	assert.Equal(t, "OP-1", groups[0].SupplierOrderID)
	assert.Equal(t, []string{"A1", "A2"}, groups[0].Serials)
	assert.Equal(t, 2, groups[0].Quantity())

	assert.Equal(t, "OP-2", groups[1].SupplierOrderID)
	assert.Equal(t, []string{"B2"}, groups[1].Serials)

	assert.Equal(t, "Switch S8", groups[2].ProductName)

	assert.Empty(t, GroupBySupply(nil))
}
