package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/core/types"
)

func TestDiffSupplier(t *testing.T) {
	original := &SupplierOrder{
		ID:       "OP-1",
		Date:     time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		Supplier: "Acme Supply",
		Lines: []Line{
			NewLine(1, "RX200", "Router X200", 5, types.MustMoney("1000")),
			NewLine(2, "S8", "Switch S8", 2, types.MustMoney("500")),
		},
	}

	t.Run("identical copies produce an empty diff", func(t *testing.T) {
		working := *original
		working.Lines = append([]Line(nil), original.Lines...)
		d := DiffSupplier(original, &working)
		assert.True(t, d.Empty())
		assert.True(t, d.TotalDelta().IsZero())
	})

	t.Run("field and line changes are all reported", func(t *testing.T) {
		working := *original
		working.Date = time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
		working.Supplier = "Best Parts"

		// Change the first line's price, drop the second, add a third.
		changed := original.Lines[0]
		changed.UnitPrice = types.MustMoney("1100")
		changed.Recalculate()
		added := NewLine(2, "C14", "Cable C14", 10, types.MustMoney("50"))
		working.Lines = []Line{changed, added}

		d := DiffSupplier(original, &working)
		require.False(t, d.Empty())

		assert.True(t, d.DateChanged)
		assert.True(t, d.CounterpartyChanged)
		assert.Equal(t, "Best Parts", d.NewCounterparty)

		require.Len(t, d.Added, 1)
		assert.Equal(t, "Cable C14", d.Added[0].ProductName)

		require.Len(t, d.Removed, 1)
		assert.Equal(t, "Switch S8", d.Removed[0].ProductName)

		require.Len(t, d.Changed, 1)
		assert.Equal(t, 0, d.Changed[0].QuantityDelta())
		assert.True(t, types.MustMoney("500").Equal(d.Changed[0].TotalDelta()))

		// +500 change, -1000 removed, +500 added.
		assert.True(t, types.Zero().Equal(d.TotalDelta()))
	})

	t.Run("serial swap alone marks the line changed", func(t *testing.T) {
		snapshot := original.Clone()
		snapshot.Lines[0].Serials = []string{"SN1", "SN2"}

		working := snapshot.Clone()
		working.Lines[0].Serials = []string{"SN1", "SN9"}

		d := DiffSupplier(snapshot, working)
		require.False(t, d.Empty())
		require.Len(t, d.Changed, 1)
		assert.True(t, d.TotalDelta().IsZero())

		// Order of the set does not matter.
		working.Lines[0].Serials = []string{"SN2", "SN1"}
		assert.True(t, DiffSupplier(snapshot, working).Empty())
	})
}

func TestDiffClient(t *testing.T) {
	line := NewLine(1, "RX200", "Router X200", 2, types.MustMoney("1500"))
	original := &ClientOrder{
		ID:     "OC-1",
		Date:   time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		Client: "Ivanov",
		Lines:  []Line{line},
	}

	working := *original
	grown := line
	grown.Quantity = 3
	grown.Recalculate()
	working.Lines = []Line{grown}

	d := DiffClient(original, &working)
	require.Len(t, d.Changed, 1)
	assert.Equal(t, 1, d.Changed[0].QuantityDelta())
	assert.True(t, types.MustMoney("1500").Equal(d.TotalDelta()))
	assert.False(t, d.DateChanged)
	assert.False(t, d.CounterpartyChanged)
}
