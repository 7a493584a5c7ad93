package orders

import (
	"time"

	"tradeledger/internal/core/id"
	"tradeledger/internal/core/types"
)

// LineChange describes one modified line between two revisions of an order.
type LineChange struct {
	Before Line
	After  Line
}

// QuantityDelta returns After.Quantity - Before.Quantity.
func (c LineChange) QuantityDelta() int {
	return c.After.Quantity - c.Before.Quantity
}

// TotalDelta returns the money difference the change introduces.
func (c LineChange) TotalDelta() types.Money {
	return c.After.TotalPrice.Sub(c.Before.TotalPrice)
}

// Diff is a field-by-field and line-by-line comparison between an order's
// immutable snapshot and its edited working copy. It is computed before
// commit so the user can confirm exactly what will change.
type Diff struct {
	DateChanged         bool
	OldDate, NewDate    time.Time
	CounterpartyChanged bool
	OldCounterparty     string
	NewCounterparty     string

	Added   []Line
	Removed []Line
	Changed []LineChange
}

// Empty reports whether the working copy is identical to the snapshot.
func (d Diff) Empty() bool {
	return !d.DateChanged && !d.CounterpartyChanged &&
		len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// TotalDelta sums the money impact of all line-level changes.
func (d Diff) TotalDelta() types.Money {
	delta := types.Zero()
	for _, l := range d.Added {
		delta = delta.Add(l.TotalPrice)
	}
	for _, l := range d.Removed {
		delta = delta.Sub(l.TotalPrice)
	}
	for _, c := range d.Changed {
		delta = delta.Add(c.TotalDelta())
	}
	return delta
}

// DiffSupplier compares two revisions of a supplier order.
func DiffSupplier(original, working *SupplierOrder) Diff {
	d := diffLines(original.Lines, working.Lines)
	d.OldDate, d.NewDate = original.Date, working.Date
	d.DateChanged = !original.Date.Equal(working.Date)
	d.OldCounterparty, d.NewCounterparty = original.Supplier, working.Supplier
	d.CounterpartyChanged = original.Supplier != working.Supplier
	return d
}

// DiffClient compares two revisions of a client order.
func DiffClient(original, working *ClientOrder) Diff {
	d := diffLines(original.Lines, working.Lines)
	d.OldDate, d.NewDate = original.Date, working.Date
	d.DateChanged = !original.Date.Equal(working.Date)
	d.OldCounterparty, d.NewCounterparty = original.Client, working.Client
	d.CounterpartyChanged = original.Client != working.Client
	return d
}

func diffLines(before, after []Line) Diff {
	var d Diff
	byID := make(map[id.ID]Line, len(before))
	for _, l := range before {
		byID[l.LineID] = l
	}

	seen := make(map[id.ID]bool, len(after))
	for _, l := range after {
		old, existed := byID[l.LineID]
		if !existed {
			d.Added = append(d.Added, l)
			continue
		}
		seen[l.LineID] = true
		if lineChanged(old, l) {
			d.Changed = append(d.Changed, LineChange{Before: old, After: l})
		}
	}
	for _, l := range before {
		if !seen[l.LineID] {
			d.Removed = append(d.Removed, l)
		}
	}
	return d
}

func lineChanged(a, b Line) bool {
	return a.ProductCode != b.ProductCode ||
		a.ProductName != b.ProductName ||
		a.Quantity != b.Quantity ||
		!a.UnitPrice.Equal(b.UnitPrice) ||
		!a.TotalPrice.Equal(b.TotalPrice) ||
		a.SupplierOrderID != b.SupplierOrderID ||
		!sameSerialSet(a.Serials, b.Serials)
}

// sameSerialSet compares two serial sets ignoring order.
func sameSerialSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}
