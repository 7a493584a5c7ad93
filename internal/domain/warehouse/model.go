// Package warehouse tracks serialized stock units from supply to sale.
package warehouse

import (
	"sort"

	"tradeledger/internal/core/types"
)

// Unit is one physical serialized item. A unit is created when a supplier
// order line with serials is finalized, and lives until that line is removed.
// ClientOrderID is nil while the unit is in stock and set once it is sold.
type Unit struct {
	Serial          string      `db:"serial" json:"serial"`
	ProductName     string      `db:"product_name" json:"productName"`
	SupplierOrderID string      `db:"supplier_order_id" json:"supplierOrderId"`
	ClientOrderID   *string     `db:"client_order_id" json:"clientOrderId,omitempty"`
	UnitCost        types.Money `db:"unit_cost" json:"unitCost"`
}

// InStock reports whether the unit is not linked to any client order.
func (u Unit) InStock() bool {
	return u.ClientOrderID == nil
}

// Classification is the result of matching requested serials against stock.
type Classification struct {
	// Available units are in stock and may be claimed.
	Available []Unit
	// Sold units are already linked to a client order.
	Sold []Unit
	// Unknown serials have no warehouse record at all.
	Unknown []string
}

// Clean reports whether every requested serial is available.
func (c Classification) Clean() bool {
	return len(c.Sold) == 0 && len(c.Unknown) == 0
}

// SoldSerials returns the serials of already-sold units.
func (c Classification) SoldSerials() []string {
	out := make([]string, 0, len(c.Sold))
	for _, u := range c.Sold {
		out = append(out, u.Serial)
	}
	return out
}

// SupplyGroup is a batch of available units sharing product and supply origin.
// A client order entered by serial number produces one line item per group.
type SupplyGroup struct {
	ProductName     string
	SupplierOrderID string
	UnitCost        types.Money
	Serials         []string
}

// Quantity returns the number of units in the group.
func (g SupplyGroup) Quantity() int {
	return len(g.Serials)
}

// GroupBySupply partitions units by (product name, supplier order) pairs.
// Groups and serials within each group come out in deterministic order so the
// synthesized line items are stable across runs.
func GroupBySupply(units []Unit) []SupplyGroup {
	type key struct {
		product string
		order   string
	}
	byKey := make(map[key]*SupplyGroup)
	var order []key

	for _, u := range units {
		k := key{product: u.ProductName, order: u.SupplierOrderID}
		g, ok := byKey[k]
		if !ok {
			g = &SupplyGroup{
				ProductName:     u.ProductName,
				SupplierOrderID: u.SupplierOrderID,
				UnitCost:        u.UnitCost,
			}
			byKey[k] = g
			order = append(order, k)
		}
		g.Serials = append(g.Serials, u.Serial)
	}

	groups := make([]SupplyGroup, 0, len(byKey))
	for _, k := range order {
		g := byKey[k]
		sort.Strings(g.Serials)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].ProductName != groups[j].ProductName {
			return groups[i].ProductName < groups[j].ProductName
		}
		return groups[i].SupplierOrderID < groups[j].SupplierOrderID
	})
	return groups
}
