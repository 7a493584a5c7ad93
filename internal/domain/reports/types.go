// Package reports derives read-side summaries from the ledger.
package reports

import (
	"time"

	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/warehouse"
)

// MovementKind tags a period report line as supply or sale.
type MovementKind string

const (
	MovementSupply MovementKind = "supply"
	MovementSale   MovementKind = "sale"
)

// MovementLine is one per-product, per-date aggregate within a period.
type MovementLine struct {
	Date        time.Time    `db:"date" json:"date"`
	ProductName string       `db:"product_name" json:"productName"`
	Kind        MovementKind `db:"kind" json:"kind"`
	Quantity    int          `db:"quantity" json:"quantity"`
	Total       types.Money  `db:"total" json:"total"`
}

// PeriodReport summarizes supply and sales activity over an inclusive range.
// NetProfit is sales total minus supply total.
type PeriodReport struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	Lines []MovementLine `json:"lines"`

	SupplyQty   int         `json:"supplyQty"`
	SupplyTotal types.Money `json:"supplyTotal"`
	SalesQty    int         `json:"salesQty"`
	SalesTotal  types.Money `json:"salesTotal"`
	NetProfit   types.Money `json:"netProfit"`
}

// CashPosition is the day's money snapshot. StockValue prices unsold
// warehouse units at their stored unit cost, not at any sale price.
type CashPosition struct {
	Date        time.Time   `json:"date"`
	CashBalance types.Money `json:"cashBalance"`
	StockValue  types.Money `json:"stockValue"`
	Expenses    types.Money `json:"expenses"`
	Total       types.Money `json:"total"`
}

// StockView lists in-stock counts grouped by product.
type StockView struct {
	Rows       []warehouse.StockCount `json:"rows"`
	TotalUnits int                    `json:"totalUnits"`
}

// ExpenseLine is one expense entry in a day or month listing.
type ExpenseLine struct {
	Date    time.Time   `db:"date" json:"date"`
	Comment string      `db:"comment" json:"comment"`
	Amount  types.Money `db:"amount" json:"amount"`
}

// MonthlyExpense is a per-month expense aggregate.
type MonthlyExpense struct {
	Month string      `db:"month" json:"month"`
	Total types.Money `db:"total" json:"total"`
}
