package reports

import (
	"context"
	"time"

	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/warehouse"
)

// Repository provides the aggregate queries behind the report service.
// Implementations live in infrastructure/storage/postgres/report_repo.
type Repository interface {
	// SupplyMovements aggregates supplier order lines per product and date.
	SupplyMovements(ctx context.Context, from, to time.Time) ([]MovementLine, error)

	// SalesMovements aggregates client order lines per product and date.
	SalesMovements(ctx context.Context, from, to time.Time) ([]MovementLine, error)

	// CashSums returns total income and expense recorded for the day.
	CashSums(ctx context.Context, date time.Time) (income, expense types.Money, err error)

	// StockValue sums unit cost over unsold warehouse units.
	StockValue(ctx context.Context) (types.Money, error)

	// StockCounts tallies unsold units per product.
	StockCounts(ctx context.Context) ([]warehouse.StockCount, error)

	// Expenses lists expense entries within an inclusive range.
	Expenses(ctx context.Context, from, to time.Time) ([]ExpenseLine, error)

	// ExpensesByMonth aggregates expenses per calendar month of a year.
	ExpensesByMonth(ctx context.Context, year int) ([]MonthlyExpense, error)
}
