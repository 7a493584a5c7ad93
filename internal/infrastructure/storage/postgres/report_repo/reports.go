// Package report_repo provides the PostgreSQL read side for reports. All
// queries aggregate the order, warehouse and cash tables directly; nothing is
// materialized.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/reports"
	"tradeledger/internal/domain/warehouse"
	"tradeledger/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	tx *postgres.TxManager
}

// NewReportRepo creates a new report repository.
func NewReportRepo(tx *postgres.TxManager) *ReportRepo {
	return &ReportRepo{tx: tx}
}

var _ reports.Repository = (*ReportRepo)(nil)

func (r *ReportRepo) querier(ctx context.Context) postgres.Querier {
	return r.tx.GetQuerier(ctx)
}

func (r *ReportRepo) SupplyMovements(ctx context.Context, from, to time.Time) ([]reports.MovementLine, error) {
	query := `
		SELECT o.date, l.product_name,
			SUM(l.quantity)::int AS quantity,
			SUM(l.total_price) AS total
		FROM supplier_orders o
		JOIN supplier_order_lines l ON l.order_id = o.id
		WHERE o.date >= $1 AND o.date <= $2
		GROUP BY o.date, l.product_name
		ORDER BY o.date, l.product_name
	`

	var lines []reports.MovementLine
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, query, from, to); err != nil {
		return nil, fmt.Errorf("supply movements: %w", err)
	}
	return lines, nil
}

func (r *ReportRepo) SalesMovements(ctx context.Context, from, to time.Time) ([]reports.MovementLine, error) {
	query := `
		SELECT o.date, l.product_name,
			SUM(l.quantity)::int AS quantity,
			SUM(l.total_price) AS total
		FROM client_orders o
		JOIN client_order_lines l ON l.order_id = o.id
		WHERE o.date >= $1 AND o.date <= $2
		GROUP BY o.date, l.product_name
		ORDER BY o.date, l.product_name
	`

	var lines []reports.MovementLine
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, query, from, to); err != nil {
		return nil, fmt.Errorf("sales movements: %w", err)
	}
	return lines, nil
}

func (r *ReportRepo) CashSums(ctx context.Context, date time.Time) (types.Money, types.Money, error) {
	query := `
		SELECT COALESCE(SUM(income), 0), COALESCE(SUM(expense), 0)
		FROM cash_entries
		WHERE date = $1
	`

	var income, expense types.Money
	err := r.querier(ctx).QueryRow(ctx, query, date).Scan(&income, &expense)
	if err != nil {
		return types.Zero(), types.Zero(), fmt.Errorf("cash sums: %w", err)
	}
	return income, expense, nil
}

// StockValue prices unsold units at their stored unit cost.
func (r *ReportRepo) StockValue(ctx context.Context) (types.Money, error) {
	query := `
		SELECT COALESCE(SUM(unit_cost), 0)
		FROM warehouse_units
		WHERE client_order_id IS NULL
	`

	var value types.Money
	if err := r.querier(ctx).QueryRow(ctx, query).Scan(&value); err != nil {
		return types.Zero(), fmt.Errorf("stock value: %w", err)
	}
	return value, nil
}

func (r *ReportRepo) StockCounts(ctx context.Context) ([]warehouse.StockCount, error) {
	query := `
		SELECT product_name, COUNT(*)::int AS in_stock
		FROM warehouse_units
		WHERE client_order_id IS NULL
		GROUP BY product_name
		ORDER BY product_name
	`

	var rows []warehouse.StockCount
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, query); err != nil {
		return nil, fmt.Errorf("stock counts: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) Expenses(ctx context.Context, from, to time.Time) ([]reports.ExpenseLine, error) {
	query := `
		SELECT date, comment, expense AS amount
		FROM cash_entries
		WHERE expense > 0 AND date >= $1 AND date <= $2
		ORDER BY date, id
	`

	var lines []reports.ExpenseLine
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, query, from, to); err != nil {
		return nil, fmt.Errorf("expenses: %w", err)
	}
	return lines, nil
}

func (r *ReportRepo) ExpensesByMonth(ctx context.Context, year int) ([]reports.MonthlyExpense, error) {
	query := `
		SELECT to_char(date, 'YYYY-MM') AS month, SUM(expense) AS total
		FROM cash_entries
		WHERE expense > 0 AND date_part('year', date) = $1
		GROUP BY to_char(date, 'YYYY-MM')
		ORDER BY month
	`

	var months []reports.MonthlyExpense
	if err := pgxscan.Select(ctx, r.querier(ctx), &months, query, year); err != nil {
		return nil, fmt.Errorf("expenses by month: %w", err)
	}
	return months, nil
}
