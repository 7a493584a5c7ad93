package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/types"
)

// Service assembles reports. Pure read side: it never writes to the ledger.
type Service struct {
	repo Repository
}

// NewService creates a report service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Period builds the supply/sales/net-profit report for an inclusive range.
func (s *Service) Period(ctx context.Context, from, to time.Time) (*PeriodReport, error) {
	if to.Before(from) {
		return nil, apperror.NewValidation("report range end precedes start")
	}

	supply, err := s.repo.SupplyMovements(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("supply movements: %w", err)
	}
	sales, err := s.repo.SalesMovements(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales movements: %w", err)
	}

	report := &PeriodReport{
		From:        from,
		To:          to,
		SupplyTotal: types.Zero(),
		SalesTotal:  types.Zero(),
	}
	for _, line := range supply {
		line.Kind = MovementSupply
		report.Lines = append(report.Lines, line)
		report.SupplyQty += line.Quantity
		report.SupplyTotal = report.SupplyTotal.Add(line.Total)
	}
	for _, line := range sales {
		line.Kind = MovementSale
		report.Lines = append(report.Lines, line)
		report.SalesQty += line.Quantity
		report.SalesTotal = report.SalesTotal.Add(line.Total)
	}
	report.NetProfit = report.SalesTotal.Sub(report.SupplyTotal)

	sort.Slice(report.Lines, func(i, j int) bool {
		a, b := report.Lines[i], report.Lines[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.Kind < b.Kind
	})
	return report, nil
}

// CashPosition computes the day's snapshot: counted balance plus stock value
// at cost minus the day's expenses.
func (s *Service) CashPosition(ctx context.Context, date time.Time) (*CashPosition, error) {
	income, expense, err := s.repo.CashSums(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("cash sums: %w", err)
	}
	stockValue, err := s.repo.StockValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("stock value: %w", err)
	}

	balance := income.Sub(expense)
	return &CashPosition{
		Date:        date,
		CashBalance: balance,
		StockValue:  stockValue,
		Expenses:    expense,
		Total:       balance.Add(stockValue).Sub(expense),
	}, nil
}

// Stock lists in-stock counts per product.
func (s *Service) Stock(ctx context.Context) (*StockView, error) {
	rows, err := s.repo.StockCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("stock counts: %w", err)
	}
	view := &StockView{Rows: rows}
	for _, r := range rows {
		view.TotalUnits += r.InStock
	}
	return view, nil
}

// DayExpenses lists expenses recorded on one day.
func (s *Service) DayExpenses(ctx context.Context, date time.Time) ([]ExpenseLine, error) {
	return s.repo.Expenses(ctx, date, date)
}

// YearExpensesByMonth aggregates a year's expenses per month.
func (s *Service) YearExpensesByMonth(ctx context.Context, year int) ([]MonthlyExpense, error) {
	return s.repo.ExpensesByMonth(ctx, year)
}
