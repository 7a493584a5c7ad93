package cash

import (
	"context"
	"fmt"
	"time"

	"tradeledger/internal/core/tx"
	"tradeledger/internal/core/types"
	"tradeledger/pkg/logger"
)

// Service records cash movements.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a cash service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// RecordExpense appends an expense entry for the given day.
func (s *Service) RecordExpense(ctx context.Context, date time.Time, amount types.Money, comment string) (Entry, error) {
	entry := NewExpense(date, amount, comment)
	if err := s.append(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// SetBalance appends an income entry representing the counted cash balance
// for the day. Later balance entries supersede earlier ones only by being
// summed into the day's income; the ledger itself is never rewritten.
func (s *Service) SetBalance(ctx context.Context, date time.Time, amount types.Money) (Entry, error) {
	entry := NewIncome(date, amount, "cash balance")
	if err := s.append(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *Service) append(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Append(ctx, entry)
	})
	if err != nil {
		return fmt.Errorf("append cash entry: %w", err)
	}
	logger.Info(ctx, "cash entry recorded",
		"date", entry.Date.Format(types.DateFormat),
		"income", entry.Income, "expense", entry.Expense)
	return nil
}

// DayEntries lists all entries for one day.
func (s *Service) DayEntries(ctx context.Context, date time.Time) ([]Entry, error) {
	return s.repo.ListByDate(ctx, date)
}

// MonthEntries lists all entries for one calendar month.
func (s *Service) MonthEntries(ctx context.Context, year int, month time.Month) ([]Entry, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return s.repo.ListByRange(ctx, from, to)
}
