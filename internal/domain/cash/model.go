// Package cash keeps the petty-cash ledger of incomes and expenses.
package cash

import (
	"time"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/id"
	"tradeledger/internal/core/types"
)

// Entry is one ledger row. Income and expense are kept in separate columns so
// daily sums never need sign juggling; an entry normally carries only one of
// the two.
type Entry struct {
	ID      id.ID       `db:"id" json:"id"`
	Date    time.Time   `db:"date" json:"date"`
	Income  types.Money `db:"income" json:"income"`
	Expense types.Money `db:"expense" json:"expense"`
	Comment string      `db:"comment" json:"comment"`
}

// NewIncome builds an income entry.
func NewIncome(date time.Time, amount types.Money, comment string) Entry {
	return Entry{ID: id.New(), Date: date, Income: amount, Expense: types.Zero(), Comment: comment}
}

// NewExpense builds an expense entry.
func NewExpense(date time.Time, amount types.Money, comment string) Entry {
	return Entry{ID: id.New(), Date: date, Income: types.Zero(), Expense: amount, Comment: comment}
}

// Validate checks the entry before it is appended.
func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return apperror.NewValidation("cash entry date must be set")
	}
	if e.Income.IsNegative() || e.Expense.IsNegative() {
		return apperror.NewValidation("cash amounts must not be negative")
	}
	if e.Income.IsZero() && e.Expense.IsZero() {
		return apperror.NewValidation("cash entry must carry an income or an expense")
	}
	return nil
}
