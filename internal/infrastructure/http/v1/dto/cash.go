package dto

import (
	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/cash"
)

// CashDayRequest selects the day for the ledger view.
type CashDayRequest struct {
	Date string `form:"date" binding:"required"`
}

// CashMonthRequest selects the month for the ledger view.
type CashMonthRequest struct {
	Year  int `form:"year" binding:"required,min=2000,max=2200"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// CashEntriesResponse lists ledger entries with period totals.
type CashEntriesResponse struct {
	Entries  []cash.Entry `json:"entries"`
	Income   types.Money  `json:"income"`
	Expenses types.Money  `json:"expenses"`
	Net      types.Money  `json:"net"`
}

// NewCashEntriesResponse sums the entries into the response totals.
func NewCashEntriesResponse(entries []cash.Entry) CashEntriesResponse {
	resp := CashEntriesResponse{
		Entries:  entries,
		Income:   types.Zero(),
		Expenses: types.Zero(),
	}
	for _, e := range entries {
		resp.Income = resp.Income.Add(e.Income)
		resp.Expenses = resp.Expenses.Add(e.Expense)
	}
	resp.Net = resp.Income.Sub(resp.Expenses)
	return resp
}
