package dto

// PeriodReportRequest selects the inclusive date range for the period report.
type PeriodReportRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// CashPositionRequest selects the day for the cash position snapshot.
// Date defaults to today when omitted.
type CashPositionRequest struct {
	Date string `form:"date"`
}

// DayExpensesRequest selects the day for the expense listing.
type DayExpensesRequest struct {
	Date string `form:"date" binding:"required"`
}

// MonthlyExpensesRequest selects the year for the per-month aggregate.
type MonthlyExpensesRequest struct {
	Year int `form:"year" binding:"required,min=2000,max=2200"`
}
