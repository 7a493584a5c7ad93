package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"tradeledger/internal/domain/reports"
	"tradeledger/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetPeriod handles GET /reports/period
func (h *ReportsHandler) GetPeriod(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PeriodReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	from, err := dto.ParseDate("from", req.From)
	if err != nil {
		h.Error(c, err)
		return
	}
	to, err := dto.ParseDate("to", req.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.Period(ctx, from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// GetCashPosition handles GET /reports/cash-position
func (h *ReportsHandler) GetCashPosition(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CashPositionRequest
	if !h.BindQuery(c, &req) {
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		parsed, err := dto.ParseDate("date", req.Date)
		if err != nil {
			h.Error(c, err)
			return
		}
		date = parsed
	}

	position, err := h.service.CashPosition(ctx, date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, position)
}

// GetStock handles GET /warehouse/stock
func (h *ReportsHandler) GetStock(c *gin.Context) {
	view, err := h.service.Stock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// GetDayExpenses handles GET /reports/expenses/day
func (h *ReportsHandler) GetDayExpenses(c *gin.Context) {
	var req dto.DayExpensesRequest
	if !h.BindQuery(c, &req) {
		return
	}
	date, err := dto.ParseDate("date", req.Date)
	if err != nil {
		h.Error(c, err)
		return
	}

	lines, err := h.service.DayExpenses(c.Request.Context(), date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"date": date.Format(dto.DateFormat), "expenses": lines})
}

// GetMonthlyExpenses handles GET /reports/expenses/monthly
func (h *ReportsHandler) GetMonthlyExpenses(c *gin.Context) {
	var req dto.MonthlyExpensesRequest
	if !h.BindQuery(c, &req) {
		return
	}

	months, err := h.service.YearExpensesByMonth(c.Request.Context(), req.Year)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"year": req.Year, "months": months})
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/period", h.GetPeriod)
	rg.GET("/cash-position", h.GetCashPosition)
	rg.GET("/expenses/day", h.GetDayExpenses)
	rg.GET("/expenses/monthly", h.GetMonthlyExpenses)
}
