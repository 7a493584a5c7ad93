package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"tradeledger/internal/domain/cash"
	"tradeledger/internal/infrastructure/http/v1/dto"
)

// CashHandler exposes the read side of the cash ledger.
type CashHandler struct {
	*BaseHandler
	service *cash.Service
}

// NewCashHandler creates a new cash handler.
func NewCashHandler(base *BaseHandler, service *cash.Service) *CashHandler {
	return &CashHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Day handles GET /cash/day
func (h *CashHandler) Day(c *gin.Context) {
	var req dto.CashDayRequest
	if !h.BindQuery(c, &req) {
		return
	}
	date, err := dto.ParseDate("date", req.Date)
	if err != nil {
		h.Error(c, err)
		return
	}

	entries, err := h.service.DayEntries(c.Request.Context(), date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCashEntriesResponse(entries))
}

// Month handles GET /cash/month
func (h *CashHandler) Month(c *gin.Context) {
	var req dto.CashMonthRequest
	if !h.BindQuery(c, &req) {
		return
	}

	entries, err := h.service.MonthEntries(c.Request.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCashEntriesResponse(entries))
}

// RegisterRoutes registers cash routes.
func (h *CashHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/day", h.Day)
	rg.GET("/month", h.Month)
}
