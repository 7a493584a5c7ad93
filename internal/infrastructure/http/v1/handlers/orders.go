package handlers

import (
	"github.com/gin-gonic/gin"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/infrastructure/http/v1/dto"
)

// OrdersHandler exposes the read side of the order books. Mutations go
// through the dialog engine.
type OrdersHandler struct {
	*BaseHandler
	service *orders.Service
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(base *BaseHandler, service *orders.Service) *OrdersHandler {
	return &OrdersHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetSupplier handles GET /orders/suppliers/:id
func (h *OrdersHandler) GetSupplier(c *gin.Context) {
	order, err := h.service.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// GetClient handles GET /orders/clients/:id
func (h *OrdersHandler) GetClient(c *gin.Context) {
	order, err := h.service.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// Search handles GET /orders/search
func (h *OrdersHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SearchOrdersRequest
	if !h.BindQuery(c, &req) {
		return
	}
	if req.Empty() {
		h.Error(c, apperror.NewValidation("at least one search criterion is required"))
		return
	}

	filter := orders.SearchFilter{
		ID:           req.ID,
		ProductQuery: req.Product,
		Serial:       req.Serial,
	}
	if req.Date != "" {
		date, err := dto.ParseDate("date", req.Date)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.Date = &date
	}

	suppliers, err := h.service.SearchSuppliers(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	clients, err := h.service.SearchClients(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SearchOrdersResponse{Suppliers: suppliers, Clients: clients})
}

// ListDeferred handles GET /orders/deferred
func (h *OrdersHandler) ListDeferred(c *gin.Context) {
	deferred, err := h.service.ListDeferred(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"orders": deferred})
}

// RegisterRoutes registers order routes.
func (h *OrdersHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/suppliers/:id", h.GetSupplier)
	rg.GET("/clients/:id", h.GetClient)
	rg.GET("/search", h.Search)
	rg.GET("/deferred", h.ListDeferred)
}
