package handlers

import (
	"github.com/gin-gonic/gin"

	"tradeledger/internal/dialog"
	"tradeledger/internal/infrastructure/http/v1/dto"
)

// DialogHandler forwards front-end events to the dialog engine. All order
// mutations flow through here.
type DialogHandler struct {
	*BaseHandler
	engine *dialog.Engine
}

// NewDialogHandler creates a new dialog handler.
func NewDialogHandler(base *BaseHandler, engine *dialog.Engine) *DialogHandler {
	return &DialogHandler{
		BaseHandler: base,
		engine:      engine,
	}
}

// PostEvent handles POST /dialog/events
func (h *DialogHandler) PostEvent(c *gin.Context) {
	var req dto.DialogEventRequest
	if !h.BindJSON(c, &req) {
		return
	}

	prompt := h.engine.Handle(c.Request.Context(), req.ToEvent())
	h.OK(c, prompt)
}

// GetMenu handles GET /dialog/menu
func (h *DialogHandler) GetMenu(c *gin.Context) {
	h.OK(c, dialog.MainMenu())
}

// RegisterRoutes registers dialog routes.
func (h *DialogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/events", h.PostEvent)
	rg.GET("/menu", h.GetMenu)
}
