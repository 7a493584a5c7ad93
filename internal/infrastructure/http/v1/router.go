// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"tradeledger/internal/dialog"
	"tradeledger/internal/domain/cash"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/domain/reports"
	"tradeledger/internal/infrastructure/http/v1/handlers"
	"tradeledger/internal/infrastructure/http/v1/middleware"
	"tradeledger/internal/infrastructure/storage/postgres"
	"tradeledger/pkg/logger"
)

// RouterConfig holds the wired services the router exposes.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// Orders exposes the order books read side
	Orders *orders.Service

	// Cash exposes the cash ledger read side
	Cash *cash.Service

	// Reports builds the period, stock and expense reports
	Reports *reports.Service

	// Dialog is the conversational engine all mutations go through
	Dialog *dialog.Engine
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		baseHandler := handlers.NewBaseHandler()

		dialogHandler := handlers.NewDialogHandler(baseHandler, cfg.Dialog)
		dialogHandler.RegisterRoutes(apiV1.Group("/dialog"))

		ordersHandler := handlers.NewOrdersHandler(baseHandler, cfg.Orders)
		ordersHandler.RegisterRoutes(apiV1.Group("/orders"))

		cashHandler := handlers.NewCashHandler(baseHandler, cfg.Cash)
		cashHandler.RegisterRoutes(apiV1.Group("/cash"))

		reportsHandler := handlers.NewReportsHandler(baseHandler, cfg.Reports)
		reportsHandler.RegisterRoutes(apiV1.Group("/reports"))
		apiV1.GET("/warehouse/stock", reportsHandler.GetStock)
	}

	return router
}
