// Package main is the entry point for the tradeledger API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradeledger/internal/dialog"
	"tradeledger/internal/domain/cash"
	"tradeledger/internal/domain/catalog"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/domain/reports"
	"tradeledger/internal/domain/warehouse"
	"tradeledger/internal/infrastructure/catalog/xlsx"
	v1 "tradeledger/internal/infrastructure/http/v1"
	"tradeledger/internal/infrastructure/numerator"
	"tradeledger/internal/infrastructure/storage/postgres"
	"tradeledger/internal/infrastructure/storage/postgres/cash_repo"
	"tradeledger/internal/infrastructure/storage/postgres/order_repo"
	"tradeledger/internal/infrastructure/storage/postgres/report_repo"
	"tradeledger/internal/infrastructure/storage/postgres/warehouse_repo"
	"tradeledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting tradeledger server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	poolCfg := postgres.DefaultPoolConfig(dsn)
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	unitRepo := warehouse_repo.NewUnitRepo(txManager)
	supplierRepo := order_repo.NewSupplierRepo(txManager)
	clientRepo := order_repo.NewClientRepo(txManager)
	counterpartyRepo := order_repo.NewCounterpartyRepo(txManager)
	cashRepo := cash_repo.NewEntryRepo(txManager)
	reportRepo := report_repo.NewReportRepo(txManager)

	// --- Domain services ---
	reconciler := warehouse.NewReconciler(unitRepo, txManager)
	numbering := numerator.New(txManager)

	orderService := orders.NewService(
		supplierRepo,
		clientRepo,
		counterpartyRepo,
		cashRepo,
		reconciler,
		numbering,
		txManager,
	)
	cashService := cash.NewService(cashRepo, txManager)
	reportService := reports.NewService(reportRepo)

	// --- Product catalog ---
	catalogPath := getEnv("CATALOG_PATH", "catalog.xlsx")
	catalogSheet := getEnv("CATALOG_SHEET", "Sheet1")
	directory := catalog.NewDirectory(xlsx.NewSource(catalogPath, catalogSheet))
	log.Infow("product catalog configured", "path", catalogPath, "sheet", catalogSheet)

	// --- Dialog engine ---
	engine := dialog.NewEngine(orderService, cashService, reportService, directory)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:    pool,
		Logger:  log,
		Orders:  orderService,
		Cash:    cashService,
		Reports: reportService,
		Dialog:  engine,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
