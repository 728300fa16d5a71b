package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grocitrack/internal/api"
	"grocitrack/internal/api/handlers"
	"grocitrack/internal/appie"
	"grocitrack/internal/repository"
	"grocitrack/internal/service"
	"grocitrack/pkg/config"
	"grocitrack/pkg/logger"
	"grocitrack/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting grocitrack service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	receiptRepo := repository.NewReceiptRepository(db, appLogger)
	locationRepo := repository.NewLocationRepository(db, appLogger)
	productRepo := repository.NewProductRepository(db, appLogger)
	discountRepo := repository.NewDiscountRepository(db, appLogger)
	categoryRepo := repository.NewCategoryRepository(db, appLogger)
	catalogRepo := repository.NewCatalogRepository(db, appLogger)

	// Initialize vendor client and services
	client := appie.NewClient(&cfg.Appie, appLogger)

	categoryService := service.NewCategoryService(client, categoryRepo, cfg.Matcher.Workers, appLogger)
	matcher := service.NewMatcher(catalogRepo, catalogRepo, client, categoryRepo, cfg.Matcher.SearchLimit, appLogger)
	receiptService := service.NewReceiptService(
		client,
		matcher,
		receiptRepo,
		locationRepo,
		productRepo,
		discountRepo,
		categoryService,
		cfg.Matcher.Workers,
		appLogger,
	)

	// The taxonomy must exist before products can be linked to it.
	hasCategories, err := categoryService.HasCategories(ctx)
	if err != nil {
		appLogger.Fatal("Failed to inspect category table", zap.Error(err))
	}
	if !hasCategories {
		if _, err := categoryService.SyncTaxonomy(ctx); err != nil {
			appLogger.Fatal("Failed to sync category taxonomy", zap.Error(err))
		}
	}

	// One ingest pass at startup; further passes run via the sync route.
	if _, err := receiptService.SyncReceipts(ctx); err != nil {
		appLogger.Error("Initial receipt sync failed", zap.Error(err))
	}

	// Initialize handlers and router
	receiptHandler := handlers.NewReceiptHandler(receiptRepo, productRepo, receiptService, appLogger)
	app := api.SetupRouter(receiptHandler)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
