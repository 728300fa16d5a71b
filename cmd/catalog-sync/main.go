// catalog-sync refreshes the local catalog sources the matcher searches:
// the full vendor catalog mirror, the previously-bought table and the
// category taxonomy.
package main

import (
	"context"
	"fmt"
	"os"

	"grocitrack/internal/appie"
	"grocitrack/internal/repository"
	"grocitrack/internal/service"
	"grocitrack/pkg/config"
	"grocitrack/pkg/logger"
	"grocitrack/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting catalog sync")

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	client := appie.NewClient(&cfg.Appie, appLogger)
	catalogRepo := repository.NewCatalogRepository(db, appLogger)
	categoryRepo := repository.NewCategoryRepository(db, appLogger)

	categoryService := service.NewCategoryService(client, categoryRepo, cfg.Matcher.Workers, appLogger)
	catalogService := service.NewCatalogService(client, catalogRepo, appLogger)

	if _, err := categoryService.SyncTaxonomy(ctx); err != nil {
		appLogger.Fatal("Taxonomy sync failed", zap.Error(err))
	}
	if _, err := catalogService.SyncCatalog(ctx); err != nil {
		appLogger.Fatal("Catalog sync failed", zap.Error(err))
	}
	if _, err := catalogService.SyncPreviouslyBought(ctx); err != nil {
		appLogger.Fatal("Previously-bought sync failed", zap.Error(err))
	}

	appLogger.Info("Catalog sync complete")
}
