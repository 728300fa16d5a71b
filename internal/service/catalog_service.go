package service

import (
	"context"
	"fmt"

	"grocitrack/internal/dto"
	"grocitrack/internal/models"

	"go.uber.org/zap"
)

// CatalogClient exposes the vendor endpoints the catalog sync pulls from.
type CatalogClient interface {
	GetCategories(ctx context.Context) ([]dto.VendorCategory, error)
	SearchProductsByCategory(ctx context.Context, taxonomyID int) ([]models.CatalogProduct, error)
	FetchPreviouslyBought(ctx context.Context) ([]models.CatalogProduct, error)
}

// CatalogStore persists the two local catalog sources.
type CatalogStore interface {
	UpsertCatalogProducts(ctx context.Context, products []models.CatalogProduct) error
	UpsertPreviousProducts(ctx context.Context, products []models.CatalogProduct) error
}

// CatalogService refreshes the vendor catalog mirror and the
// previously-bought table that the matcher searches.
type CatalogService struct {
	client CatalogClient
	store  CatalogStore
	logger *zap.Logger
}

func NewCatalogService(client CatalogClient, store CatalogStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		client: client,
		store:  store,
		logger: logger,
	}
}

// SyncCatalog walks every taxonomy root and mirrors its products.
// Products appearing under several categories are deduplicated by
// webshop id, first occurrence wins. A failed category is logged and
// skipped so one broken shelf never empties the mirror.
func (s *CatalogService) SyncCatalog(ctx context.Context) (int, error) {
	categories, err := s.client.GetCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch categories: %w", err)
	}

	seen := map[string]bool{}
	var mirror []models.CatalogProduct
	for _, category := range categories {
		products, err := s.client.SearchProductsByCategory(ctx, category.ID)
		if err != nil {
			s.logger.Warn("Failed to fetch category products",
				zap.String("category", category.Name),
				zap.Error(err),
			)
			continue
		}

		for _, product := range products {
			if seen[product.WebshopID] {
				continue
			}
			seen[product.WebshopID] = true
			mirror = append(mirror, product)
		}
		s.logger.Debug("Mirrored category", zap.String("category", category.Name), zap.Int("products", len(products)))
	}

	if err := s.store.UpsertCatalogProducts(ctx, mirror); err != nil {
		return 0, fmt.Errorf("failed to persist catalog mirror: %w", err)
	}

	s.logger.Info("Catalog sync finished", zap.Int("products", len(mirror)))
	return len(mirror), nil
}

// SyncPreviouslyBought refreshes the purchase-history catalog, also
// deduplicated by webshop id.
func (s *CatalogService) SyncPreviouslyBought(ctx context.Context) (int, error) {
	products, err := s.client.FetchPreviouslyBought(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch previously bought products: %w", err)
	}

	seen := map[string]bool{}
	unique := make([]models.CatalogProduct, 0, len(products))
	for _, product := range products {
		if seen[product.WebshopID] {
			continue
		}
		seen[product.WebshopID] = true
		unique = append(unique, product)
	}

	if err := s.store.UpsertPreviousProducts(ctx, unique); err != nil {
		return 0, fmt.Errorf("failed to persist previously bought products: %w", err)
	}

	s.logger.Info("Previously-bought sync finished", zap.Int("products", len(unique)))
	return len(unique), nil
}
