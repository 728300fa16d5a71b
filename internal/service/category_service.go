package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"grocitrack/internal/dto"
	"grocitrack/internal/models"

	"go.uber.org/zap"
)

// TaxonomyClient exposes the vendor's category tree endpoints.
type TaxonomyClient interface {
	GetCategories(ctx context.Context) ([]dto.VendorCategory, error)
	GetSubCategories(ctx context.Context, taxonomyID int) ([]dto.VendorCategory, error)
}

// CategoryStore persists taxonomy nodes, their adjacency rows and the
// product-category links.
type CategoryStore interface {
	Upsert(ctx context.Context, category *models.Category) error
	AddHierarchy(ctx context.Context, parentTaxonomyID, childTaxonomyID string) error
	DirectParents(ctx context.Context, childTaxonomyID string) ([]string, error)
	LinkProduct(ctx context.Context, webshopID, taxonomyID string) error
	Count(ctx context.Context) (int, error)
}

// CategoryService syncs the vendor taxonomy and links resolved products
// to it.
type CategoryService struct {
	client  TaxonomyClient
	store   CategoryStore
	workers int
	logger  *zap.Logger
}

func NewCategoryService(client TaxonomyClient, store CategoryStore, workers int, logger *zap.Logger) *CategoryService {
	if workers < 1 {
		workers = 1
	}
	return &CategoryService{
		client:  client,
		store:   store,
		workers: workers,
		logger:  logger,
	}
}

// HasCategories reports whether the taxonomy was synced before.
func (s *CategoryService) HasCategories(ctx context.Context) (bool, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SyncTaxonomy crawls the vendor taxonomy breadth-first and persists
// every node with its parent edge. The per-level fan-out is bounded by
// the worker count so the crawl respects the vendor's implicit rate
// limits, unlike fan-out-per-node. A failed subtree fetch is logged and
// skipped; the rest of the level continues.
func (s *CategoryService) SyncTaxonomy(ctx context.Context) (int, error) {
	roots, err := s.client.GetCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch taxonomy roots: %w", err)
	}

	type frontierNode struct {
		category dto.VendorCategory
		parentID string
	}

	frontier := make([]frontierNode, 0, len(roots))
	for _, root := range roots {
		frontier = append(frontier, frontierNode{category: root})
	}

	synced := 0
	for len(frontier) > 0 {
		type crawlResult struct {
			node     frontierNode
			children []dto.VendorCategory
		}

		results := make([]crawlResult, len(frontier))
		sem := make(chan struct{}, s.workers)
		var wg sync.WaitGroup
		for i := range frontier {
			wg.Add(1)
			go func(i int, node frontierNode) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				children, err := s.client.GetSubCategories(ctx, node.category.ID)
				if err != nil {
					s.logger.Warn("Failed to fetch subcategories",
						zap.String("category", node.category.Name),
						zap.Error(err),
					)
				}
				results[i] = crawlResult{node: node, children: children}
			}(i, frontier[i])
		}
		wg.Wait()

		var next []frontierNode
		for _, result := range results {
			taxonomyID := strconv.Itoa(result.node.category.ID)
			category := &models.Category{
				TaxonomyID: taxonomyID,
				Name:       result.node.category.Name,
				Slug:       result.node.category.SlugifiedName,
			}
			if err := s.store.Upsert(ctx, category); err != nil {
				return synced, fmt.Errorf("failed to persist category %q: %w", category.Name, err)
			}
			if result.node.parentID != "" {
				if err := s.store.AddHierarchy(ctx, result.node.parentID, taxonomyID); err != nil {
					return synced, fmt.Errorf("failed to persist hierarchy for %q: %w", category.Name, err)
				}
			}
			synced++

			for _, child := range result.children {
				next = append(next, frontierNode{category: child, parentID: taxonomyID})
			}
		}
		frontier = next
	}

	s.logger.Info("Taxonomy sync finished", zap.Int("categories", synced))
	return synced, nil
}

// LinkProducts attaches each resolved product to its category and every
// ancestor of that category, walking the adjacency rows iteratively.
// Products without a resolved category are skipped.
func (s *CategoryService) LinkProducts(ctx context.Context, products []*models.Product) error {
	for _, product := range products {
		if product.CategoryID == nil || product.ProductID == nil {
			continue
		}

		ancestors, err := s.ancestorsOf(ctx, *product.CategoryID)
		if err != nil {
			return fmt.Errorf("failed to collect ancestors of %s: %w", *product.CategoryID, err)
		}
		for _, taxonomyID := range ancestors {
			if err := s.store.LinkProduct(ctx, *product.ProductID, taxonomyID); err != nil {
				return fmt.Errorf("failed to link product %s to category %s: %w", *product.ProductID, taxonomyID, err)
			}
		}
	}
	return nil
}

// ancestorsOf returns the category itself plus all transitive parents.
// The visited set guards against cycles in vendor data.
func (s *CategoryService) ancestorsOf(ctx context.Context, taxonomyID string) ([]string, error) {
	visited := map[string]bool{}
	var ordered []string

	stack := []string{taxonomyID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		ordered = append(ordered, current)

		parents, err := s.store.DirectParents(ctx, current)
		if err != nil {
			return nil, err
		}
		stack = append(stack, parents...)
	}

	return ordered, nil
}
