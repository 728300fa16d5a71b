package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"grocitrack/internal/dto"
	"grocitrack/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const transactionMomentLayout = "2006-01-02T15:04:05Z"

// ReceiptFetcher is the vendor-side collaborator: it owns auth and
// transient retry, so a returned error is already past recovery.
type ReceiptFetcher interface {
	FetchReceipts(ctx context.Context) ([]dto.ReceiptSummary, error)
	FetchReceiptDetail(ctx context.Context, transactionID string) ([]dto.ReceiptRow, error)
}

// ProductResolver resolves one parsed line item against the catalogs.
type ProductResolver interface {
	Match(ctx context.Context, item ParsedLineItem) models.Product
}

// Persistence collaborators. All writes happen after a receipt is fully
// resolved; none are called from the concurrent resolution phase.

type ReceiptStore interface {
	ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error)
	Create(ctx context.Context, receipt *models.Receipt) error
}

type LocationStore interface {
	FindByName(ctx context.Context, name string) (*models.Location, error)
	Create(ctx context.Context, location *models.Location) error
}

type ProductStore interface {
	CreateBatch(ctx context.Context, products []*models.Product) error
}

type DiscountStore interface {
	CreateBatch(ctx context.Context, discounts []*models.Discount) error
}

// CategoryLinker attaches resolved products to the category taxonomy.
type CategoryLinker interface {
	LinkProducts(ctx context.Context, products []*models.Product) error
}

// ReceiptService drives the ingestion pipeline: fetch, segment, parse,
// resolve, persist. Receipts are processed sequentially; only the
// per-line-item catalog resolution inside one receipt runs concurrently.
type ReceiptService struct {
	fetcher   ReceiptFetcher
	matcher   ProductResolver
	receipts  ReceiptStore
	locations LocationStore
	products  ProductStore
	discounts DiscountStore
	linker    CategoryLinker
	workers   int
	logger    *zap.Logger
}

func NewReceiptService(
	fetcher ReceiptFetcher,
	matcher ProductResolver,
	receipts ReceiptStore,
	locations LocationStore,
	products ProductStore,
	discounts DiscountStore,
	linker CategoryLinker,
	workers int,
	logger *zap.Logger,
) *ReceiptService {
	if workers < 1 {
		workers = 1
	}
	return &ReceiptService{
		fetcher:   fetcher,
		matcher:   matcher,
		receipts:  receipts,
		locations: locations,
		products:  products,
		discounts: discounts,
		linker:    linker,
		workers:   workers,
		logger:    logger,
	}
}

// SyncReceipts ingests every receipt not seen before and returns how many
// were added. A failed detail fetch skips that receipt (it stays
// unpersisted and is retried on the next run); a persistence error aborts
// the pass, which is safe to retry since each receipt is written whole.
func (s *ReceiptService) SyncReceipts(ctx context.Context) (int, error) {
	summaries, err := s.fetcher.FetchReceipts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list receipts: %w", err)
	}

	added := 0
	for _, summary := range summaries {
		exists, err := s.receipts.ExistsByTransactionID(ctx, summary.TransactionID)
		if err != nil {
			return added, fmt.Errorf("failed to check receipt %s: %w", summary.TransactionID, err)
		}
		if exists {
			continue
		}

		rows, err := s.fetcher.FetchReceiptDetail(ctx, summary.TransactionID)
		if err != nil {
			s.logger.Warn("Failed to fetch receipt details, skipping until next run",
				zap.String("transaction_id", summary.TransactionID),
				zap.Error(err),
			)
			continue
		}

		if err := s.processReceipt(ctx, summary, rows); err != nil {
			return added, err
		}
		added++
	}

	s.logger.Info("Receipt sync finished", zap.Int("added", added))
	return added, nil
}

// processReceipt runs one receipt through the pipeline stages and
// persists the result.
func (s *ReceiptService) processReceipt(ctx context.Context, summary dto.ReceiptSummary, rows []dto.ReceiptRow) error {
	moment, err := time.Parse(transactionMomentLayout, summary.TransactionMoment)
	if err != nil {
		return fmt.Errorf("invalid transaction moment %q: %w", summary.TransactionMoment, err)
	}

	productRows, discountRows := SegmentRows(rows)
	items := ParseProductRows(productRows)
	for _, item := range items {
		if item.ParseErr != nil {
			s.logger.Warn("Line item failed to parse cleanly",
				zap.String("transaction_id", summary.TransactionID),
				zap.String("description", item.Description),
				zap.Error(item.ParseErr),
			)
		}
	}
	discounts, totalDiscount := ParseDiscountRows(discountRows)

	location, err := s.findOrCreateLocation(ctx, summary, rows)
	if err != nil {
		return err
	}

	receipt := &models.Receipt{
		ID:            uuid.New(),
		TransactionID: summary.TransactionID,
		Datetime:      moment,
		LocationID:    location.ID,
		TotalPrice:    summary.Total.Amount.Amount,
		TotalDiscount: totalDiscount,
		IsEmpty:       len(items) == 0,
		CreatedAt:     time.Now().UTC(),
	}

	// Receipts without purchases (refund-only or voided transactions)
	// keep their location and total but skip products and discounts.
	if receipt.IsEmpty {
		if err := s.receipts.Create(ctx, receipt); err != nil {
			return fmt.Errorf("failed to persist receipt %s: %w", receipt.TransactionID, err)
		}
		s.logger.Info("Persisted empty receipt", zap.String("transaction_id", receipt.TransactionID))
		return nil
	}

	products := s.resolveAll(ctx, items)
	for _, product := range products {
		product.ID = uuid.New()
		product.ReceiptID = receipt.ID
	}

	discountModels := make([]*models.Discount, 0, len(discounts))
	for i := range discounts {
		discount := discounts[i]
		discount.ID = uuid.New()
		discount.ReceiptID = receipt.ID
		discountModels = append(discountModels, &discount)
	}

	if err := s.receipts.Create(ctx, receipt); err != nil {
		return fmt.Errorf("failed to persist receipt %s: %w", receipt.TransactionID, err)
	}
	if err := s.products.CreateBatch(ctx, products); err != nil {
		return fmt.Errorf("failed to persist products for %s: %w", receipt.TransactionID, err)
	}
	if err := s.discounts.CreateBatch(ctx, discountModels); err != nil {
		return fmt.Errorf("failed to persist discounts for %s: %w", receipt.TransactionID, err)
	}
	if err := s.linker.LinkProducts(ctx, products); err != nil {
		return fmt.Errorf("failed to link categories for %s: %w", receipt.TransactionID, err)
	}

	s.logger.Info("Persisted receipt",
		zap.String("transaction_id", receipt.TransactionID),
		zap.Int("products", len(products)),
		zap.Int("discounts", len(discountModels)),
	)
	return nil
}

// resolveAll matches the line items against the catalogs on a bounded
// worker pool. Results are collected by originating index, so the output
// order equals row order regardless of completion order, and one slow or
// failed lookup never affects its neighbours.
func (s *ReceiptService) resolveAll(ctx context.Context, items []ParsedLineItem) []*models.Product {
	results := make([]*models.Product, len(items))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int, item ParsedLineItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			product := s.matcher.Match(ctx, item)
			results[i] = &product
		}(i, items[i])
	}
	wg.Wait()

	return results
}

// findOrCreateLocation deduplicates store locations by name. The store
// name is the first descriptive row value on the receipt; the address
// comes from the receipt summary.
func (s *ReceiptService) findOrCreateLocation(ctx context.Context, summary dto.ReceiptSummary, rows []dto.ReceiptRow) (*models.Location, error) {
	name := storeName(rows)
	if name == "" {
		name = summary.StoreAddress.City
	}

	location, err := s.locations.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up location %q: %w", name, err)
	}
	if location != nil {
		return location, nil
	}

	location = &models.Location{
		ID:          uuid.New(),
		Name:        name,
		Address:     summary.StoreAddress.Street,
		HouseNumber: summary.StoreAddress.HouseNumber,
		PostalCode:  summary.StoreAddress.PostalCode,
		City:        summary.StoreAddress.City,
	}
	if err := s.locations.Create(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to create location %q: %w", name, err)
	}
	return location, nil
}

func storeName(rows []dto.ReceiptRow) string {
	for _, row := range rows {
		if value := strings.TrimSpace(row.Value); value != "" {
			return value
		}
	}
	return ""
}
