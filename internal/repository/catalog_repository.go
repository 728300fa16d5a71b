package repository

import (
	"context"

	"grocitrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var catalogColumns = []string{
	"webshop_id", "title", "brand", "main_category", "sub_category",
	"sales_unit_size", "unit_price_description", "price_before_bonus",
	"current_price", "is_bonus",
}

// CatalogRepository serves the two local catalog sources of the matching
// cascade: previous_products (the user's own purchase history, higher
// trust) and ah_products (the full vendor catalog mirror). Both are
// searched with pg_trgm trigram similarity against the product title.
type CatalogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCatalogRepository(db *pgxpool.Pool, logger *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:     db,
		logger: logger,
	}
}

// SearchPrevious searches the previously-purchased catalog, ordered by
// similarity descending.
func (r *CatalogRepository) SearchPrevious(ctx context.Context, text string, limit int) ([]models.ScoredProduct, error) {
	return r.searchTable(ctx, "previous_products", text, limit)
}

// SearchCatalog searches the full vendor catalog mirror, ordered by
// similarity descending.
func (r *CatalogRepository) SearchCatalog(ctx context.Context, text string, limit int) ([]models.ScoredProduct, error) {
	return r.searchTable(ctx, "ah_products", text, limit)
}

func (r *CatalogRepository) searchTable(ctx context.Context, table, text string, limit int) ([]models.ScoredProduct, error) {
	query := squirrel.Select(catalogColumns...).
		Column(squirrel.Expr("similarity(title, ?) AS score", text)).
		From(table).
		Where(squirrel.Expr("title % ?", text)).
		OrderBy("score DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.ScoredProduct
	for rows.Next() {
		var result models.ScoredProduct
		product := &result.Product
		if err := rows.Scan(
			&product.WebshopID, &product.Title, &product.Brand, &product.MainCategory, &product.SubCategory,
			&product.SalesUnitSize, &product.UnitPriceDescription, &product.PriceBeforeBonus,
			&product.CurrentPrice, &product.IsBonus, &result.Score,
		); err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// UpsertCatalogProducts refreshes the vendor catalog mirror.
func (r *CatalogRepository) UpsertCatalogProducts(ctx context.Context, products []models.CatalogProduct) error {
	return r.upsertTable(ctx, "ah_products", products)
}

// UpsertPreviousProducts refreshes the previously-purchased catalog.
func (r *CatalogRepository) UpsertPreviousProducts(ctx context.Context, products []models.CatalogProduct) error {
	return r.upsertTable(ctx, "previous_products", products)
}

func (r *CatalogRepository) upsertTable(ctx context.Context, table string, products []models.CatalogProduct) error {
	if len(products) == 0 {
		return nil
	}

	builder := squirrel.Insert(table).
		Columns(catalogColumns...).
		Suffix("ON CONFLICT (webshop_id) DO UPDATE SET " +
			"title = EXCLUDED.title, brand = EXCLUDED.brand, main_category = EXCLUDED.main_category, " +
			"sub_category = EXCLUDED.sub_category, sales_unit_size = EXCLUDED.sales_unit_size, " +
			"unit_price_description = EXCLUDED.unit_price_description, price_before_bonus = EXCLUDED.price_before_bonus, " +
			"current_price = EXCLUDED.current_price, is_bonus = EXCLUDED.is_bonus").
		PlaceholderFormat(squirrel.Dollar)

	for _, product := range products {
		builder = builder.Values(
			product.WebshopID, product.Title, product.Brand, product.MainCategory, product.SubCategory,
			product.SalesUnitSize, product.UnitPriceDescription, product.PriceBeforeBonus,
			product.CurrentPrice, product.IsBonus,
		)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
