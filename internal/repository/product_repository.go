package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"grocitrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ProductRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProductRepository(db *pgxpool.Pool, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProductRepository) CreateBatch(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	builder := squirrel.Insert("products").
		Columns("id", "receipt_id", "product_id", "description", "name", "category_id", "quantity", "unit", "price", "total_price", "indicator", "product_not_found", "potential_matches").
		PlaceholderFormat(squirrel.Dollar)

	for _, product := range products {
		matches, err := encodePotentialMatches(product.PotentialMatches)
		if err != nil {
			return fmt.Errorf("failed to encode potential matches for %q: %w", product.Description, err)
		}
		builder = builder.Values(product.ID, product.ReceiptID, product.ProductID, product.Description, product.Name, product.CategoryID, product.Quantity, product.Unit, product.Price, product.TotalPrice, product.Indicator, product.NotFound, matches)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ProductRepository) GetByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]*models.Product, error) {
	query := squirrel.Select("id", "receipt_id", "product_id", "description", "name", "category_id", "quantity", "unit", "price", "total_price", "indicator", "product_not_found", "potential_matches").
		From("products").
		Where(squirrel.Eq{"receipt_id": receiptID}).
		OrderBy("id").
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

	var products []*models.Product
	for rows.Next() {
		var product models.Product
		var matches []byte
		if err := rows.Scan(
			&product.ID, &product.ReceiptID, &product.ProductID, &product.Description, &product.Name, &product.CategoryID, &product.Quantity, &product.Unit, &product.Price, &product.TotalPrice, &product.Indicator, &product.NotFound, &matches,
		); err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			if err := json.Unmarshal(matches, &product.PotentialMatches); err != nil {
				return nil, fmt.Errorf("failed to decode potential matches: %w", err)
			}
		}
		products = append(products, &product)
	}

	return products, nil
}

// encodePotentialMatches renders the retained candidate list as a JSONB
// value; an empty list is stored as SQL NULL rather than "[]".
func encodePotentialMatches(matches []models.CatalogProduct) ([]byte, error) {
	if len(matches) == 0 {
		return nil, nil
	}
	return json.Marshal(matches)
}
