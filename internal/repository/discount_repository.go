package repository

import (
	"context"

	"grocitrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DiscountRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDiscountRepository(db *pgxpool.Pool, logger *zap.Logger) *DiscountRepository {
	return &DiscountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *DiscountRepository) CreateBatch(ctx context.Context, discounts []*models.Discount) error {
	if len(discounts) == 0 {
		return nil
	}

	builder := squirrel.Insert("discounts").
		Columns("id", "receipt_id", "type", "description", "amount").
		PlaceholderFormat(squirrel.Dollar)

	for _, discount := range discounts {
		builder = builder.Values(discount.ID, discount.ReceiptID, discount.Type, discount.Description, discount.Amount)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
