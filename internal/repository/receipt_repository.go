package repository

import (
	"context"

	"grocitrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ReceiptRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReceiptRepository(db *pgxpool.Pool, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	query := squirrel.Insert("receipts").
		Columns("id", "transaction_id", "datetime", "location_id", "total_price", "total_discount", "is_empty", "created_at").
		Values(receipt.ID, receipt.TransactionID, receipt.Datetime, receipt.LocationID, receipt.TotalPrice, receipt.TotalDiscount, receipt.IsEmpty, receipt.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ExistsByTransactionID is the idempotency gate: a transaction id already
// present means the receipt was ingested before and must be skipped.
func (r *ReceiptRepository) ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error) {
	query := squirrel.Select("count(1)").
		From("receipts").
		Where(squirrel.Eq{"transaction_id": transactionID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *ReceiptRepository) List(ctx context.Context) ([]*models.Receipt, error) {
	query := squirrel.Select("id", "transaction_id", "datetime", "location_id", "total_price", "total_discount", "is_empty", "created_at").
		From("receipts").
		OrderBy("datetime DESC").
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

	var receipts []*models.Receipt
	for rows.Next() {
		var receipt models.Receipt
		if err := rows.Scan(
			&receipt.ID, &receipt.TransactionID, &receipt.Datetime, &receipt.LocationID, &receipt.TotalPrice, &receipt.TotalDiscount, &receipt.IsEmpty, &receipt.CreatedAt,
		); err != nil {
			return nil, err
		}
		receipts = append(receipts, &receipt)
	}

	return receipts, nil
}
