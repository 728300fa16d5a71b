package repository

import (
	"context"
	"errors"

	"grocitrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type LocationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLocationRepository(db *pgxpool.Pool, logger *zap.Logger) *LocationRepository {
	return &LocationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *LocationRepository) Create(ctx context.Context, location *models.Location) error {
	query := squirrel.Insert("locations").
		Columns("id", "name", "address", "house_number", "postal_code", "city").
		Values(location.ID, location.Name, location.Address, location.HouseNumber, location.PostalCode, location.City).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// FindByName returns the location with the given store name, or nil when
// no such location exists yet. Locations are deduplicated by name.
func (r *LocationRepository) FindByName(ctx context.Context, name string) (*models.Location, error) {
	query := squirrel.Select("id", "name", "address", "house_number", "postal_code", "city").
		From("locations").
		Where(squirrel.Eq{"name": name}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var location models.Location
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&location.ID, &location.Name, &location.Address, &location.HouseNumber, &location.PostalCode, &location.City,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &location, nil
}
