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

type CategoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCategoryRepository(db *pgxpool.Pool, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CategoryRepository) Upsert(ctx context.Context, category *models.Category) error {
	query := squirrel.Insert("categories").
		Columns("taxonomy_id", "name", "slug").
		Values(category.TaxonomyID, category.Name, category.Slug).
		Suffix("ON CONFLICT (taxonomy_id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *CategoryRepository) AddHierarchy(ctx context.Context, parentTaxonomyID, childTaxonomyID string) error {
	query := squirrel.Insert("categories_hierarchy").
		Columns("parent", "child").
		Values(parentTaxonomyID, childTaxonomyID).
		Suffix("ON CONFLICT (parent, child) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// FindByName returns the category with the given name, or nil when the
// taxonomy holds no such category.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	query := squirrel.Select("taxonomy_id", "name", "slug").
		From("categories").
		Where(squirrel.Eq{"name": name}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var category models.Category
	err = r.db.QueryRow(ctx, sql, args...).Scan(&category.TaxonomyID, &category.Name, &category.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &category, nil
}

// DirectParents returns the taxonomy ids of the immediate parents of the
// given category. The category linker walks these iteratively to collect
// the full ancestor chain.
func (r *CategoryRepository) DirectParents(ctx context.Context, childTaxonomyID string) ([]string, error) {
	query := squirrel.Select("parent").
		From("categories_hierarchy").
		Where(squirrel.Eq{"child": childTaxonomyID}).
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

	var parents []string
	for rows.Next() {
		var parent string
		if err := rows.Scan(&parent); err != nil {
			return nil, err
		}
		parents = append(parents, parent)
	}

	return parents, nil
}

func (r *CategoryRepository) LinkProduct(ctx context.Context, webshopID, taxonomyID string) error {
	query := squirrel.Insert("categories_products").
		Columns("product_id", "taxonomy_id").
		Values(webshopID, taxonomyID).
		Suffix("ON CONFLICT (product_id, taxonomy_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	query := squirrel.Select("count(1)").
		From("categories").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
