package service

import (
	"context"
	"errors"
	"testing"

	"grocitrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePrevious struct {
	results []models.ScoredProduct
	err     error
	calls   int
}

func (f *fakePrevious) SearchPrevious(_ context.Context, _ string, _ int) ([]models.ScoredProduct, error) {
	f.calls++
	return f.results, f.err
}

type fakeCatalog struct {
	results []models.ScoredProduct
	err     error
	calls   int
}

func (f *fakeCatalog) SearchCatalog(_ context.Context, _ string, _ int) ([]models.ScoredProduct, error) {
	f.calls++
	return f.results, f.err
}

type fakeRemote struct {
	results []models.CatalogProduct
	err     error
	calls   int
}

func (f *fakeRemote) SearchProducts(_ context.Context, _ string, _ int) ([]models.CatalogProduct, error) {
	f.calls++
	return f.results, f.err
}

type fakeCategories struct {
	byName map[string]*models.Category
}

func (f *fakeCategories) FindByName(_ context.Context, name string) (*models.Category, error) {
	return f.byName[name], nil
}

func newTestMatcher(previous *fakePrevious, catalog *fakeCatalog, remote *fakeRemote, categories *fakeCategories) *Matcher {
	if categories == nil {
		categories = &fakeCategories{}
	}
	return NewMatcher(previous, catalog, remote, categories, 10, zap.NewNop())
}

func scored(products ...models.CatalogProduct) []models.ScoredProduct {
	result := make([]models.ScoredProduct, 0, len(products))
	for i, p := range products {
		result = append(result, models.ScoredProduct{Score: 1 - float64(i)*0.1, Product: p})
	}
	return result
}

func price(v float64) *float64 { return &v }

func TestMatcherTieBreak(t *testing.T) {
	t.Run("single quantity matches on row total", func(t *testing.T) {
		previous := &fakePrevious{results: scored(
			models.CatalogProduct{WebshopID: "1", Title: "Melk 2L", PriceBeforeBonus: price(2.50)},
			models.CatalogProduct{WebshopID: "2", Title: "Melk 1L", PriceBeforeBonus: price(1.99)},
		)}
		m := newTestMatcher(previous, &fakeCatalog{}, &fakeRemote{}, nil)

		product := m.Match(context.Background(), ParsedLineItem{
			Description: "MELK",
			Quantity:    1,
			TotalPrice:  1.99,
		})

		assert.False(t, product.NotFound)
		require.NotNil(t, product.Name)
		assert.Equal(t, "Melk 1L", *product.Name)
		require.NotNil(t, product.ProductID)
		assert.Equal(t, "2", *product.ProductID)
		assert.Empty(t, product.PotentialMatches)
	})

	t.Run("single quantity also matches on current price", func(t *testing.T) {
		previous := &fakePrevious{results: scored(
			models.CatalogProduct{WebshopID: "1", Title: "Kaas", PriceBeforeBonus: price(3.49), CurrentPrice: price(2.99)},
		)}
		m := newTestMatcher(previous, &fakeCatalog{}, &fakeRemote{}, nil)

		product := m.Match(context.Background(), ParsedLineItem{
			Description: "KAAS",
			Quantity:    1,
			TotalPrice:  2.99,
		})

		assert.False(t, product.NotFound)
	})

	t.Run("weighed items match on cleaned unit price", func(t *testing.T) {
		unit := "kg"
		previous := &fakePrevious{results: scored(
			models.CatalogProduct{WebshopID: "1", Title: "Appels", UnitPriceDescription: "3.49 per KG"},
			models.CatalogProduct{WebshopID: "2", Title: "Bananen", UnitPriceDescription: "1.99 per KG"},
		)}
		m := newTestMatcher(previous, &fakeCatalog{}, &fakeRemote{}, nil)

		product := m.Match(context.Background(), ParsedLineItem{
			Description: "BANANEN",
			Quantity:    0.746,
			Unit:        &unit,
			Price:       price(1.99),
			TotalPrice:  1.48,
		})

		assert.False(t, product.NotFound)
		require.NotNil(t, product.Name)
		assert.Equal(t, "Bananen", *product.Name)
	})

	t.Run("multi-quantity matches on row unit price", func(t *testing.T) {
		previous := &fakePrevious{results: scored(
			models.CatalogProduct{WebshopID: "1", Title: "Cola 1L", PriceBeforeBonus: price(1.75)},
		)}
		m := newTestMatcher(previous, &fakeCatalog{}, &fakeRemote{}, nil)

		product := m.Match(context.Background(), ParsedLineItem{
			Description: "COLA",
			Quantity:    2,
			Price:       price(1.75),
			TotalPrice:  3.50,
		})

		assert.False(t, product.NotFound)
	})
}

func TestMatcherFallbackToAmbiguous(t *testing.T) {
	candidates := scored(
		models.CatalogProduct{WebshopID: "1", Title: "Brood wit", PriceBeforeBonus: price(1.09)},
		models.CatalogProduct{WebshopID: "2", Title: "Brood bruin", PriceBeforeBonus: price(1.19)},
		models.CatalogProduct{WebshopID: "3", Title: "Brood volkoren", PriceBeforeBonus: price(1.29)},
	)
	previous := &fakePrevious{results: candidates}
	m := newTestMatcher(previous, &fakeCatalog{}, &fakeRemote{}, nil)

	product := m.Match(context.Background(), ParsedLineItem{
		Description: "BROOD",
		Quantity:    1,
		TotalPrice:  2.49,
	})

	assert.True(t, product.NotFound)
	require.Len(t, product.PotentialMatches, 3)
	require.NotNil(t, product.Name)
	assert.Equal(t, "Brood wit", *product.Name)
	require.NotNil(t, product.ProductID)
	assert.Equal(t, "1", *product.ProductID)
}

func TestMatcherCascade(t *testing.T) {
	t.Run("previous source wins when non-empty", func(t *testing.T) {
		previous := &fakePrevious{results: scored(models.CatalogProduct{WebshopID: "1", Title: "Melk", PriceBeforeBonus: price(1.19)})}
		catalog := &fakeCatalog{results: scored(models.CatalogProduct{WebshopID: "9", Title: "Andere melk"})}
		remote := &fakeRemote{}
		m := newTestMatcher(previous, catalog, remote, nil)

		product := m.Match(context.Background(), ParsedLineItem{Description: "MELK", Quantity: 1, TotalPrice: 1.19})

		require.NotNil(t, product.ProductID)
		assert.Equal(t, "1", *product.ProductID)
		assert.Zero(t, catalog.calls)
		assert.Zero(t, remote.calls)
	})

	t.Run("empty previous falls through to catalog mirror", func(t *testing.T) {
		catalog := &fakeCatalog{results: scored(models.CatalogProduct{WebshopID: "9", Title: "Melk", PriceBeforeBonus: price(1.19)})}
		remote := &fakeRemote{}
		m := newTestMatcher(&fakePrevious{}, catalog, remote, nil)

		product := m.Match(context.Background(), ParsedLineItem{Description: "MELK", Quantity: 1, TotalPrice: 1.19})

		require.NotNil(t, product.ProductID)
		assert.Equal(t, "9", *product.ProductID)
		assert.Zero(t, remote.calls)
	})

	t.Run("empty local sources fall through to remote search", func(t *testing.T) {
		remote := &fakeRemote{results: []models.CatalogProduct{
			{WebshopID: "42", Title: "Verse melk", PriceBeforeBonus: price(1.19)},
		}}
		m := newTestMatcher(&fakePrevious{}, &fakeCatalog{}, remote, nil)

		product := m.Match(context.Background(), ParsedLineItem{Description: "MELK", Quantity: 1, TotalPrice: 1.19})

		require.NotNil(t, product.ProductID)
		assert.Equal(t, "42", *product.ProductID)
		assert.Equal(t, 1, remote.calls)
	})

	t.Run("source error does not abort the cascade", func(t *testing.T) {
		previous := &fakePrevious{err: errors.New("connection reset")}
		catalog := &fakeCatalog{results: scored(models.CatalogProduct{WebshopID: "9", Title: "Melk", PriceBeforeBonus: price(1.19)})}
		m := newTestMatcher(previous, catalog, &fakeRemote{}, nil)

		product := m.Match(context.Background(), ParsedLineItem{Description: "MELK", Quantity: 1, TotalPrice: 1.19})

		assert.False(t, product.NotFound)
	})

	t.Run("all sources empty flags not found with no candidates", func(t *testing.T) {
		m := newTestMatcher(&fakePrevious{}, &fakeCatalog{}, &fakeRemote{}, nil)

		product := m.Match(context.Background(), ParsedLineItem{Description: "ONBEKEND", Quantity: 1, TotalPrice: 0.99})

		assert.True(t, product.NotFound)
		assert.Nil(t, product.Name)
		assert.Nil(t, product.ProductID)
		assert.Empty(t, product.PotentialMatches)
	})
}

func TestMatcherRanksRemoteResults(t *testing.T) {
	remote := &fakeRemote{results: []models.CatalogProduct{
		{WebshopID: "1", Title: "AH Chocoladereep puur"},
		{WebshopID: "2", Title: "Melk halfvol"},
	}}
	m := newTestMatcher(&fakePrevious{}, &fakeCatalog{}, remote, nil)

	product := m.Match(context.Background(), ParsedLineItem{Description: "melk halfvol", Quantity: 1, TotalPrice: 1.19})

	// No price agrees, so the best-guess anchor must be the closest title.
	assert.True(t, product.NotFound)
	require.NotNil(t, product.Name)
	assert.Equal(t, "Melk halfvol", *product.Name)
}

func TestMatcherCategoryResolution(t *testing.T) {
	t.Run("sub-category preferred", func(t *testing.T) {
		previous := &fakePrevious{results: scored(models.CatalogProduct{
			WebshopID: "1", Title: "Melk", MainCategory: "Zuivel", SubCategory: "Melk", PriceBeforeBonus: price(1.19),
		})}
		categories := &fakeCategories{byName: map[string]*models.Category{
			"Melk":   {TaxonomyID: "101", Name: "Melk"},
			"Zuivel": {TaxonomyID: "100", Name: "Zuivel"},
		}}
		m := newTestMatcher(previous, &fakeCatalog{}, &fakeRemote{}, categories)

		product := m.Match(context.Background(), ParsedLineItem{Description: "MELK", Quantity: 1, TotalPrice: 1.19})

		require.NotNil(t, product.CategoryID)
		assert.Equal(t, "101", *product.CategoryID)
	})

	t.Run("falls back to main category", func(t *testing.T) {
		previous := &fakePrevious{results: scored(models.CatalogProduct{
			WebshopID: "1", Title: "Melk", MainCategory: "Zuivel", SubCategory: "Onbekend", PriceBeforeBonus: price(1.19),
		})}
		categories := &fakeCategories{byName: map[string]*models.Category{
			"Zuivel": {TaxonomyID: "100", Name: "Zuivel"},
		}}
		m := newTestMatcher(previous, &fakeCatalog{}, &fakeRemote{}, categories)

		product := m.Match(context.Background(), ParsedLineItem{Description: "MELK", Quantity: 1, TotalPrice: 1.19})

		require.NotNil(t, product.CategoryID)
		assert.Equal(t, "100", *product.CategoryID)
	})

	t.Run("miss leaves category unset", func(t *testing.T) {
		previous := &fakePrevious{results: scored(models.CatalogProduct{
			WebshopID: "1", Title: "Melk", MainCategory: "Zuivel", PriceBeforeBonus: price(1.19),
		})}
		m := newTestMatcher(previous, &fakeCatalog{}, &fakeRemote{}, nil)

		product := m.Match(context.Background(), ParsedLineItem{Description: "MELK", Quantity: 1, TotalPrice: 1.19})

		assert.Nil(t, product.CategoryID)
		assert.False(t, product.NotFound)
	})
}
