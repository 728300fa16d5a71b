package service

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"grocitrack/internal/models"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.uber.org/zap"
)

// Collaborator interfaces of the matching cascade, in descending order of
// trust. The first two are backed by local catalog tables, the third by
// the live vendor search API.

type PreviousSearcher interface {
	SearchPrevious(ctx context.Context, text string, limit int) ([]models.ScoredProduct, error)
}

type CatalogSearcher interface {
	SearchCatalog(ctx context.Context, text string, limit int) ([]models.ScoredProduct, error)
}

type RemoteSearcher interface {
	SearchProducts(ctx context.Context, query string, size int) ([]models.CatalogProduct, error)
}

type CategoryFinder interface {
	FindByName(ctx context.Context, name string) (*models.Category, error)
}

// unitPricePattern extracts the first decimal number from a unit-price
// description such as "2.19 per KG".
var unitPricePattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Matcher resolves a parsed line item to its best-guess catalog entry.
type Matcher struct {
	previous    PreviousSearcher
	catalog     CatalogSearcher
	remote      RemoteSearcher
	categories  CategoryFinder
	searchLimit int
	logger      *zap.Logger
}

func NewMatcher(
	previous PreviousSearcher,
	catalog CatalogSearcher,
	remote RemoteSearcher,
	categories CategoryFinder,
	searchLimit int,
	logger *zap.Logger,
) *Matcher {
	return &Matcher{
		previous:    previous,
		catalog:     catalog,
		remote:      remote,
		categories:  categories,
		searchLimit: searchLimit,
		logger:      logger,
	}
}

// Match resolves one line item. The cascade stops at the first source
// that yields candidates; within that source the first candidate whose
// price agrees with the receipt wins. Without such a candidate the first
// one becomes a best-guess anchor, the item is flagged not-found and the
// full candidate list is retained for manual review. A line item is never
// dropped for matching reasons.
func (m *Matcher) Match(ctx context.Context, item ParsedLineItem) models.Product {
	product := models.Product{
		Description: item.Description,
		Quantity:    item.Quantity,
		Unit:        item.Unit,
		Price:       item.Price,
		TotalPrice:  item.TotalPrice,
		Indicator:   item.Indicator,
	}

	candidates := m.findCandidates(ctx, item.Description)
	if len(candidates) == 0 {
		product.NotFound = true
		return product
	}

	chosen, matched := pickCandidate(candidates, item)
	product.Name = &chosen.Title
	webshopID := chosen.WebshopID
	product.ProductID = &webshopID
	if !matched {
		product.NotFound = true
		product.PotentialMatches = candidates
	}

	m.resolveCategory(ctx, &product, chosen)
	return product
}

// findCandidates runs the source cascade: previously purchased, then the
// catalog mirror, then the live vendor search. A source error counts as
// an empty result so one degraded source never hides the others.
func (m *Matcher) findCandidates(ctx context.Context, description string) []models.CatalogProduct {
	if scored, err := m.previous.SearchPrevious(ctx, description, m.searchLimit); err != nil {
		m.logger.Warn("Previous-products search failed", zap.String("query", description), zap.Error(err))
	} else if len(scored) > 0 {
		return unwrapScored(scored)
	}

	if scored, err := m.catalog.SearchCatalog(ctx, description, m.searchLimit); err != nil {
		m.logger.Warn("Catalog search failed", zap.String("query", description), zap.Error(err))
	} else if len(scored) > 0 {
		return unwrapScored(scored)
	}

	remote, err := m.remote.SearchProducts(ctx, description, m.searchLimit)
	if err != nil {
		m.logger.Warn("Remote search failed", zap.String("query", description), zap.Error(err))
		return nil
	}
	return rankByEditDistance(remote, description)
}

// pickCandidate applies the deterministic price tie-break in source
// order and reports whether any candidate satisfied it.
func pickCandidate(candidates []models.CatalogProduct, item ParsedLineItem) (models.CatalogProduct, bool) {
	for _, candidate := range candidates {
		if priceAgrees(candidate, item) {
			return candidate, true
		}
	}
	return candidates[0], false
}

// priceAgrees is the per-candidate predicate:
// single-quantity items match on the row total, weighed items ("kg")
// match the candidate's unit price, anything else matches on the row's
// unit price. Comparisons are exact float equality on two-decimal
// currency values, mirroring the vendor data.
func priceAgrees(candidate models.CatalogProduct, item ParsedLineItem) bool {
	if item.Quantity == 1 {
		return priceEquals(candidate, item.TotalPrice)
	}
	if item.Unit != nil && strings.EqualFold(*item.Unit, "kg") {
		unitPrice := cleanUnitPrice(candidate.UnitPriceDescription)
		return unitPrice != nil && item.Price != nil && *unitPrice == *item.Price
	}
	return item.Price != nil && priceEquals(candidate, *item.Price)
}

func priceEquals(candidate models.CatalogProduct, price float64) bool {
	if candidate.PriceBeforeBonus != nil && *candidate.PriceBeforeBonus == price {
		return true
	}
	return candidate.CurrentPrice != nil && *candidate.CurrentPrice == price
}

// cleanUnitPrice pulls the numeric part out of a unit-price description.
// Descriptions without a number yield nil.
func cleanUnitPrice(description string) *float64 {
	match := unitPricePattern.FindString(description)
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &value
}

// resolveCategory looks the chosen candidate's category up by name,
// preferring the more specific sub-category. A miss leaves the category
// unset; it never fails the item.
func (m *Matcher) resolveCategory(ctx context.Context, product *models.Product, chosen models.CatalogProduct) {
	for _, name := range []string{chosen.SubCategory, chosen.MainCategory} {
		if name == "" {
			continue
		}
		category, err := m.categories.FindByName(ctx, name)
		if err != nil {
			m.logger.Warn("Category lookup failed", zap.String("category", name), zap.Error(err))
			return
		}
		if category != nil {
			taxonomyID := category.TaxonomyID
			product.CategoryID = &taxonomyID
			return
		}
	}
}

func unwrapScored(scored []models.ScoredProduct) []models.CatalogProduct {
	products := make([]models.CatalogProduct, 0, len(scored))
	for _, s := range scored {
		products = append(products, s.Product)
	}
	return products
}

// rankByEditDistance orders remote results, which arrive unscored, by
// Levenshtein similarity between title and query, best first. The sort is
// stable so vendor relevance breaks ties.
func rankByEditDistance(products []models.CatalogProduct, query string) []models.CatalogProduct {
	q := strings.ToLower(query)
	sort.SliceStable(products, func(i, j int) bool {
		return titleRatio(products[i].Title, q) > titleRatio(products[j].Title, q)
	})
	return products
}

func titleRatio(title, query string) float64 {
	return levenshtein.RatioForStrings([]rune(strings.ToLower(title)), []rune(query), levenshtein.DefaultOptions)
}
