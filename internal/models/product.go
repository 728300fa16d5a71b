package models

import (
	"github.com/google/uuid"
)

// CatalogProduct is a candidate match from one of the catalog sources:
// the previously-purchased table, the vendor catalog mirror, or the live
// vendor search API. It is also the JSON shape retained per line item
// when a match stays ambiguous.
type CatalogProduct struct {
	WebshopID            string   `json:"webshop_id" db:"webshop_id"`
	Title                string   `json:"title" db:"title"`
	Brand                string   `json:"brand,omitempty" db:"brand"`
	MainCategory         string   `json:"main_category,omitempty" db:"main_category"`
	SubCategory          string   `json:"sub_category,omitempty" db:"sub_category"`
	SalesUnitSize        string   `json:"sales_unit_size,omitempty" db:"sales_unit_size"`
	UnitPriceDescription string   `json:"unit_price_description,omitempty" db:"unit_price_description"`
	PriceBeforeBonus     *float64 `json:"price_before_bonus,omitempty" db:"price_before_bonus"`
	CurrentPrice         *float64 `json:"current_price,omitempty" db:"current_price"`
	IsBonus              bool     `json:"is_bonus" db:"is_bonus"`
}

// ScoredProduct is a catalog candidate with its text-similarity score,
// ordered score-descending by the search that produced it.
type ScoredProduct struct {
	Score   float64
	Product CatalogProduct
}

// Product is one resolved receipt line item.
//
// Description holds the raw receipt text; Name, ProductID and CategoryID
// are filled from the catalog entry the matcher settled on. NotFound is
// true whenever no unique high-confidence match existed, and only then
// may PotentialMatches carry the candidate list kept for manual review.
type Product struct {
	ID               uuid.UUID        `db:"id"`
	ReceiptID        uuid.UUID        `db:"receipt_id"`
	ProductID        *string          `db:"product_id"`
	Description      string           `db:"description"`
	Name             *string          `db:"name"`
	CategoryID       *string          `db:"category_id"`
	Quantity         float64          `db:"quantity"`
	Unit             *string          `db:"unit"`
	Price            *float64         `db:"price"`
	TotalPrice       float64          `db:"total_price"`
	Indicator        *string          `db:"indicator"`
	NotFound         bool             `db:"product_not_found"`
	PotentialMatches []CatalogProduct `db:"potential_matches"`
}
