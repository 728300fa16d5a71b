package models

// Category is one node of the vendor's product taxonomy. TaxonomyID is the
// vendor identifier and the key used by hierarchy and product links.
type Category struct {
	TaxonomyID string `db:"taxonomy_id"`
	Name       string `db:"name"`
	Slug       string `db:"slug"`
}
