package models

import (
	"time"

	"github.com/google/uuid"
)

// Receipt is one ingested store transaction. TransactionID is the vendor's
// identifier and the idempotency key: a transaction is persisted at most once.
type Receipt struct {
	ID            uuid.UUID `db:"id"`
	TransactionID string    `db:"transaction_id"`
	Datetime      time.Time `db:"datetime"`
	LocationID    uuid.UUID `db:"location_id"`
	TotalPrice    float64   `db:"total_price"`
	TotalDiscount float64   `db:"total_discount"`
	IsEmpty       bool      `db:"is_empty"`
	CreatedAt     time.Time `db:"created_at"`
}

// Discount is one applied discount line. Amount is always non-negative;
// the vendor reports discounts as negative amounts and the sign is
// normalized during parsing.
type Discount struct {
	ID          uuid.UUID `db:"id"`
	ReceiptID   uuid.UUID `db:"receipt_id"`
	Type        *string   `db:"type"`
	Description string    `db:"description"`
	Amount      float64   `db:"amount"`
}

// Location is a physical store. Deduplicated by name: receipts from the
// same store share one row.
type Location struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Address     string    `db:"address"`
	HouseNumber string    `db:"house_number"`
	PostalCode  string    `db:"postal_code"`
	City        string    `db:"city"`
}
