package dto

// Responses served by the read API.

type ReceiptResponse struct {
	ID            string  `json:"id"`
	TransactionID string  `json:"transaction_id"`
	Datetime      string  `json:"datetime"`
	LocationID    string  `json:"location_id"`
	TotalPrice    float64 `json:"total_price"`
	TotalDiscount float64 `json:"total_discount"`
	IsEmpty       bool    `json:"is_empty"`
}

type ProductResponse struct {
	ID               string   `json:"id"`
	Description      string   `json:"description"`
	Name             *string  `json:"name"`
	ProductID        *string  `json:"product_id"`
	CategoryID       *string  `json:"category_id"`
	Quantity         float64  `json:"quantity"`
	Unit             *string  `json:"unit"`
	Price            *float64 `json:"price"`
	TotalPrice       float64  `json:"total_price"`
	NotFound         bool     `json:"not_found"`
	PotentialMatches int      `json:"potential_matches"`
}

type SyncResponse struct {
	ReceiptsAdded int `json:"receipts_added"`
}
