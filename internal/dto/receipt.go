package dto

// Vendor payload shapes for the receipts endpoints of the AH mobile API.

type ReceiptSummary struct {
	TransactionID     string       `json:"transactionId"`
	TransactionMoment string       `json:"transactionMoment"`
	StoreAddress      StoreAddress `json:"storeAddress"`
	Total             ReceiptTotal `json:"total"`
}

type StoreAddress struct {
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	PostalCode  string `json:"postalCode"`
	City        string `json:"city"`
}

type ReceiptTotal struct {
	Amount MoneyAmount `json:"amount"`
}

type MoneyAmount struct {
	Amount float64 `json:"amount"`
}

const (
	RowTypeProduct  = "product"
	RowTypeSubtotal = "subtotal"
	RowTypeTotal    = "total"
)

// ReceiptRow is one UI element of the vendor's receipt representation.
// Which fields are populated depends on the row type: product rows carry
// description/quantity/price/amount, subtotal rows carry text, total rows
// carry label, and descriptive header rows carry value. Numeric fields are
// locale-formatted strings with a comma decimal separator.
type ReceiptRow struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
	Label       string `json:"label,omitempty"`
	Value       string `json:"value,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	Price       string `json:"price,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Indicator   string `json:"indicator,omitempty"`
}

type ReceiptDetailResponse struct {
	ReceiptUIItems []ReceiptRow `json:"receiptUiItems"`
}
