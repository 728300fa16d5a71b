package service

import (
	"strings"

	"grocitrack/internal/dto"
	"grocitrack/internal/models"
)

// Marker rows delimiting the receipt zones. They are sentinels only,
// never purchases themselves.
const (
	markerBonuskaart = "bonuskaart"
	markerSubtotal   = "subtotaal"
	markerSavings    = "uw voordeel"
)

// Special product-zone rows: deposits become flat-amount items, airmiles
// rows carry no purchase meaning at all.
const (
	descriptionDeposit  = "statiegeld"
	descriptionAirmiles = "airmiles"
)

// ParsedLineItem is one product-zone row converted to typed values.
// ParseErr tags a row whose quantity or amount string matched no known
// format; the item is kept with its defaults rather than dropped.
type ParsedLineItem struct {
	Quantity    float64
	Unit        *string
	Description string
	Price       *float64
	TotalPrice  float64
	Indicator   *string
	ParseErr    error
}

// SegmentRows splits a receipt's ordered UI rows into the purchased
// product zone and the discount zone.
//
// Products sit strictly between the "bonuskaart" product row and the
// "subtotaal" subtotal row; discounts strictly between "subtotaal" and
// the "uw voordeel" total row. Within either zone only product-typed rows
// count (the vendor renders discount lines with the product type too).
// A missing marker leaves the corresponding zone empty.
func SegmentRows(rows []dto.ReceiptRow) (products, discounts []dto.ReceiptRow) {
	bonusIdx := indexOfRow(rows, func(row dto.ReceiptRow) bool {
		return rowTypeIs(row, dto.RowTypeProduct) && strings.EqualFold(row.Description, markerBonuskaart)
	})
	subtotalIdx := indexOfRow(rows, func(row dto.ReceiptRow) bool {
		return rowTypeIs(row, dto.RowTypeSubtotal) && strings.EqualFold(row.Text, markerSubtotal)
	})
	savingsIdx := indexOfRow(rows, func(row dto.ReceiptRow) bool {
		return rowTypeIs(row, dto.RowTypeTotal) && strings.EqualFold(row.Label, markerSavings)
	})

	products = productRowsBetween(rows, bonusIdx, subtotalIdx)
	discounts = productRowsBetween(rows, subtotalIdx, savingsIdx)
	return products, discounts
}

// productRowsBetween collects product-typed rows strictly between the two
// marker indexes. Either index being absent yields an empty zone.
func productRowsBetween(rows []dto.ReceiptRow, start, end int) []dto.ReceiptRow {
	if start < 0 || end < 0 || end <= start {
		return nil
	}

	var zone []dto.ReceiptRow
	for _, row := range rows[start+1 : end] {
		if rowTypeIs(row, dto.RowTypeProduct) {
			zone = append(zone, row)
		}
	}
	return zone
}

// ParseProductRows converts the product zone into line items. Deposit
// rows become synthetic flat-amount items (quantity 1, no unit, no unit
// price); airmiles rows are dropped.
func ParseProductRows(rows []dto.ReceiptRow) []ParsedLineItem {
	items := make([]ParsedLineItem, 0, len(rows))
	for _, row := range rows {
		description := strings.ToLower(row.Description)
		if strings.Contains(description, descriptionAirmiles) {
			continue
		}
		if strings.Contains(description, descriptionDeposit) {
			items = append(items, parseDepositRow(row))
			continue
		}
		items = append(items, parseProductRow(row))
	}
	return items
}

func parseDepositRow(row dto.ReceiptRow) ParsedLineItem {
	item := ParsedLineItem{
		Quantity:    1,
		Description: row.Description,
	}

	amount, err := ParseAmount(row.Amount)
	if err != nil {
		item.ParseErr = err
		return item
	}
	if amount != nil {
		item.TotalPrice = *amount
	}
	return item
}

func parseProductRow(row dto.ReceiptRow) ParsedLineItem {
	item := ParsedLineItem{
		Quantity:    1,
		Description: row.Description,
	}

	if quantity, unit, err := ParseQuantity(row.Quantity); err != nil {
		item.ParseErr = err
	} else {
		item.Quantity = quantity
		if unit != "" {
			item.Unit = &unit
		}
	}

	price, err := ParseAmount(row.Price)
	if err != nil {
		item.ParseErr = err
	} else {
		item.Price = price
	}

	amount, err := ParseAmount(row.Amount)
	if err != nil {
		item.ParseErr = err
	} else if amount != nil {
		item.TotalPrice = *amount
	}

	if row.Indicator != "" {
		indicator := row.Indicator
		item.Indicator = &indicator
	}

	return item
}

// ParseDiscountRows converts the discount zone. Amounts arrive negative
// from the vendor and are normalized to non-negative values; the running
// sum is the receipt's total discount.
func ParseDiscountRows(rows []dto.ReceiptRow) ([]models.Discount, float64) {
	var discounts []models.Discount
	var total float64
	for _, row := range rows {
		amount, err := ParseAmount(row.Amount)
		if err != nil || amount == nil {
			continue
		}
		value := *amount
		if value < 0 {
			value = -value
		}

		discount := models.Discount{
			Description: row.Description,
			Amount:      value,
		}
		if row.Quantity != "" {
			discountType := row.Quantity
			discount.Type = &discountType
		}

		discounts = append(discounts, discount)
		total += value
	}
	return discounts, total
}

func rowTypeIs(row dto.ReceiptRow, rowType string) bool {
	return strings.EqualFold(row.Type, rowType)
}

func indexOfRow(rows []dto.ReceiptRow, match func(dto.ReceiptRow) bool) int {
	for i, row := range rows {
		if match(row) {
			return i
		}
	}
	return -1
}
