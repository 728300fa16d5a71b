package dto

// Vendor payload shapes for product search and the category taxonomy.

type VendorProduct struct {
	WebshopID            int      `json:"webshopId"`
	Title                string   `json:"title"`
	Brand                string   `json:"brand"`
	MainCategory         string   `json:"mainCategory"`
	SubCategory          string   `json:"subCategory"`
	SalesUnitSize        string   `json:"salesUnitSize"`
	UnitPriceDescription string   `json:"unitPriceDescription"`
	PriceBeforeBonus     *float64 `json:"priceBeforeBonus"`
	CurrentPrice         *float64 `json:"currentPrice"`
	IsBonus              bool     `json:"isBonus"`
}

type ProductSearchResponse struct {
	Products []VendorProduct `json:"products"`
	Page     SearchPage      `json:"page"`
}

type SearchPage struct {
	Number     int `json:"number"`
	TotalPages int `json:"totalPages"`
}

type VendorCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	SlugifiedName string `json:"slugifiedName"`
}

type SubCategoryResponse struct {
	Children []VendorCategory `json:"children"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
