// Package appie is the client for the Albert Heijn mobile API: receipt
// listing and detail, live product search, the category taxonomy and the
// previously-bought export. It owns token refresh; callers never see an
// auth failure unless the refresh token itself is rejected.
package appie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"grocitrack/internal/dto"
	"grocitrack/internal/models"
	"grocitrack/pkg/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const maxTokenRetries = 3

type Client struct {
	config     *config.AppieConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
	refreshToken string
}

func NewClient(cfg *config.AppieConfig, logger *zap.Logger) *Client {
	return &Client{
		config:       cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
		refreshToken: cfg.RefreshToken,
	}
}

// FetchReceipts lists the receipt summaries available for the account.
func (c *Client) FetchReceipts(ctx context.Context) ([]dto.ReceiptSummary, error) {
	var receipts []dto.ReceiptSummary
	if err := c.getJSON(ctx, c.config.APIBaseURL+"/v1/receipts/", &receipts); err != nil {
		return nil, fmt.Errorf("failed to fetch receipts: %w", err)
	}
	return receipts, nil
}

// FetchReceiptDetail returns the ordered UI rows of one receipt.
func (c *Client) FetchReceiptDetail(ctx context.Context, transactionID string) ([]dto.ReceiptRow, error) {
	var detail dto.ReceiptDetailResponse
	endpoint := c.config.APIBaseURL + "/v2/receipts/" + url.PathEscape(transactionID)
	if err := c.getJSON(ctx, endpoint, &detail); err != nil {
		return nil, fmt.Errorf("failed to fetch receipt %s: %w", transactionID, err)
	}
	return detail.ReceiptUIItems, nil
}

// SearchProducts runs a live text search against the vendor catalog. This
// is the last source of the matching cascade; results carry no similarity
// score.
func (c *Client) SearchProducts(ctx context.Context, query string, size int) ([]models.CatalogProduct, error) {
	endpoint := fmt.Sprintf("%s/product/search/v2?query=%s&size=%d",
		c.config.APIBaseURL, url.QueryEscape(query), size)

	var response dto.ProductSearchResponse
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to search products for %q: %w", query, err)
	}

	return mapVendorProducts(response.Products), nil
}

// SearchProductsByCategory pages through every product of one taxonomy
// node. Used by the catalog mirror sync.
func (c *Client) SearchProductsByCategory(ctx context.Context, taxonomyID int) ([]models.CatalogProduct, error) {
	var all []models.CatalogProduct
	for page := 0; ; page++ {
		endpoint := fmt.Sprintf("%s/product/search/v2?taxonomyId=%d&page=%d&size=%d",
			c.config.APIBaseURL, taxonomyID, page, c.config.PageSize)

		var response dto.ProductSearchResponse
		if err := c.getJSON(ctx, endpoint, &response); err != nil {
			return nil, fmt.Errorf("failed to fetch products for taxonomy %d: %w", taxonomyID, err)
		}

		all = append(all, mapVendorProducts(response.Products)...)
		if response.Page.Number >= response.Page.TotalPages-1 || len(response.Products) == 0 {
			break
		}
	}
	return all, nil
}

// FetchPreviouslyBought returns the account's purchase history export,
// the high-trust source of the matching cascade.
func (c *Client) FetchPreviouslyBought(ctx context.Context) ([]models.CatalogProduct, error) {
	endpoint := fmt.Sprintf("%s/product/search/v2/previously-bought?size=%d",
		c.config.APIBaseURL, c.config.PageSize)

	var response dto.ProductSearchResponse
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch previously bought products: %w", err)
	}

	return mapVendorProducts(response.Products), nil
}

// GetCategories returns the top-level taxonomy nodes.
func (c *Client) GetCategories(ctx context.Context) ([]dto.VendorCategory, error) {
	var categories []dto.VendorCategory
	if err := c.getJSON(ctx, c.config.APIBaseURL+"/v1/product-shelves/categories", &categories); err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

// GetSubCategories returns the direct children of one taxonomy node.
func (c *Client) GetSubCategories(ctx context.Context, taxonomyID int) ([]dto.VendorCategory, error) {
	endpoint := fmt.Sprintf("%s/v1/product-shelves/categories/%d/sub-categories", c.config.APIBaseURL, taxonomyID)

	var response dto.SubCategoryResponse
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch subcategories of %d: %w", taxonomyID, err)
	}
	return response.Children, nil
}

// getJSON performs an authorized GET and decodes the JSON body. A 401
// response triggers one token refresh followed by a single retry, the
// vendor's documented expiry behavior.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.refreshTokens(ctx); err != nil {
			return err
		}
		resp, err = c.get(ctx, endpoint)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token())

	return c.httpClient.Do(req)
}

// refreshTokens exchanges the refresh token for a fresh token pair.
// Network failures are retried with capped exponential backoff; a 4xx
// means the refresh token itself is no longer valid and is fatal.
func (c *Client) refreshTokens(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"refreshToken": c.currentRefreshToken(),
		"clientId":     c.config.ClientID,
	})
	if err != nil {
		return err
	}

	var tokens dto.TokenResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.AuthBaseURL+"/auth/token/refresh", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("token refresh rejected with status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("token refresh failed with status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&tokens)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxTokenRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("failed to refresh tokens: %w", err)
	}

	c.mu.Lock()
	c.accessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		c.refreshToken = tokens.RefreshToken
	}
	c.mu.Unlock()

	c.logger.Debug("Refreshed vendor API tokens")
	return nil
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) currentRefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken
}

func mapVendorProducts(products []dto.VendorProduct) []models.CatalogProduct {
	mapped := make([]models.CatalogProduct, 0, len(products))
	for _, p := range products {
		mapped = append(mapped, models.CatalogProduct{
			WebshopID:            strconv.Itoa(p.WebshopID),
			Title:                p.Title,
			Brand:                p.Brand,
			MainCategory:         p.MainCategory,
			SubCategory:          p.SubCategory,
			SalesUnitSize:        p.SalesUnitSize,
			UnitPriceDescription: p.UnitPriceDescription,
			PriceBeforeBonus:     p.PriceBeforeBonus,
			CurrentPrice:         p.CurrentPrice,
			IsBonus:              p.IsBonus,
		})
	}
	return mapped
}
