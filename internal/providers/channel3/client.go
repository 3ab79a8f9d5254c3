package channel3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

// CredentialEnv names the environment key holding the API key.
const CredentialEnv = "CHANNEL3_API_KEY"

const (
	providerName = "channel3"

	// DefaultLimit matches the six-tile grid the wizard renders.
	DefaultLimit = 6
	MaxLimit     = 30
)

// Options configures the Channel3 product search client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client searches the Channel3 product catalogue.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type price struct {
	Price          float64 `json:"price"`
	CompareAtPrice float64 `json:"compare_at_price"`
	Currency       string  `json:"currency"`
}

type product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	BrandName   string   `json:"brand_name"`
	ImageURL    string   `json:"image_url"`
	ImageURLs   []string `json:"image_urls"`
	URL         string   `json:"url"`
	Price       *price   `json:"price"`
}

// NewClient constructs a search client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.trychannel3.com/v0"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// MissingCredentials lists the configuration keys the client still needs.
func (c *Client) MissingCredentials() []string {
	if c.apiKey == "" {
		return []string{CredentialEnv}
	}
	return nil
}

// ClampLimit applies the default and upper bound to a requested result count.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Search returns products matching query in provider order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if c.apiKey == "" {
		return nil, &domain.ConfigurationError{Missing: []string{CredentialEnv}}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("channel3: query is required")
	}
	body, err := json.Marshal(searchRequest{Query: query, Limit: ClampLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("channel3: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("channel3: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: providerName, Op: "search", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: providerName, Op: "search", Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewUpstreamStatusError(providerName, "search", resp.StatusCode, raw)
	}
	items, err := decodeProducts(raw)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: providerName, Op: "search", Status: resp.StatusCode, Err: err}
	}
	out := make([]domain.Product, 0, len(items))
	for _, item := range items {
		out = append(out, item.toDomain())
	}
	c.logger.Debug().Str("query", query).Int("results", len(out)).Msg("channel3: search completed")
	return out, nil
}

// decodeProducts accepts either a bare array or an object wrapping it.
func decodeProducts(raw []byte) ([]product, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var items []product
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
		return items, nil
	}
	var wrapped struct {
		Products []product `json:"products"`
		Results  []product `json:"results"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	if len(wrapped.Products) > 0 {
		return wrapped.Products, nil
	}
	return wrapped.Results, nil
}

func (p product) toDomain() domain.Product {
	out := domain.Product{
		ID:          p.ID,
		Title:       p.Title,
		BrandName:   p.BrandName,
		ImageURL:    p.ImageURL,
		URL:         p.URL,
		Description: p.Description,
		ImageURLs:   p.ImageURLs,
	}
	if out.ImageURL == "" && len(p.ImageURLs) > 0 {
		out.ImageURL = p.ImageURLs[0]
	}
	if p.Price != nil {
		out.Price = &domain.Price{Price: p.Price.Price, CompareAtPrice: p.Price.CompareAtPrice, Currency: p.Price.Currency}
	}
	return out
}
