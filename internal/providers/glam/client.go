package glam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

// CredentialEnv names the environment key holding the API key.
const CredentialEnv = "GLAM_AI_API_KEY"

const providerName = "glam"

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = &domain.ConfigurationError{Missing: []string{CredentialEnv}}

// Options configures the Glam AI try-on client.
type Options struct {
	APIKey         string
	BaseURL        string
	MaskType       string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Glam AI try-on API.
type Client struct {
	apiKey     string
	baseURL    string
	maskType   string
	httpClient *http.Client
	logger     *infra.Logger
}

type submitRequest struct {
	MediaURL   string `json:"media_url"`
	GarmentURL string `json:"garment_url"`
	MaskType   string `json:"mask_type"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.glam.ai/api/v1"
	}
	maskType := strings.TrimSpace(opts.MaskType)
	if maskType == "" {
		maskType = "overall"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		maskType:   maskType,
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

// Submit starts a try-on for the person image at mediaURL wearing the garment
// at garmentURL. The decoded provider body is returned untouched; callers
// normalize it.
func (c *Client) Submit(ctx context.Context, mediaURL, garmentURL string) (map[string]any, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	mediaURL = strings.TrimSpace(mediaURL)
	garmentURL = strings.TrimSpace(garmentURL)
	if mediaURL == "" || garmentURL == "" {
		return nil, errors.New("glam: media url and garment url are required")
	}
	body, err := json.Marshal(submitRequest{MediaURL: mediaURL, GarmentURL: garmentURL, MaskType: c.maskType})
	if err != nil {
		return nil, fmt.Errorf("glam: encode request: %w", err)
	}
	out, err := c.do(ctx, http.MethodPost, c.baseURL+"/tryon", "submit", body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("garment_url", garmentURL).
		Msg("glam: try-on submitted")
	return out, nil
}

// Status fetches the current state of a previously submitted try-on.
func (c *Client) Status(ctx context.Context, eventID string) (map[string]any, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, errors.New("glam: event id is required")
	}
	return c.do(ctx, http.MethodGet, c.baseURL+"/tryon/"+url.PathEscape(eventID), "status", nil)
}

func (c *Client) do(ctx context.Context, method, endpoint, op string, body []byte) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("glam: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: providerName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: providerName, Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("body", truncate(string(raw), 512)).
			Msg("glam: provider returned error")
		return nil, domain.NewUpstreamStatusError(providerName, op, resp.StatusCode, raw)
	}

	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &domain.UpstreamError{
			Provider: providerName,
			Op:       op,
			Status:   resp.StatusCode,
			Detail:   domain.ParseDetail(raw),
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
