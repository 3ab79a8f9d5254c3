package apiclient

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
	"tryon/internal/tryon"
)

// Options configures the API client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the try-on HTTP API. It satisfies tryon.Backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

type errorBody struct {
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

// Search runs a product search.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	var out struct {
		Products []domain.Product `json:"products"`
	}
	payload := map[string]any{"query": query, "limit": limit}
	if err := c.do(ctx, http.MethodPost, "/api/search", payload, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// SubmitTryOn starts a try-on job.
func (c *Client) SubmitTryOn(ctx context.Context, req tryon.SubmitRequest) (tryon.ProviderResult, error) {
	var out tryon.ProviderResult
	if err := c.do(ctx, http.MethodPost, "/api/tryon", req, &out); err != nil {
		return tryon.ProviderResult{}, err
	}
	return out, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, eventID string) (tryon.ProviderResult, error) {
	var out tryon.ProviderResult
	if err := c.do(ctx, http.MethodGet, "/api/tryon/"+url.PathEscape(eventID), nil, &out); err != nil {
		return tryon.ProviderResult{}, err
	}
	return out, nil
}

// Health checks that the API is reachable.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	return c.do(ctx, http.MethodGet, "/v1/healthz", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("apiclient: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read response: %w", err)
	}
	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("apiclient: response")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

// decodeError maps an error response back onto the domain error types so
// callers can branch on domain.KindOf.
func decodeError(status int, raw []byte) error {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Code == "" {
		return domain.NewUpstreamStatusError("api", "request", status, raw)
	}
	switch domain.ErrorKind(body.Code) {
	case domain.KindValidation:
		var details struct {
			Field string `json:"field"`
		}
		_ = json.Unmarshal(body.Details, &details)
		msg := body.Error
		if details.Field != "" {
			msg = strings.TrimPrefix(msg, details.Field+": ")
		}
		return &domain.ValidationError{Field: details.Field, Message: msg}
	case domain.KindConfiguration:
		var details struct {
			Missing []string `json:"missing"`
		}
		_ = json.Unmarshal(body.Details, &details)
		return &domain.ConfigurationError{Missing: details.Missing}
	default:
		return &domain.UpstreamError{
			Provider: "api",
			Op:       body.Code,
			Status:   status,
			Detail:   domain.ParseDetail(body.Details),
			Err:      errors.New(body.Error),
		}
	}
}
