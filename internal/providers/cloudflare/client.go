package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

const providerName = "cloudflare"

// Options configures the Cloudflare Images client.
type Options struct {
	AccountID   string
	APIToken    string
	AccountHash string
	BaseURL     string
	// Expiry bounds how long a direct upload URL stays valid.
	Expiry         time.Duration
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Client uploads images through Cloudflare Images' direct creator upload flow:
// one call reserves an upload URL, a second posts the bytes to it.
type Client struct {
	accountID   string
	apiToken    string
	accountHash string
	baseURL     string
	expiry      time.Duration
	httpClient  *http.Client
	logger      *infra.Logger
	now         func() time.Time
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result T `json:"result"`
}

type directUploadResult struct {
	ID        string `json:"id"`
	UploadURL string `json:"uploadURL"`
}

type imageResult struct {
	ID       string   `json:"id"`
	Variants []string `json:"variants"`
}

// NewClient constructs a Cloudflare Images client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.cloudflare.com/client/v4"
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		accountID:   strings.TrimSpace(opts.AccountID),
		apiToken:    strings.TrimSpace(opts.APIToken),
		accountHash: strings.TrimSpace(opts.AccountHash),
		baseURL:     baseURL,
		expiry:      expiry,
		httpClient:  httpClient,
		logger:      logger,
		now:         now,
	}
}

// MissingCredentials lists the configuration keys the client still needs.
func (c *Client) MissingCredentials() []string {
	var missing []string
	if c.accountID == "" {
		missing = append(missing, "CLOUDFLARE_ACCOUNT_ID")
	}
	if c.apiToken == "" {
		missing = append(missing, "CLOUDFLARE_IMAGES_API_TOKEN")
	}
	return missing
}

// Upload stores data and returns its public delivery URL.
func (c *Client) Upload(ctx context.Context, data []byte, contentType string) (domain.HostedImage, error) {
	if missing := c.MissingCredentials(); len(missing) > 0 {
		return domain.HostedImage{}, &domain.ConfigurationError{Missing: missing}
	}
	if len(data) == 0 {
		return domain.HostedImage{}, errors.New("cloudflare: image data is required")
	}
	target, err := c.directUpload(ctx)
	if err != nil {
		return domain.HostedImage{}, err
	}
	uploaded, err := c.uploadBytes(ctx, target.UploadURL, data, contentType)
	if err != nil {
		return domain.HostedImage{}, err
	}
	id := uploaded.ID
	if id == "" {
		id = target.ID
	}
	publicURL := c.publicURL(id, uploaded.Variants)
	if publicURL == "" {
		return domain.HostedImage{}, &domain.UpstreamError{
			Provider: providerName,
			Op:       "upload",
			Detail:   map[string]any{"imageId": id},
			Err:      errors.New("could not determine public image URL; set CLOUDFLARE_IMAGES_ACCOUNT_HASH or enable variants"),
		}
	}
	c.logger.Debug().Str("image_id", id).Str("url", publicURL).Msg("cloudflare: image uploaded")
	return domain.HostedImage{URL: publicURL, ID: id}, nil
}

func (c *Client) publicURL(id string, variants []string) string {
	for _, variant := range variants {
		if v := strings.TrimSpace(variant); v != "" {
			return v
		}
	}
	if c.accountHash != "" && id != "" {
		return fmt.Sprintf("https://imagedelivery.net/%s/%s/public", url.PathEscape(c.accountHash), url.PathEscape(id))
	}
	return ""
}

func (c *Client) directUpload(ctx context.Context) (directUploadResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	expiry := c.now().UTC().Add(c.expiry).Format(time.RFC3339)
	if err := form.WriteField("expiry", expiry); err != nil {
		return directUploadResult{}, fmt.Errorf("cloudflare: encode form: %w", err)
	}
	if err := form.Close(); err != nil {
		return directUploadResult{}, fmt.Errorf("cloudflare: encode form: %w", err)
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/images/v2/direct_upload", c.baseURL, url.PathEscape(c.accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return directUploadResult{}, fmt.Errorf("cloudflare: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	var out envelope[directUploadResult]
	if err := c.do(req, "direct_upload", &out); err != nil {
		return directUploadResult{}, err
	}
	if out.Result.UploadURL == "" {
		return directUploadResult{}, &domain.UpstreamError{Provider: providerName, Op: "direct_upload", Err: errors.New("empty upload URL")}
	}
	return out.Result, nil
}

func (c *Client) uploadBytes(ctx context.Context, uploadURL string, data []byte, contentType string) (imageResult, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filenameFor(contentType)+`"`)
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return imageResult{}, fmt.Errorf("cloudflare: encode form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return imageResult{}, fmt.Errorf("cloudflare: encode form: %w", err)
	}
	if err := form.Close(); err != nil {
		return imageResult{}, fmt.Errorf("cloudflare: encode form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return imageResult{}, fmt.Errorf("cloudflare: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out envelope[imageResult]
	if err := c.do(req, "upload", &out); err != nil {
		return imageResult{}, err
	}
	return out.Result, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Provider: providerName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.UpstreamError{Provider: providerName, Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("cloudflare: request failed")
		return domain.NewUpstreamStatusError(providerName, op, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.UpstreamError{Provider: providerName, Op: op, Status: resp.StatusCode, Detail: domain.ParseDetail(raw), Err: err}
	}
	return nil
}

func filenameFor(contentType string) string {
	switch contentType {
	case "image/png":
		return "photo.png"
	case "image/webp":
		return "photo.webp"
	default:
		return "photo.jpg"
	}
}
