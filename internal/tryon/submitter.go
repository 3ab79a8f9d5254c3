package tryon

import (
	"context"
	"errors"
	"strings"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

// ImageHost persists a user photo somewhere the generation provider can fetch it.
type ImageHost interface {
	Upload(ctx context.Context, data []byte, contentType string) (domain.HostedImage, error)
	MissingCredentials() []string
}

// Provider is the asynchronous try-on generation API.
type Provider interface {
	Submit(ctx context.Context, mediaURL, garmentURL string) (map[string]any, error)
	Status(ctx context.Context, eventID string) (map[string]any, error)
	MissingCredentials() []string
}

// SubmitRequest carries one try-on submission. SourceImage is an inline
// base64 payload or data URI; SourceImageURL an already hosted photo. One of
// the two is required and the inline form wins when both are set.
type SubmitRequest struct {
	SourceImage     string `json:"userImage,omitempty"`
	SourceImageURL  string `json:"sourceImageUrl,omitempty"`
	GarmentImageURL string `json:"garmentImageUrl"`
}

// Submission is the outcome of a successful submit.
type Submission struct {
	Job            domain.TryOnJob
	Response       ProviderResult
	SourceImageURL string
}

// Submitter validates a try-on request, hosts the source photo when needed and
// forwards the job to the provider exactly once.
type Submitter struct {
	provider Provider
	uploader *Uploader
	logger   *infra.Logger
}

// NewSubmitter wires a submitter. host may be nil when only hosted source
// URLs are going to be submitted.
func NewSubmitter(provider Provider, host ImageHost, logger *infra.Logger) *Submitter {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Submitter{provider: provider, uploader: NewUploader(host), logger: logger}
}

// Submit runs one submission. No upstream call is made when validation or
// the configuration check fails.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	garmentURL := strings.TrimSpace(req.GarmentImageURL)
	sourceURL := strings.TrimSpace(req.SourceImageURL)
	inline := strings.TrimSpace(req.SourceImage)

	if garmentURL == "" {
		return nil, domain.Required("garmentImageUrl", "garment image url is required")
	}
	if inline == "" && sourceURL == "" {
		return nil, domain.Required("userImage", "a user image or source image url is required")
	}

	var (
		data     []byte
		mimeType string
	)
	if inline != "" {
		var err error
		data, mimeType, err = domain.DecodeInlineImage("userImage", inline)
		if err != nil {
			return nil, err
		}
	}

	missing := missingCredentials(s.provider)
	if inline != "" {
		missing = append(missing, s.uploader.MissingCredentials()...)
	}
	if len(missing) > 0 {
		return nil, &domain.ConfigurationError{Missing: missing}
	}

	if inline != "" {
		hosted, err := s.uploader.host.Upload(ctx, data, mimeType)
		if err != nil {
			return nil, asUpstream("image_host", "upload", err)
		}
		sourceURL = hosted.URL
		s.logger.Debug().Str("image_id", hosted.ID).Msg("tryon: source image hosted")
	}

	raw, err := s.provider.Submit(ctx, sourceURL, garmentURL)
	if err != nil {
		return nil, err
	}
	res := Normalize(raw)
	s.logger.Debug().Str("event_id", res.EventID).Str("garment_url", garmentURL).Msg("tryon: provider accepted submission")

	job := domain.TryOnJob{JobID: res.EventID, Status: domain.JobStatusPending}
	status, image := res.Classify()
	switch {
	case status == domain.JobStatusSucceeded && image != nil:
		job.Status = status
		job.Result = image
	case status == domain.JobStatusFailed:
		return nil, &domain.UpstreamError{Provider: "tryon", Op: "submit", Detail: raw, Err: domain.ErrTryOnFailed}
	case res.EventID == "":
		return nil, &domain.UpstreamError{
			Provider: "tryon",
			Op:       "submit",
			Detail:   raw,
			Err:      errors.New("response carried neither an event id nor a result"),
		}
	}

	s.logger.Info().
		Str("event_id", res.EventID).
		Str("status", string(job.Status)).
		Msg("tryon: job submitted")
	return &Submission{Job: job, Response: res, SourceImageURL: sourceURL}, nil
}

// Uploader hosts inline images for the upload endpoint and the submitter.
type Uploader struct {
	host ImageHost
}

func NewUploader(host ImageHost) *Uploader {
	return &Uploader{host: host}
}

// MissingCredentials reports what the image host still needs.
func (u *Uploader) MissingCredentials() []string {
	if u.host == nil {
		return []string{"IMAGE_HOST"}
	}
	return u.host.MissingCredentials()
}

// Upload decodes a base64 payload or data URI and hands it to the host.
func (u *Uploader) Upload(ctx context.Context, encoded string) (domain.HostedImage, error) {
	data, mimeType, err := domain.DecodeInlineImage("image", encoded)
	if err != nil {
		return domain.HostedImage{}, err
	}
	if missing := u.MissingCredentials(); len(missing) > 0 {
		return domain.HostedImage{}, &domain.ConfigurationError{Missing: missing}
	}
	hosted, err := u.host.Upload(ctx, data, mimeType)
	if err != nil {
		return domain.HostedImage{}, asUpstream("image_host", "upload", err)
	}
	return hosted, nil
}

// ProviderStatus answers status queries straight from the provider, normalized.
type ProviderStatus struct {
	provider Provider
}

func NewProviderStatus(provider Provider) *ProviderStatus {
	return &ProviderStatus{provider: provider}
}

// Status fetches and normalizes one status response.
func (p *ProviderStatus) Status(ctx context.Context, eventID string) (ProviderResult, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return ProviderResult{}, domain.Required("eventId", "event id is required")
	}
	if missing := missingCredentials(p.provider); len(missing) > 0 {
		return ProviderResult{}, &domain.ConfigurationError{Missing: missing}
	}
	raw, err := p.provider.Status(ctx, eventID)
	if err != nil {
		return ProviderResult{}, err
	}
	res := Normalize(raw)
	if res.EventID == "" {
		res.EventID = eventID
	}
	return res, nil
}

func missingCredentials(p Provider) []string {
	if p == nil {
		return []string{"TRYON_PROVIDER"}
	}
	return p.MissingCredentials()
}

// asUpstream keeps typed errors intact and wraps anything else so every
// hosting failure surfaces as an upstream error.
func asUpstream(provider, op string, err error) error {
	var (
		upstream *domain.UpstreamError
		config   *domain.ConfigurationError
	)
	if errors.As(err, &upstream) || errors.As(err, &config) {
		return err
	}
	return &domain.UpstreamError{Provider: provider, Op: op, Err: err}
}
