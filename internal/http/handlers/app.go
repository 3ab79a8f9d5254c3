package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/middleware"
	"tryon/internal/tryon"
)

// maxBodyBytes bounds request bodies; photos arrive inline as base64.
const maxBodyBytes = 12 << 20

// ProductSearcher finds products for a free text query.
type ProductSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Product, error)
}

// App bundles the collaborators the HTTP handlers depend on.
type App struct {
	Products ProductSearcher
	TryOns   *tryon.Submitter
	Images   *tryon.Uploader
	Statuses tryon.StatusSource
	Logger   *infra.Logger
}

func NewApp(products ProductSearcher, tryOns *tryon.Submitter, images *tryon.Uploader, statuses tryon.StatusSource, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &App{Products: products, TryOns: tryOns, Images: images, Statuses: statuses, Logger: logger}
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v. Malformed bodies are reported as
// validation errors.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &domain.ValidationError{Message: "request body too large"}
		case errors.Is(err, io.EOF):
			return &domain.ValidationError{Message: "request body is required"}
		default:
			return &domain.ValidationError{Message: "invalid JSON payload"}
		}
	}
	return nil
}

// fail converts err into the structured error response for its kind.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponseFor(err)
	log := a.Logger.Warn()
	if status >= http.StatusInternalServerError {
		log = a.Logger.Error()
	}
	log.Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("code", body.Code).
		Msg("request failed")
	a.json(w, status, body)
}

func errorResponseFor(err error) (int, errorResponse) {
	var (
		validation *domain.ValidationError
		config     *domain.ConfigurationError
		upstream   *domain.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		resp := errorResponse{Error: validation.Error(), Code: string(domain.KindValidation)}
		if validation.Field != "" {
			resp.Details = map[string]string{"field": validation.Field}
		}
		return http.StatusBadRequest, resp
	case errors.As(err, &config):
		return http.StatusInternalServerError, errorResponse{
			Error:   "server is missing required configuration",
			Code:    string(domain.KindConfiguration),
			Details: map[string]any{"missing": config.Missing},
		}
	case errors.As(err, &upstream):
		status := upstream.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		resp := errorResponse{Error: upstreamMessage(upstream), Code: string(domain.KindUpstream), Details: upstream.Detail}
		return status, resp
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Error: "upstream request timed out", Code: string(domain.KindUpstream)}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: string(domain.KindInternal)}
	}
}

func upstreamMessage(err *domain.UpstreamError) string {
	switch err.Op {
	case "search":
		return "product search failed"
	case "upload", "direct_upload", "put_object", "presign":
		return "image upload failed"
	case "status":
		return "failed to fetch try-on status"
	default:
		return "try-on request failed"
	}
}

// Health is the liveness probe. Provider credentials are not checked here.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
