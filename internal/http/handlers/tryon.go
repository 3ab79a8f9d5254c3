package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tryon/internal/domain"
	"tryon/internal/tryon"
)

// tryOnResponse mirrors the provider answer. Status is only set on status
// queries.
type tryOnResponse struct {
	Status      string   `json:"status,omitempty"`
	EventID     string   `json:"eventId,omitempty"`
	MediaURLs   []string `json:"mediaUrls,omitempty"`
	OutputImage string   `json:"outputImage,omitempty"`
}

func (a *App) SubmitTryOn(w http.ResponseWriter, r *http.Request) {
	var req tryon.SubmitRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	sub, err := a.TryOns.Submit(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, tryOnResponse{
		EventID:     sub.Response.EventID,
		MediaURLs:   sub.Response.MediaURLs,
		OutputImage: sub.Response.OutputImage,
	})
}

// TryOnStatus serves both /api/tryon-status?eventId= and /api/tryon/{eventId}.
func (a *App) TryOnStatus(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(chi.URLParam(r, "eventId"))
	if eventID == "" {
		eventID = strings.TrimSpace(r.URL.Query().Get("eventId"))
	}
	if eventID == "" {
		a.fail(w, r, domain.Required("eventId", "eventId is required"))
		return
	}
	res, err := a.Statuses.Status(r.Context(), eventID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := res.Status
	if status == "" {
		if s, _ := res.Classify(); s != domain.JobStatusPending {
			status = string(s)
		} else {
			status = "processing"
		}
	}
	a.json(w, http.StatusOK, tryOnResponse{
		Status:      status,
		EventID:     res.EventID,
		MediaURLs:   res.MediaURLs,
		OutputImage: res.OutputImage,
	})
}
