package tryon

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"tryon/internal/domain"
)

// ProviderResult is the canonical shape of a submit or status response from
// the generation provider. Empty fields were absent upstream.
type ProviderResult struct {
	Status      string   `json:"status,omitempty"`
	EventID     string   `json:"eventId,omitempty"`
	MediaURLs   []string `json:"mediaUrls,omitempty"`
	OutputImage string   `json:"outputImage,omitempty"`
}

// Field spellings per canonical field, in precedence order.
var (
	eventIDKeys     = []string{"eventId", "event_id", "id"}
	mediaURLKeys    = []string{"mediaUrls", "media_urls"}
	outputImageKeys = []string{"outputImage", "output_image"}
	statusKeys      = []string{"status", "state"}
)

// Normalize maps a decoded provider body onto ProviderResult. For each field
// the first spelling with a non-empty value wins.
func Normalize(raw map[string]any) ProviderResult {
	var out ProviderResult
	if raw == nil {
		return out
	}
	out.EventID = firstString(raw, eventIDKeys)
	out.Status = firstString(raw, statusKeys)
	out.OutputImage = firstString(raw, outputImageKeys)
	for _, key := range mediaURLKeys {
		if urls := stringList(raw[key]); len(urls) > 0 {
			out.MediaURLs = urls
			break
		}
	}
	return out
}

// foldStatus compares provider states case-insensitively. Casers hold state,
// so each call gets its own.
func foldStatus(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Classify applies the completion rules to one response. Media URLs win over
// every other signal. A ready or completed status (any case) or an inline
// payload succeeds with whatever is present. Only the exact status "failed"
// fails; anything else is still pending.
func (r ProviderResult) Classify() (domain.JobStatus, *domain.ResultImage) {
	if len(r.MediaURLs) > 0 {
		return domain.JobStatusSucceeded, &domain.ResultImage{URL: r.MediaURLs[0]}
	}
	status := foldStatus(r.Status)
	if status == "ready" || status == "completed" || r.OutputImage != "" {
		if r.OutputImage != "" {
			return domain.JobStatusSucceeded, &domain.ResultImage{Base64: r.OutputImage}
		}
		return domain.JobStatusSucceeded, nil
	}
	if strings.TrimSpace(r.Status) == "failed" {
		return domain.JobStatusFailed, nil
	}
	return domain.JobStatusPending, nil
}

func firstString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if s := scalarString(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func stringList(v any) []string {
	var out []string
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}
