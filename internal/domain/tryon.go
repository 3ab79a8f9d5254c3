package domain

import "strings"

// JobStatus enumerates try-on job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusTimedOut  JobStatus = "timed_out"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further transition may happen from s.
func (s JobStatus) Terminal() bool {
	return s != JobStatusPending && s != ""
}

// ResultImage references a generated composite either by remote URL or as an
// inline base64 payload.
type ResultImage struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// IsZero reports whether neither form is present.
func (r ResultImage) IsZero() bool {
	return r.URL == "" && r.Base64 == ""
}

// Ref returns something an <img> tag or a downloader can consume.
func (r ResultImage) Ref() string {
	if r.URL != "" {
		return r.URL
	}
	return r.DataURI()
}

// DataURI renders the inline payload as a data URI. Providers return bare
// base64 JPEG data.
func (r ResultImage) DataURI() string {
	if r.Base64 == "" {
		return ""
	}
	if strings.HasPrefix(r.Base64, "data:") {
		return r.Base64
	}
	return "data:image/jpeg;base64," + r.Base64
}

// TryOnJob is one in-flight or completed generation request. JobID is empty
// when the provider answered synchronously.
type TryOnJob struct {
	JobID  string       `json:"jobId,omitempty"`
	Status JobStatus    `json:"status"`
	Result *ResultImage `json:"result,omitempty"`
}
