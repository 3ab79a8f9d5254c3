package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind is the machine readable tag carried in error responses.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation_error"
	KindConfiguration ErrorKind = "configuration_error"
	KindUpstream      ErrorKind = "upstream_error"
	KindTimeout       ErrorKind = "timeout_error"
	KindInternal      ErrorKind = "internal_error"
)

var (
	// ErrTryOnFailed is reported when the provider marks a job as failed.
	ErrTryOnFailed = errors.New("try-on processing failed")
	// ErrJobInFlight rejects a second submission while one job is outstanding.
	ErrJobInFlight = errors.New("a try-on is already in progress")
)

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Required builds the common "x is required" validation error.
func Required(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigurationError reports provider credentials absent from the configuration.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 1 {
		return e.Missing[0] + " is not set"
	}
	return strings.Join(e.Missing, ", ") + " are not set"
}

// UpstreamError carries a non-success response (or transport failure) from a
// provider. Detail holds the decoded JSON body when it parses, else raw text.
type UpstreamError struct {
	Provider string
	Op       string
	Status   int
	Detail   any
	Err      error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s: status %d", e.Provider, e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %s failed", e.Provider, e.Op)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamStatusError builds an UpstreamError from a provider response body.
func NewUpstreamStatusError(provider, op string, status int, body []byte) *UpstreamError {
	return &UpstreamError{Provider: provider, Op: op, Status: status, Detail: ParseDetail(body)}
}

// ParseDetail decodes body as JSON when possible and falls back to trimmed text.
func ParseDetail(body []byte) any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		return decoded
	}
	return trimmed
}

// TimeoutError reports that a job did not reach a terminal state before the
// polling deadline.
type TimeoutError struct {
	JobID string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("try-on %s timed out after %s", e.JobID, e.After)
}

// KindOf classifies err into the error taxonomy.
func KindOf(err error) ErrorKind {
	var (
		validation *ValidationError
		config     *ConfigurationError
		upstream   *UpstreamError
		timeout    *TimeoutError
	)
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &config):
		return KindConfiguration
	case errors.As(err, &upstream):
		return KindUpstream
	case errors.As(err, &timeout):
		return KindTimeout
	default:
		return KindInternal
	}
}
