package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want any
	}{
		{name: "json object", body: `{"message":"bad garment"}`, want: map[string]any{"message": "bad garment"}},
		{name: "plain text", body: " upstream exploded \n", want: "upstream exploded"},
		{name: "empty", body: "   ", want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseDetail([]byte(tc.body)))
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{Required("garmentImageUrl", "garment image URL is required"), KindValidation},
		{&ConfigurationError{Missing: []string{"GLAM_AI_API_KEY"}}, KindConfiguration},
		{fmt.Errorf("submit: %w", NewUpstreamStatusError("glam", "submit", 502, nil)), KindUpstream},
		{&TimeoutError{JobID: "abc", After: time.Minute}, KindTimeout},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, KindOf(tc.err), tc.err.Error())
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	assert.Equal(t, "GLAM_AI_API_KEY is not set", (&ConfigurationError{Missing: []string{"GLAM_AI_API_KEY"}}).Error())
	assert.Equal(t, "A, B are not set", (&ConfigurationError{Missing: []string{"A", "B"}}).Error())
}

func TestUpstreamErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &UpstreamError{Provider: "glam", Op: "status", Err: cause}
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestResultImageRef(t *testing.T) {
	assert.Equal(t, "https://cdn/x.jpg", ResultImage{URL: "https://cdn/x.jpg", Base64: "AAA"}.Ref())
	assert.Equal(t, "data:image/jpeg;base64,AAA", ResultImage{Base64: "AAA"}.Ref())
	assert.True(t, ResultImage{}.IsZero())
	assert.True(t, JobStatusTimedOut.Terminal())
	assert.False(t, JobStatusPending.Terminal())
}
