package tryon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon/internal/domain"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestNormalizeSpellings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ProviderResult
	}{
		{
			name: "camel case",
			body: `{"eventId":"abc123","mediaUrls":["https://cdn/x.jpg"],"outputImage":"AAA","status":"READY"}`,
			want: ProviderResult{EventID: "abc123", MediaURLs: []string{"https://cdn/x.jpg"}, OutputImage: "AAA", Status: "READY"},
		},
		{
			name: "snake case",
			body: `{"event_id":"abc123","media_urls":["https://cdn/x.jpg"],"output_image":"AAA","state":"processing"}`,
			want: ProviderResult{EventID: "abc123", MediaURLs: []string{"https://cdn/x.jpg"}, OutputImage: "AAA", Status: "processing"},
		},
		{
			name: "camel wins over snake",
			body: `{"eventId":"camel","event_id":"snake"}`,
			want: ProviderResult{EventID: "camel"},
		},
		{
			name: "empty camel falls through",
			body: `{"mediaUrls":[],"media_urls":["https://cdn/y.jpg"],"outputImage":""}`,
			want: ProviderResult{MediaURLs: []string{"https://cdn/y.jpg"}},
		},
		{
			name: "numeric id",
			body: `{"id":42}`,
			want: ProviderResult{EventID: "42"},
		},
		{
			name: "nothing recognised",
			body: `{"message":"accepted"}`,
			want: ProviderResult{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(decode(t, tc.body)))
		})
	}
}

func TestClassifyPrefersMediaURLs(t *testing.T) {
	res := ProviderResult{Status: "completed", MediaURLs: []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, OutputImage: "AAA"}
	status, image := res.Classify()
	assert.Equal(t, domain.JobStatusSucceeded, status)
	require.NotNil(t, image)
	assert.Equal(t, domain.ResultImage{URL: "https://cdn/a.jpg"}, *image)
}

func TestClassifyStatuses(t *testing.T) {
	tests := []struct {
		res    ProviderResult
		status domain.JobStatus
		inline bool
	}{
		{ProviderResult{Status: "Completed", OutputImage: "AAA"}, domain.JobStatusSucceeded, true},
		{ProviderResult{Status: "READY"}, domain.JobStatusSucceeded, false},
		{ProviderResult{Status: "processing", OutputImage: "AAA"}, domain.JobStatusSucceeded, true},
		{ProviderResult{Status: "failed"}, domain.JobStatusFailed, false},
		{ProviderResult{Status: " failed "}, domain.JobStatusFailed, false},
		{ProviderResult{Status: "FAILED"}, domain.JobStatusPending, false},
		{ProviderResult{Status: "Failed"}, domain.JobStatusPending, false},
		{ProviderResult{Status: "processing"}, domain.JobStatusPending, false},
		{ProviderResult{Status: "queued_for_review"}, domain.JobStatusPending, false},
		{ProviderResult{}, domain.JobStatusPending, false},
	}
	for _, tc := range tests {
		status, image := tc.res.Classify()
		assert.Equal(t, tc.status, status, "status %q", tc.res.Status)
		if tc.inline {
			require.NotNil(t, image)
			assert.Equal(t, "AAA", image.Base64)
		}
	}
}
