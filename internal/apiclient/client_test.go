package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon/internal/domain"
	"tryon/internal/tryon"
)

func TestClientRoundTrips(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "denim", body["query"])
		_, _ = w.Write([]byte(`{"products":[{"id":"p1","title":"Denim Jacket","brandName":"Acme","imageUrl":"https://x/g.jpg","url":"https://shop/p1"}]}`))
	})
	mux.HandleFunc("POST /api/tryon", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "https://x/g.jpg", body["garmentImageUrl"])
		_, _ = w.Write([]byte(`{"eventId":"abc123"}`))
	})
	mux.HandleFunc("GET /api/tryon/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"completed","eventId":"` + r.PathValue("id") + `","mediaUrls":["https://cdn/r.jpg"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/"})
	ctx := context.Background()

	products, err := c.Search(ctx, "denim", 6)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Acme", products[0].BrandName)

	res, err := c.SubmitTryOn(ctx, tryon.SubmitRequest{SourceImage: "QUJD", GarmentImageURL: "https://x/g.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.EventID)

	status, err := c.Status(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, tryon.ProviderResult{Status: "completed", EventID: "abc123", MediaURLs: []string{"https://cdn/r.jpg"}}, status)
}

func TestClientMapsErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   domain.ErrorKind
	}{
		{400, `{"error":"garmentImageUrl: garment image url is required","code":"validation_error","details":{"field":"garmentImageUrl"}}`, domain.KindValidation},
		{500, `{"error":"server is missing required configuration","code":"configuration_error","details":{"missing":["GLAM_AI_API_KEY"]}}`, domain.KindConfiguration},
		{422, `{"error":"try-on request failed","code":"upstream_error","details":{"error":"bad garment"}}`, domain.KindUpstream},
		{502, `Bad Gateway`, domain.KindUpstream},
	}
	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := NewClient(Options{BaseURL: srv.URL}).SubmitTryOn(context.Background(), tryon.SubmitRequest{})
		srv.Close()

		assert.Equal(t, tc.kind, domain.KindOf(err), tc.body)
		switch tc.kind {
		case domain.KindValidation:
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "garmentImageUrl", verr.Field)
			assert.Equal(t, "garment image url is required", verr.Message)
		case domain.KindConfiguration:
			var cerr *domain.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, []string{"GLAM_AI_API_KEY"}, cerr.Missing)
		case domain.KindUpstream:
			var uerr *domain.UpstreamError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, tc.status, uerr.Status)
		}
	}
}

func TestControllerOverClient(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"id":"p1","title":"Denim Jacket","imageUrl":"https://x/g.jpg","url":"https://shop/p1"}]}`))
	})
	mux.HandleFunc("POST /api/tryon", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"eventId":"abc123"}`))
	})
	mux.HandleFunc("GET /api/tryon/{id}", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"status":"processing","eventId":"abc123"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"completed","eventId":"abc123","outputImage":"QUJD"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := tryon.NewController(NewClient(Options{BaseURL: srv.URL}), tryon.PollerOptions{Interval: 5 * time.Millisecond, Timeout: time.Second})
	ctx := context.Background()
	_, err := c.Search(ctx, "denim")
	require.NoError(t, err)
	_, err = c.SelectProduct("p1")
	require.NoError(t, err)
	require.NoError(t, c.SetPhoto("QUJD"))

	job, err := c.TryOn(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSucceeded, job.Status)
	assert.Equal(t, "QUJD", job.Result.Base64)
	assert.Equal(t, int32(3), polls.Load())
}
