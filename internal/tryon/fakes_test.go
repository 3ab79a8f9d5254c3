package tryon

import (
	"context"
	"errors"
	"sync"

	"tryon/internal/domain"
)

// fakeProvider replays scripted status bodies and records every call.
type fakeProvider struct {
	mu        sync.Mutex
	missing   []string
	submitOut map[string]any
	submitErr error
	statuses  []map[string]any
	statusErr error
	submits   []string
	polls     int
}

func (f *fakeProvider) Submit(ctx context.Context, mediaURL, garmentURL string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, mediaURL+"|"+garmentURL)
	return f.submitOut, f.submitErr
}

func (f *fakeProvider) Status(ctx context.Context, eventID string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.statuses) == 0 {
		return map[string]any{"status": "processing"}, nil
	}
	next := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return next, nil
}

func (f *fakeProvider) MissingCredentials() []string { return f.missing }

func (f *fakeProvider) calls() (submits, polls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits), f.polls
}

type fakeHost struct {
	mu      sync.Mutex
	missing []string
	err     error
	uploads [][]byte
}

func (h *fakeHost) Upload(ctx context.Context, data []byte, contentType string) (domain.HostedImage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return domain.HostedImage{}, h.err
	}
	h.uploads = append(h.uploads, data)
	return domain.HostedImage{URL: "https://imagedelivery.net/hash/img-1/public", ID: "img-1"}, nil
}

func (h *fakeHost) MissingCredentials() []string { return h.missing }

// blockingSource holds every status call until its context ends.
type blockingSource struct {
	mu    sync.Mutex
	calls int
}

func (b *blockingSource) Status(ctx context.Context, eventID string) (ProviderResult, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-ctx.Done()
	return ProviderResult{}, ctx.Err()
}

var errBoom = errors.New("connection reset by peer")
