package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tryon/internal/domain"
)

// maxResultBytes caps downloaded composites.
var maxResultBytes = 32 << 20

// FileStore writes try-on results under a local directory.
type FileStore struct {
	basePath   string
	httpClient *http.Client
}

// NewFileStore initializes a FileStore rooted at basePath, creating it when
// needed. httpClient downloads URL results and defaults to a 60s client.
func NewFileStore(basePath string, httpClient *http.Client) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &FileStore{basePath: basePath, httpClient: httpClient}, nil
}

// Write stores data at the relative key and returns the absolute file path.
// Keys cannot escape the root.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return fullPath, nil
}

// SaveResult stores a generated composite as name plus an extension matching
// its content. URL results are downloaded; inline results are decoded.
func (s *FileStore) SaveResult(ctx context.Context, name string, img domain.ResultImage) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case img.URL != "":
		data, err = s.download(ctx, img.URL)
	case img.Base64 != "":
		data, _, err = domain.DecodeInlineImage("result", img.Base64)
	default:
		return "", errors.New("storage: result has no image")
	}
	if err != nil {
		return "", err
	}
	return s.Write(ctx, name+extensionFor(http.DetectContentType(data)), data)
}

func (s *FileStore) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: download result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage: download result: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxResultBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read result: %w", err)
	}
	if len(data) > maxResultBytes {
		return nil, fmt.Errorf("storage: result exceeds %d bytes", maxResultBytes)
	}
	return data, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
