package domain

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// HostedImage is an image persisted to an image host and fetchable by URL.
type HostedImage struct {
	URL string `json:"imageUrl"`
	ID  string `json:"imageId"`
}

// DecodeInlineImage turns a raw base64 string or a data URI into bytes and a
// content type. Browsers hand over data URIs; the API also accepts the bare
// payload.
func DecodeInlineImage(field, encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, "", Required(field, "image data is required")
	}
	mime := ""
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, "", &ValidationError{Field: field, Message: "malformed data URI"}
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = payload
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, "", &ValidationError{Field: field, Message: "image is not valid base64"}
		}
	}
	if len(data) == 0 {
		return nil, "", Required(field, "image data is required")
	}
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			mime = "image/jpeg"
		}
	}
	return data, mime, nil
}
