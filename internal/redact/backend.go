package redact

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBackendURL is where the upload-time blur/clean service listens.
const DefaultBackendURL = "http://localhost:8000"

// Backend calls the upload-time auto-masking endpoints. Both accept a
// multipart "file" field and answer with the processed image.
type Backend struct {
	http *resty.Client
	log  *zap.Logger
}

// NewBackend creates a backend client for baseURL.
func NewBackend(baseURL string, opts ...Option) *Backend {
	o := buildOptions("backend", opts)
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}
	return &Backend{http: newResty(baseURL, o), log: o.log}
}

// BlurFaces posts to /blur-faces/.
func (b *Backend) BlurFaces(ctx context.Context, name string, r io.Reader) (image.Image, error) {
	return b.upload(ctx, "/blur-faces/", name, r)
}

// CleanImage posts to /clean-image/, which removes text and logos.
func (b *Backend) CleanImage(ctx context.Context, name string, r io.Reader) (image.Image, error) {
	return b.upload(ctx, "/clean-image/", name, r)
}

func (b *Backend) upload(ctx context.Context, path, name string, r io.Reader) (image.Image, error) {
	resp, err := b.http.R().
		SetContext(ctx).
		SetFileReader("file", name, r).
		Post(path)
	if err != nil {
		return nil, &TransportError{Op: "upload " + path, Err: err}
	}
	if !resp.IsSuccess() {
		serr := parseServiceError(resp)
		b.log.Warn("backend rejected upload", zap.String("path", path), zap.Int("status_code", resp.StatusCode()), zap.Error(serr))
		return nil, serr
	}
	img, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, &TransportError{Op: "decode " + path, Err: fmt.Errorf("decode backend image: %w", err)}
	}
	return img, nil
}
