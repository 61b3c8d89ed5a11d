// Package payload turns mask surfaces and images into data URIs that can ride
// inside JSON request bodies, and back again.
package payload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"strings"

	"github.com/example/maskedit/internal/mask"
)

var errNotDataURI = errors.New("not a base64 data URI")

// DataURI is a data:<mime>;base64,<payload> string.
type DataURI string

// NewDataURI wraps data with mime.
func NewDataURI(mime string, data []byte) DataURI {
	var sb strings.Builder
	sb.Grow(len(mime) + 13 + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString("data:")
	sb.WriteString(mime)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return DataURI(sb.String())
}

// ParseDataURI checks that s is a base64 data URI with a decodable body.
func ParseDataURI(s string) (DataURI, error) {
	d := DataURI(strings.TrimSpace(s))
	if _, _, err := d.split(); err != nil {
		return "", err
	}
	if _, err := d.Bytes(); err != nil {
		return "", err
	}
	return d, nil
}

func (d DataURI) split() (string, string, error) {
	rest, ok := strings.CutPrefix(string(d), "data:")
	if !ok {
		return "", "", errNotDataURI
	}
	header, body, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", errNotDataURI
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", "", errNotDataURI
	}
	return mime, body, nil
}

// MIME returns the media type, or an empty string for malformed values.
func (d DataURI) MIME() string {
	mime, _, err := d.split()
	if err != nil {
		return ""
	}
	return mime
}

// Bytes returns the decoded payload.
func (d DataURI) Bytes() ([]byte, error) {
	_, body, err := d.split()
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return data, nil
}

// Decode parses the payload as an image.
func (d DataURI) Decode() (image.Image, error) {
	data, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", d.MIME(), err)
	}
	return img, nil
}

// DecodeMask parses d into a w by h surface. Masks of another size are
// rescaled to fit.
func DecodeMask(d DataURI, w, h int) (*mask.Surface, error) {
	img, err := d.Decode()
	if err != nil {
		return nil, err
	}
	return mask.SurfaceFromImage(img, w, h), nil
}

// String returns the URI truncated for logs.
func (d DataURI) String() string {
	const limit = 48
	if len(d) <= limit {
		return string(d)
	}
	return fmt.Sprintf("%s...(%d bytes)", string(d[:limit]), len(d))
}
