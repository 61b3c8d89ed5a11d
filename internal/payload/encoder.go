package payload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/metrics"
)

// Format selects the compression used for a payload.
type Format int

const (
	// PNG is lossless and keeps mask edges binary.
	PNG Format = iota
	// JPEG is lossy; quality maps onto the JPEG quality scale.
	JPEG
)

// DefaultImageQuality is used for base images.
const DefaultImageQuality = 0.9

func (f Format) String() string {
	if f == JPEG {
		return "jpeg"
	}
	return "png"
}

// MIME returns the media type written into data URIs.
func (f Format) MIME() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseFormat accepts png, jpeg or jpg.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	}
	return PNG, fmt.Errorf("unsupported payload format %q", s)
}

// EncodeError reports a failure converting pixels into a payload.
type EncodeError struct {
	Op  string
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Op, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Source yields the pixels to encode. Freeze is called synchronously by
// Start, so the returned image must not alias state the caller keeps editing.
type Source interface {
	Freeze() image.Image
}

type surfaceSource struct{ s *mask.Surface }

func (s surfaceSource) Freeze() image.Image { return s.s.Gray() }

// FromSurface encodes a mask surface as white on black.
func FromSurface(s *mask.Surface) Source { return surfaceSource{s} }

type imageSource struct{ img image.Image }

func (s imageSource) Freeze() image.Image { return s.img }

// FromImage encodes an image the caller never mutates.
func FromImage(img image.Image) Source { return imageSource{img} }

// Encoder produces data URIs in a fixed format.
type Encoder struct {
	format Format
	log    *zap.Logger
}

// NewEncoder returns an encoder for format. log may be nil.
func NewEncoder(format Format, log *zap.Logger) *Encoder {
	return &Encoder{format: format, log: logger.Named(log, "payload")}
}

// Format returns the encoder format.
func (e *Encoder) Format() Format { return e.format }

// Job is an encode running in the background.
type Job struct {
	done chan struct{}
	uri  DataURI
	err  error
}

// Start freezes src before returning and compresses it on another goroutine.
// quality must lie in (0, 1]; PNG validates but otherwise ignores it.
func (e *Encoder) Start(src Source, quality float64) *Job {
	j := &Job{done: make(chan struct{})}
	if math.IsNaN(quality) || quality <= 0 || quality > 1 {
		j.err = &EncodeError{Op: e.format.String(), Err: fmt.Errorf("quality %v outside (0,1]", quality)}
		close(j.done)
		return j
	}
	if src == nil {
		j.err = &EncodeError{Op: e.format.String(), Err: fmt.Errorf("nothing to encode")}
		close(j.done)
		return j
	}
	img := src.Freeze()
	if img == nil || img.Bounds().Empty() {
		j.err = &EncodeError{Op: e.format.String(), Err: fmt.Errorf("empty image")}
		close(j.done)
		return j
	}
	go func() {
		defer close(j.done)
		start := time.Now()
		j.uri, j.err = e.encode(img, quality)
		elapsed := time.Since(start)
		metrics.EncodeDuration.WithLabelValues(e.format.String()).Observe(elapsed.Seconds())
		e.log.Debug("encoded payload",
			zap.String("format", e.format.String()),
			zap.Int("width", img.Bounds().Dx()),
			zap.Int("height", img.Bounds().Dy()),
			zap.Int("bytes", len(j.uri)),
			zap.Duration("elapsed", elapsed),
		)
	}()
	return j
}

// Wait blocks until the encode finishes or ctx ends. A cancelled wait does
// not stop the encode; a later Wait still sees its result.
func (j *Job) Wait(ctx context.Context) (DataURI, error) {
	select {
	case <-j.done:
		return j.uri, j.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Encode is Start followed by Wait.
func (e *Encoder) Encode(ctx context.Context, src Source, quality float64) (DataURI, error) {
	return e.Start(src, quality).Wait(ctx)
}

func (e *Encoder) encode(img image.Image, quality float64) (DataURI, error) {
	var buf bytes.Buffer
	switch e.format {
	case JPEG:
		q := int(math.Round(quality * 100))
		if q < 1 {
			q = 1
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return "", &EncodeError{Op: "jpeg", Err: err}
		}
	default:
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(&buf, img); err != nil {
			return "", &EncodeError{Op: "png", Err: err}
		}
	}
	return NewDataURI(e.format.MIME(), buf.Bytes()), nil
}
