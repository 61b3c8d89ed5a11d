package redact

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Result is a locally addressable copy of an image returned by the service.
// Release deletes the backing file; callers release a result once it is no
// longer displayed.
type Result struct {
	Path  string
	Image image.Image
	MIME  string
	Size  int

	log         *zap.Logger
	releaseOnce sync.Once
}

func newResult(data []byte, contentType, dir string, log *zap.Logger) (*Result, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode result image: %w", err)
	}
	mime := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/" + format
	}
	f, err := os.CreateTemp(dir, "maskedit-result-*."+format)
	if err != nil {
		return nil, fmt.Errorf("create result file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write result file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close result file: %w", err)
	}
	return &Result{Path: path, Image: img, MIME: mime, Size: len(data), log: log}, nil
}

// Open reads the stored bytes.
func (r *Result) Open() (io.ReadCloser, error) {
	return os.Open(r.Path)
}

// SaveAs copies the stored bytes to path.
func (r *Result) SaveAs(path string) error {
	src, err := r.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// Release removes the backing file. It is safe to call more than once.
func (r *Result) Release() {
	if r == nil {
		return
	}
	r.releaseOnce.Do(func() {
		if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) && r.log != nil {
			r.log.Warn("remove result", zap.String("path", r.Path), zap.Error(err))
		}
	})
}
