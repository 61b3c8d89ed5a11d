package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decoder registration
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/maskedit/internal/drafts"
)

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".webm": true, ".mkv": true, ".avi": true,
}

// kindForPath guesses the media kind from the extension.
func kindForPath(path string) drafts.Kind {
	if videoExts[strings.ToLower(filepath.Ext(path))] {
		return drafts.KindVideo
	}
	return drafts.KindImage
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func savePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// loadDraftImage returns the draft and its decoded base image.
func loadDraftImage(ctx context.Context, store drafts.Store, id string) (drafts.Draft, image.Image, error) {
	d, err := store.Get(ctx, id)
	if err != nil {
		return drafts.Draft{}, nil, fmt.Errorf("draft %s: %w", id, err)
	}
	if d.Kind == drafts.KindVideo {
		return d, nil, nil
	}
	img, err := loadImage(d.Source)
	if err != nil {
		return d, nil, err
	}
	return d, img, nil
}

func (r *root) uploadsDir() string {
	return filepath.Join(r.config.DataDirOrDefault(), "uploads")
}
