package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/payload"
	"github.com/example/maskedit/internal/redact"
	"github.com/example/maskedit/internal/render"
)

// autoMasker is the upload-time detection service.
type autoMasker interface {
	BlurFaces(ctx context.Context, name string, r io.Reader) (image.Image, error)
	CleanImage(ctx context.Context, name string, r io.Reader) (image.Image, error)
}

type redactCmd struct {
	*root
	fs        *flag.FlagSet
	category  string
	threshold uint
	dilate    int
	merge     bool
	method    string
	ids       []string
	backend   autoMasker
}

func (c *redactCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *redactCmd) Template() string {
	return "redact.txt"
}

func parseRedactCmd(args []string, r *root) (*redactCmd, error) {
	fs := flag.NewFlagSet("redact", flag.ExitOnError)
	c := &redactCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.category, "category", "", "category to store the mask under (face for blur-faces, doc for clean)")
	fs.UintVar(&c.threshold, "threshold", 24, "per-channel difference that counts as redacted (0-255)")
	fs.IntVar(&c.dilate, "dilate", 4, "grow the detected mask by this many pixels")
	fs.BoolVar(&c.merge, "merge", false, "union with the stored mask instead of replacing it")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 2 || c.threshold > 255 {
		return nil, &UsageError{of: c}
	}
	c.method = strings.ToLower(fs.Arg(0))
	switch c.method {
	case "blur-faces", "faces":
		c.method = "blur-faces"
		if c.category == "" {
			c.category = string(drafts.Face)
		}
	case "clean", "clean-image":
		c.method = "clean"
		if c.category == "" {
			c.category = string(drafts.Doc)
		}
	default:
		return nil, &UsageError{of: c}
	}
	c.ids = fs.Args()[1:]
	return c, nil
}

func (c *redactCmd) Run() error {
	ctx := context.Background()
	cat, err := drafts.ParseCategory(c.category)
	if err != nil {
		return err
	}
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	if c.backend == nil {
		c.backend = redact.NewBackend(c.config.Inpaint.BackendURL,
			redact.WithTimeout(c.config.Inpaint.Timeout),
			redact.WithLogger(logger.Log))
	}
	enc := payload.NewEncoder(c.config.MaskFormat(), logger.Log)
	for _, id := range c.ids {
		surface, err := c.detect(ctx, store, id, cat)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		uri, err := enc.Encode(ctx, payload.FromSurface(surface), c.config.Inpaint.ImageQuality)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if err := store.SetMask(ctx, id, cat, string(uri)); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		masked := surface.MaskedCount(mask.Masked)
		fmt.Fprintf(c.stdout(), "%s %s: %.1f%% masked by %s\n", id, cat,
			percent(masked, surface.Width()*surface.Height()), c.method)
		c.notifySave(cat)
	}
	return nil
}

// detect sends the draft image to the service and turns the changed pixels
// into a mask surface.
func (c *redactCmd) detect(ctx context.Context, store drafts.Store, id string, cat drafts.Category) (*mask.Surface, error) {
	d, base, err := loadDraftImage(ctx, store, id)
	if err != nil {
		return nil, err
	}
	if d.Kind == drafts.KindVideo {
		return nil, fmt.Errorf("video drafts cannot be redacted")
	}
	f, err := os.Open(d.Source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var processed image.Image
	if c.method == "blur-faces" {
		processed, err = c.backend.BlurFaces(ctx, filepath.Base(d.Source), f)
	} else {
		processed, err = c.backend.CleanImage(ctx, filepath.Base(d.Source), f)
	}
	if err != nil {
		return nil, err
	}

	found := render.Dilate(render.DiffMask(base, processed, uint8(c.threshold)), c.dilate)
	w, h := found.Rect.Dx(), found.Rect.Dy()
	if c.merge {
		if stored, ok := d.Mask(cat); ok {
			prev, err := payload.DecodeMask(payload.DataURI(stored), w, h)
			if err != nil {
				return nil, fmt.Errorf("decode stored %s mask: %w", cat, err)
			}
			union(found, prev.Alpha())
		}
	}
	return mask.SurfaceFromImage(found, w, h), nil
}

// union writes max(dst, src) into dst. Both have the same size.
func union(dst, src *image.Alpha) {
	for i := range dst.Pix {
		dst.Pix[i] = max(dst.Pix[i], src.Pix[i])
	}
}
