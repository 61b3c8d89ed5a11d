package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/example/maskedit/internal/clipboard"
	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/payload"
	"github.com/example/maskedit/internal/render"
)

type previewCmd struct {
	*root
	fs          *flag.FlagSet
	output      string
	categories  string
	legend      bool
	shadow      bool
	feather     int
	placeholder bool
	toClipboard bool
	id          string
}

func (p *previewCmd) FlagSet() *flag.FlagSet {
	return p.fs
}

func (p *previewCmd) Template() string {
	return "preview.txt"
}

func parsePreviewCmd(args []string, r *root) (*previewCmd, error) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	c := &previewCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.output, "output", "", "PNG file to write")
	fs.StringVar(&c.categories, "categories", "", "comma separated categories to show (default all)")
	fs.BoolVar(&c.legend, "legend", false, "label the categories in the corner")
	fs.BoolVar(&c.shadow, "shadow", false, "draw a drop shadow around the preview")
	fs.IntVar(&c.feather, "feather", 0, "soften mask edges by this radius")
	fs.BoolVar(&c.placeholder, "placeholder", false, "show the default overlay for categories without a mask")
	fs.BoolVar(&c.toClipboard, "to-clipboard", false, "copy the preview to the clipboard")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, &UsageError{of: c}
	}
	if c.output == "" && !c.toClipboard {
		return nil, errors.New("preview needs -output or -to-clipboard")
	}
	c.id = fs.Arg(0)
	return c, nil
}

func (p *previewCmd) Run() error {
	ctx := context.Background()
	cats, err := p.selected()
	if err != nil {
		return err
	}
	store, err := p.openStore(ctx)
	if err != nil {
		return err
	}
	d, base, err := loadDraftImage(ctx, store, p.id)
	if err != nil {
		return err
	}
	if d.Kind == drafts.KindVideo {
		return fmt.Errorf("draft %s is a video; only images can be previewed", d.ID)
	}
	img := p.render(d, base, cats)
	if p.output != "" {
		if err := savePNG(p.output, img); err != nil {
			return err
		}
		fmt.Fprintf(p.stdout(), "wrote %s\n", p.output)
	}
	if p.toClipboard {
		if err := clipboard.WriteImage(img); err != nil {
			return fmt.Errorf("copy preview: %w", err)
		}
		p.notifyCopy("preview")
	}
	return nil
}

func (p *previewCmd) selected() ([]drafts.Category, error) {
	if strings.TrimSpace(p.categories) == "" {
		return drafts.Categories(), nil
	}
	var out []drafts.Category
	for _, name := range strings.Split(p.categories, ",") {
		c, err := drafts.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (p *previewCmd) render(d drafts.Draft, base image.Image, cats []drafts.Category) image.Image {
	b := base.Bounds()
	var layers []render.Layer
	for _, cat := range cats {
		var alpha *image.Alpha
		if stored, ok := d.Mask(cat); ok {
			s, err := payload.DecodeMask(payload.DataURI(stored), b.Dx(), b.Dy())
			if err != nil {
				fmt.Fprintf(p.stdout(), "skipping %s: %v\n", cat, err)
				continue
			}
			alpha = s.Alpha()
		} else if p.placeholder {
			alpha = render.Placeholder(b.Dx(), b.Dy())
		} else {
			continue
		}
		if p.feather > 0 {
			alpha = render.Feather(alpha, p.feather)
		}
		layers = append(layers, render.Layer{Name: string(cat), Mask: alpha, Color: p.layerColor(cat)})
	}
	out := render.Overlay(base, layers, p.legend)
	if p.shadow {
		out, _ = render.ApplyShadow(out, render.DefaultShadowOptions())
	}
	return out
}

func (p *previewCmd) layerColor(cat drafts.Category) color.RGBA {
	if c, ok := p.config.Colors[string(cat)]; ok {
		return c
	}
	return render.LayerColor(string(cat))
}
