package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/maskedit/internal/clipboard"
	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/payload"
)

var (
	presentStyle = color.New(color.FgGreen, color.Bold)
	absentStyle  = color.New(color.Faint)
	brokenStyle  = color.New(color.FgRed)
	headerStyle  = color.New(color.Bold)
)

type masksCmd struct {
	*root
	fs     *flag.FlagSet
	copy   string
	export string
	ids    []string
}

func (c *masksCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *masksCmd) Template() string {
	return "masks.txt"
}

func parseMasksCmd(args []string, r *root) (*masksCmd, error) {
	fs := flag.NewFlagSet("masks", flag.ExitOnError)
	c := &masksCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.copy, "copy", "", "copy this category's mask data URI to the clipboard (one draft only)")
	fs.StringVar(&c.export, "export", "", "write every stored mask as <dir>/<id>-<category>.png")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.ids = fs.Args()
	if c.copy != "" && len(c.ids) != 1 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *masksCmd) Run() error {
	ctx := context.Background()
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	list, err := c.drafts(ctx, store)
	if err != nil {
		return err
	}
	if c.copy != "" {
		return c.copyMask(list[0])
	}

	w := tabwriter.NewWriter(c.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprint(w, headerStyle.Sprint("DRAFT"))
	for _, cat := range drafts.Categories() {
		fmt.Fprint(w, "\t", headerStyle.Sprint(string(cat)))
	}
	fmt.Fprintln(w)
	for _, d := range list {
		fmt.Fprint(w, d.ID)
		for _, cat := range drafts.Categories() {
			fmt.Fprint(w, "\t", c.cell(d, cat))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func (c *masksCmd) drafts(ctx context.Context, store drafts.Store) ([]drafts.Draft, error) {
	if len(c.ids) == 0 {
		return store.List(ctx)
	}
	out := make([]drafts.Draft, 0, len(c.ids))
	for _, id := range c.ids {
		d, err := store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("draft %s: %w", id, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// cell summarises one stored mask as its masked share of the image.
func (c *masksCmd) cell(d drafts.Draft, cat drafts.Category) string {
	stored, ok := d.Mask(cat)
	if !ok {
		return absentStyle.Sprint("-")
	}
	img, err := payload.DataURI(stored).Decode()
	if err != nil {
		return brokenStyle.Sprint("unreadable")
	}
	b := img.Bounds()
	s := mask.SurfaceFromImage(img, b.Dx(), b.Dy())
	if c.export != "" {
		path := filepath.Join(c.export, fmt.Sprintf("%s-%s.png", d.ID, cat))
		if err := savePNG(path, s.Gray()); err != nil {
			return brokenStyle.Sprintf("export failed: %v", err)
		}
	}
	return presentStyle.Sprintf("%.1f%%", percent(s.MaskedCount(mask.Masked), b.Dx()*b.Dy()))
}

func (c *masksCmd) copyMask(d drafts.Draft) error {
	cat, err := drafts.ParseCategory(c.copy)
	if err != nil {
		return err
	}
	stored, ok := d.Mask(cat)
	if !ok {
		return fmt.Errorf("draft %s has no %s mask", d.ID, cat)
	}
	if err := clipboard.WriteText(stored); err != nil {
		return fmt.Errorf("copy mask: %w", err)
	}
	c.notifyCopy(string(cat) + " mask")
	return nil
}
