package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/maskedit/internal/clipboard"
	"github.com/example/maskedit/internal/drafts"
)

type draftsCmd struct {
	*root
	fs            *flag.FlagSet
	kind          string
	fromClipboard bool
	yes           bool
	op            string
	args          []string
}

func (c *draftsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *draftsCmd) Template() string {
	return "drafts.txt"
}

func parseDraftsCmd(args []string, r *root) (*draftsCmd, error) {
	fs := flag.NewFlagSet("drafts", flag.ExitOnError)
	c := &draftsCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.kind, "kind", "", "media kind for added files (image or video); guessed from the extension when empty")
	fs.BoolVar(&c.fromClipboard, "from-clipboard", false, "add the clipboard image as a draft")
	fs.BoolVar(&c.yes, "yes", false, "confirm drafts clear")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		return nil, &UsageError{of: c}
	}
	c.op = strings.ToLower(fs.Arg(0))
	c.args = fs.Args()[1:]
	return c, nil
}

func (c *draftsCmd) Run() error {
	ctx := context.Background()
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	switch c.op {
	case "add":
		return c.runAdd(ctx, store)
	case "list", "ls":
		return c.runList(ctx, store)
	case "show":
		if len(c.args) != 1 {
			return &UsageError{of: c}
		}
		return c.runShow(ctx, store, c.args[0])
	case "remove", "rm":
		if len(c.args) == 0 {
			return &UsageError{of: c}
		}
		for _, id := range c.args {
			if err := store.Remove(ctx, id); err != nil {
				return fmt.Errorf("remove %s: %w", id, err)
			}
			fmt.Fprintf(c.stdout(), "removed %s\n", id)
		}
		return nil
	case "clear":
		if !c.yes {
			return errors.New("drafts clear deletes every draft; pass -yes to confirm")
		}
		return store.Clear(ctx)
	default:
		return &UsageError{of: c}
	}
}

func (c *draftsCmd) runAdd(ctx context.Context, store drafts.Store) error {
	var batch []drafts.Draft
	if c.fromClipboard {
		if len(c.args) > 0 {
			return errors.New("-from-clipboard does not take file arguments")
		}
		img, err := clipboard.ReadImage()
		if err != nil {
			return fmt.Errorf("read clipboard: %w", err)
		}
		d := drafts.New("", drafts.KindImage)
		d.Source = filepath.Join(c.uploadsDir(), d.ID+".png")
		if err := savePNG(d.Source, img); err != nil {
			return fmt.Errorf("store clipboard image: %w", err)
		}
		batch = append(batch, d)
	}
	for _, path := range c.args {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		kind := kindForPath(abs)
		if c.kind != "" {
			if kind, err = drafts.ParseKind(c.kind); err != nil {
				return err
			}
		}
		batch = append(batch, drafts.New(abs, kind))
	}
	if len(batch) == 0 {
		return &UsageError{of: c}
	}
	added, err := store.AddMany(ctx, batch)
	if err != nil {
		return err
	}
	for _, d := range added {
		fmt.Fprintf(c.stdout(), "%s\t%s\t%s\n", d.ID, d.Kind, d.Source)
	}
	return nil
}

func (c *draftsCmd) runList(ctx context.Context, store drafts.Store) error {
	list, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(c.stdout(), "no drafts")
		return nil
	}
	w := tabwriter.NewWriter(c.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tMASKS\tUPDATED\tSOURCE")
	for _, d := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Kind, maskNames(d), d.UpdatedAt.Local().Format(time.DateTime), d.Source)
	}
	return w.Flush()
}

func (c *draftsCmd) runShow(ctx context.Context, store drafts.Store, id string) error {
	d, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("draft %s: %w", id, err)
	}
	out := c.stdout()
	fmt.Fprintf(out, "id:      %s\n", d.ID)
	fmt.Fprintf(out, "kind:    %s\n", d.Kind)
	fmt.Fprintf(out, "source:  %s\n", d.Source)
	fmt.Fprintf(out, "created: %s\n", d.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "updated: %s\n", d.UpdatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "masks:   %s\n", maskNames(d))
	return nil
}

func maskNames(d drafts.Draft) string {
	var names []string
	for _, cat := range drafts.Categories() {
		if _, ok := d.Mask(cat); ok {
			names = append(names, string(cat))
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
