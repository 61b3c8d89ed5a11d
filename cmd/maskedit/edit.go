package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/editor"
	"github.com/example/maskedit/internal/mask"
)

type editCmd struct {
	*root
	fs       *flag.FlagSet
	tool     string
	category string
	script   string
	mode     string
	width    int
	maskOut  string
	dryRun   bool
	id       string
}

func (c *editCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *editCmd) Template() string {
	return "edit.txt"
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	c := &editCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.tool, "tool", "paint", "editing tool: paint or refine")
	fs.StringVar(&c.category, "category", "", "mask category: face, doc, location or plate")
	fs.StringVar(&c.script, "script", "", "stroke script to replay (- for stdin)")
	fs.StringVar(&c.mode, "mode", "", "initial mode: paint, erase or restore")
	fs.IntVar(&c.width, "width", 0, "brush width in image pixels (0 keeps the configured default)")
	fs.StringVar(&c.maskOut, "mask-out", "", "also write the edited mask to this PNG file")
	fs.BoolVar(&c.dryRun, "dry-run", false, "replay the script without saving the mask")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 || c.category == "" {
		return nil, &UsageError{of: c}
	}
	c.id = fs.Arg(0)
	return c, nil
}

func (c *editCmd) Run() error {
	ctx := context.Background()
	tool, err := editor.ParseTool(c.tool)
	if err != nil {
		return err
	}
	cat, err := drafts.ParseCategory(c.category)
	if err != nil {
		return err
	}
	script, err := c.readScript()
	if err != nil {
		return err
	}

	s, _, err := c.newSession(ctx, c.id, cat, tool, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.width > 0 {
		s.SetBrushWidth(c.width)
	}
	if c.mode != "" {
		m, err := mask.ParseMode(c.mode)
		if err != nil {
			return err
		}
		if err := s.SetMode(m); err != nil {
			return err
		}
	}
	if err := s.Run(script); err != nil {
		return err
	}

	surface := s.Surface()
	if c.maskOut != "" {
		if err := savePNG(c.maskOut, surface.Gray()); err != nil {
			return fmt.Errorf("write mask: %w", err)
		}
	}
	masked := surface.MaskedCount(mask.Masked)
	total := surface.Width() * surface.Height()
	if c.dryRun {
		fmt.Fprintf(c.stdout(), "%s %s: %.1f%% masked (not saved)\n", c.id, cat, percent(masked, total))
		return nil
	}
	if err := s.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout(), "%s %s: %.1f%% masked\n", c.id, cat, percent(masked, total))
	c.notifySave(cat)
	return nil
}

func (c *editCmd) readScript() (editor.Script, error) {
	if c.script == "" {
		return nil, nil
	}
	var r io.Reader
	if c.script == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(c.script)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return editor.ParseScript(r)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
