package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/example/maskedit/internal/clipboard"
	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/editor"
	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/redact"
)

type inpaintCmd struct {
	*root
	fs          *flag.FlagSet
	category    string
	prompt      string
	output      string
	toClipboard bool
	replace     bool
	id          string
	client      editor.Inpainter
}

func (c *inpaintCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *inpaintCmd) Template() string {
	return "inpaint.txt"
}

func parseInpaintCmd(args []string, r *root) (*inpaintCmd, error) {
	fs := flag.NewFlagSet("inpaint", flag.ExitOnError)
	c := &inpaintCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.category, "category", "", "mask category to send")
	fs.StringVar(&c.prompt, "prompt", "", "instruction for the inpainting service")
	fs.StringVar(&c.output, "output", "", "write the result image here")
	fs.BoolVar(&c.toClipboard, "to-clipboard", false, "copy the result image to the clipboard")
	fs.BoolVar(&c.replace, "replace", false, "make the result the draft's image and drop the applied mask")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 || c.category == "" {
		return nil, &UsageError{of: c}
	}
	if c.output == "" && !c.toClipboard && !c.replace {
		return nil, errors.New("nothing to do with the result: pass -output, -to-clipboard or -replace")
	}
	c.id = fs.Arg(0)
	return c, nil
}

func (c *inpaintCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cat, err := drafts.ParseCategory(c.category)
	if err != nil {
		return err
	}
	client := c.client
	if client == nil {
		rc := c.inpaintClient()
		defer rc.Close()
		client = rc
	}
	s, d, err := c.newSession(ctx, c.id, cat, editor.ToolPaint, client)
	if err != nil {
		return err
	}
	defer s.Close()
	if _, ok := d.Mask(cat); !ok {
		return fmt.Errorf("draft %s has no %s mask; draw one with edit first", d.ID, cat)
	}

	start := time.Now()
	res, err := s.Inpaint(ctx, c.prompt)
	if err != nil {
		var svc *redact.ServiceError
		if errors.As(err, &svc) {
			return fmt.Errorf("inpainting service rejected the request: %w", err)
		}
		if redact.IsRetryable(err) {
			return fmt.Errorf("inpainting service unreachable, try again: %w", err)
		}
		return err
	}
	logger.Log.Info("inpaint finished", zap.String("draft", d.ID), zap.String("category", string(cat)),
		zap.Int("bytes", res.Size), zap.Duration("took", time.Since(start)))

	if c.output != "" {
		if err := res.SaveAs(c.output); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		fmt.Fprintf(c.stdout(), "wrote %s\n", c.output)
		c.notifyInpaint(c.output, res.Image)
	}
	if c.toClipboard {
		if err := clipboard.WriteImage(res.Image); err != nil {
			return fmt.Errorf("copy result: %w", err)
		}
		c.notifyCopy("inpainted image")
	}
	if c.replace {
		return c.replaceSource(ctx, d, cat, res)
	}
	return nil
}

// replaceSource keeps a copy of the result under the uploads directory and
// points the draft at it. The applied mask no longer matches the new pixels,
// so it is dropped.
func (c *inpaintCmd) replaceSource(ctx context.Context, d drafts.Draft, cat drafts.Category, res *redact.Result) error {
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	path := filepath.Join(c.uploadsDir(), fmt.Sprintf("%s-%d%s", d.ID, time.Now().UnixNano(), filepath.Ext(res.Path)))
	if err := res.SaveAs(path); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	d.Source = path
	delete(d.Masks, cat)
	if err := store.Update(ctx, d); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("update draft: %w", err)
	}
	fmt.Fprintf(c.stdout(), "%s now uses %s\n", d.ID, path)
	return nil
}
