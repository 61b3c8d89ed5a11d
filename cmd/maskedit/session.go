package main

import (
	"context"
	"fmt"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/editor"
	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/redact"
)

// newSession builds an editor session from the configuration and loads the
// draft's category mask.
func (r *root) newSession(ctx context.Context, id string, cat drafts.Category, tool editor.Tool, client editor.Inpainter) (*editor.Session, drafts.Draft, error) {
	store, err := r.openStore(ctx)
	if err != nil {
		return nil, drafts.Draft{}, err
	}
	d, base, err := loadDraftImage(ctx, store, id)
	if err != nil {
		return nil, d, err
	}
	if d.Kind == drafts.KindVideo {
		return nil, d, &editor.InputError{Op: "load " + id, Err: editor.ErrVideoDraft}
	}
	width := r.config.Editor.PaintWidth
	if tool == editor.ToolRefine {
		width = r.config.Editor.RefineWidth
	}
	opts := []editor.Option{
		editor.WithTool(tool),
		editor.WithBrushWidth(width),
		editor.WithHistoryCapacity(r.config.Editor.History),
		editor.WithMaskFormat(r.config.MaskFormat()),
		editor.WithImageQuality(r.config.Inpaint.ImageQuality),
		editor.WithLogger(logger.Log),
	}
	if client != nil {
		opts = append(opts, editor.WithClient(client))
	}
	s := editor.New(store, opts...)
	if err := s.Load(ctx, d.ID, cat, base); err != nil {
		s.Close()
		return nil, d, fmt.Errorf("load %s: %w", id, err)
	}
	return s, d, nil
}

func (r *root) inpaintClient() *redact.Client {
	return redact.New(r.config.Inpaint.URL,
		redact.WithTimeout(r.config.Inpaint.Timeout),
		redact.WithLogger(logger.Log),
	)
}
