package editor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/payload"
	"github.com/example/maskedit/internal/redact"
)

// Tool selects between the two editing surfaces.
type Tool int

const (
	// ToolPaint is the free-paint tool: paint and erase, bounded history.
	ToolPaint Tool = iota
	// ToolRefine edits a category suggestion: erase and restore, with the
	// loaded mask as a history floor.
	ToolRefine
)

func (t Tool) String() string {
	if t == ToolRefine {
		return "refine"
	}
	return "paint"
}

// ParseTool accepts paint or refine.
func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "paint":
		return ToolPaint, nil
	case "refine", "refinement":
		return ToolRefine, nil
	}
	return 0, fmt.Errorf("unknown tool %q", s)
}

// Brush returns the width range the tool offers.
func (t Tool) Brush() mask.BrushRange {
	if t == ToolRefine {
		return mask.RefineBrush
	}
	return mask.PaintBrush
}

// Inpainter is the part of redact.Client a session uses.
type Inpainter interface {
	RequestInpaint(ctx context.Context, req redact.Request) (*redact.Result, error)
	Abandon()
}

type options struct {
	tool         Tool
	width        int
	brush        *mask.BrushRange
	capacity     int
	maskEncoder  *payload.Encoder
	imageEncoder *payload.Encoder
	maskFormat   payload.Format
	imageQuality float64
	client       Inpainter
	log          *zap.Logger
	metrics      bool
}

// Option configures a Session.
type Option func(*options)

// WithTool selects the editing tool. The default is ToolPaint.
func WithTool(t Tool) Option { return func(o *options) { o.tool = t } }

// WithBrushWidth sets the initial brush width, clamped to the tool's range.
func WithBrushWidth(w int) Option { return func(o *options) { o.width = w } }

// WithBrushRange replaces the tool's width range, for callers that are not
// bound by the interactive limits.
func WithBrushRange(r mask.BrushRange) Option { return func(o *options) { o.brush = &r } }

// WithHistoryCapacity bounds the free-paint undo log.
func WithHistoryCapacity(n int) Option { return func(o *options) { o.capacity = n } }

// WithEncoder overrides the mask encoder. It takes precedence over
// WithMaskFormat.
func WithEncoder(e *payload.Encoder) Option { return func(o *options) { o.maskEncoder = e } }

// WithMaskFormat picks the mask encoding. PNG is the default.
func WithMaskFormat(f payload.Format) Option { return func(o *options) { o.maskFormat = f } }

// WithImageQuality sets the lossy quality factor in (0,1].
func WithImageQuality(q float64) Option { return func(o *options) { o.imageQuality = q } }

// WithClient attaches the inpaint client.
func WithClient(c Inpainter) Option { return func(o *options) { o.client = c } }

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithMetrics toggles Prometheus recording. It is on by default.
func WithMetrics(on bool) Option { return func(o *options) { o.metrics = on } }

func (o *options) brushRange() mask.BrushRange {
	if o.brush != nil {
		return *o.brush
	}
	return o.tool.Brush()
}
