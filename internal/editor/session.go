// Package editor is the mask editing session: one draft, one category, one
// working surface with its undo history, plus save and inpaint plumbing.
package editor

import (
	"context"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/mapper"
	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/metrics"
	"github.com/example/maskedit/internal/payload"
	"github.com/example/maskedit/internal/redact"
	"github.com/example/maskedit/internal/render"
)

// Session owns the editing state for one draft category. Stroke methods run
// synchronously on the caller's goroutine. Save and Inpaint snapshot the
// surface under the session lock before encoding, so strokes issued while
// they wait never leak into the payload.
type Session struct {
	store drafts.Store
	opts  options
	log   *zap.Logger

	mu       sync.Mutex
	draftID  string
	category drafts.Category
	base     image.Image
	surface  *mask.Surface
	original mask.Snapshot
	history  *mask.History
	mode     mask.Mode
	width    int

	// per-stroke state
	anchor      *mapper.Point
	radius      float64
	strokeStart mask.Mode

	result *redact.Result
}

// New returns an unloaded session backed by store.
func New(store drafts.Store, opts ...Option) *Session {
	o := options{
		capacity:     mask.DefaultHistoryCapacity,
		maskFormat:   payload.PNG,
		imageQuality: payload.DefaultImageQuality,
		metrics:      true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.Named(o.log, "editor")
	if o.maskEncoder == nil {
		o.maskEncoder = payload.NewEncoder(o.maskFormat, log)
	}
	if o.imageEncoder == nil {
		o.imageEncoder = payload.NewEncoder(payload.JPEG, log)
	}
	s := &Session{
		store: store,
		opts:  o,
		log:   log.With(zap.Stringer("tool", o.tool)),
		width: o.brushRange().Clamp(o.width),
	}
	s.mode = s.defaultMode()
	return s
}

func (s *Session) defaultMode() mask.Mode {
	if s.opts.tool == ToolRefine {
		return mask.ModeErase
	}
	return mask.ModePaint
}

// Load reads the draft, seeds the working surface from the stored category
// mask and resets history. Without a stored mask the refinement tool starts
// from the placeholder overlay and the paint tool from an empty surface.
func (s *Session) Load(ctx context.Context, draftID string, c drafts.Category, base image.Image) error {
	if base == nil || base.Bounds().Empty() {
		return &InputError{Op: "load", Err: ErrNoImage}
	}
	if !c.Valid() {
		return &InputError{Op: "load", Err: fmt.Errorf("unknown category %q", c)}
	}
	d, err := s.store.Get(ctx, draftID)
	if err != nil {
		return fmt.Errorf("load draft %s: %w", draftID, err)
	}
	if d.Kind == drafts.KindVideo {
		return &InputError{Op: "load", Err: ErrVideoDraft}
	}
	encoded, ok, err := s.store.GetMask(ctx, draftID, c)
	if err != nil {
		return fmt.Errorf("load %s mask: %w", c, err)
	}

	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	var surface *mask.Surface
	if ok {
		surface, err = payload.DecodeMask(payload.DataURI(encoded), w, h)
		if err != nil {
			s.log.Warn("stored mask unreadable, starting fresh",
				zap.String("draft", draftID), zap.String("category", string(c)), zap.Error(err))
			ok = false
		}
	}
	if !ok {
		if s.opts.tool == ToolRefine {
			surface = mask.SurfaceFromImage(render.Placeholder(w, h), w, h)
		} else {
			surface = mask.NewSurface(w, h)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftID = draftID
	s.category = c
	s.base = base
	s.surface = surface
	s.original = surface.Snapshot()
	if s.opts.tool == ToolRefine {
		s.history = mask.NewHistory(0, 1)
		s.history.Push(s.original)
	} else {
		s.history = mask.NewHistory(s.opts.capacity, 0)
	}
	s.mode = s.defaultMode()
	s.anchor = nil
	s.log.Info("mask loaded",
		zap.String("draft", draftID),
		zap.String("category", string(c)),
		zap.Int("width", w), zap.Int("height", h),
		zap.Bool("stored", ok))
	return nil
}

// Loaded reports whether Load has succeeded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface != nil
}

// Surface returns the working surface. Callers must not mutate it.
func (s *Session) Surface() *mask.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Base returns the loaded image.
func (s *Session) Base() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// Category returns the category being edited.
func (s *Session) Category() drafts.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// Tool returns the session tool.
func (s *Session) Tool() Tool { return s.opts.tool }

// Mode returns the mode the next segment will use.
func (s *Session) Mode() mask.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// BrushWidth returns the current brush width in pixels.
func (s *Session) BrushWidth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

// HistoryLen returns the number of undo entries, floor included.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return 0
	}
	return s.history.Len()
}

// SetMode selects the mode for later segments. The paint tool has no
// restore; the refinement tool applies a mode change to the stroke in
// progress.
func (s *Session) SetMode(m mask.Mode) error {
	if m == mask.ModeRestore && s.opts.tool != ToolRefine {
		return &InputError{Op: "set mode", Err: fmt.Errorf("%s tool has no restore mode", s.opts.tool)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	return nil
}

// SetBrushWidth changes the width used by strokes that start afterwards.
// The value is clamped to the tool range and the clamped width returned.
func (s *Session) SetBrushWidth(w int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = s.opts.brushRange().Clamp(w)
	return s.width
}

// PointerDown maps ev and starts a stroke there. It reports whether a
// stroke started; events without a usable position are dropped. Only the
// anchor is set, so a press released without moving paints nothing.
func (s *Session) PointerDown(ev mapper.Event, c mapper.Canvas) bool {
	p, err := mapper.MapToImageSpace(ev, c)
	if err != nil {
		s.log.Debug("pointer down ignored", zap.Error(err))
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.beginLocked(s.mode) {
		return false
	}
	s.anchor = &p
	return true
}

// PointerMove maps ev and extends the open stroke to it.
func (s *Session) PointerMove(ev mapper.Event, c mapper.Canvas) bool {
	p, err := mapper.MapToImageSpace(ev, c)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extendLocked(p)
}

// PointerUp ends the open stroke.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
}

// BeginStroke opens a stroke in image space with mode, pushing the
// pre-stroke surface onto history. It returns false before Load.
func (s *Session) BeginStroke(mode mask.Mode) bool {
	if mode == mask.ModeRestore && s.opts.tool != ToolRefine {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return s.beginLocked(mode)
}

// ExtendStroke composites the segment a-b into the open stroke.
func (s *Session) ExtendStroke(a, b mapper.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil || !s.surface.Stroking() {
		return
	}
	s.anchor = &a
	s.extendLocked(b)
}

// EndStroke closes the open stroke.
func (s *Session) EndStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
}

func (s *Session) beginLocked(mode mask.Mode) bool {
	if s.surface == nil {
		return false
	}
	if s.surface.Stroking() {
		s.endLocked()
	}
	s.history.Push(s.surface.Snapshot())
	s.radius = float64(s.width) / 2
	s.strokeStart = mode
	s.surface.BeginStroke(mode)
	return true
}

// extendLocked applies one segment. The paint tool keeps the mode it
// started with. The refinement tool reads the session mode per segment: a
// restore segment swaps the surface back to the loaded mask and falls back
// to erase, so the rest of the gesture erases.
func (s *Session) extendLocked(p mapper.Point) bool {
	if s.surface == nil || !s.surface.Stroking() {
		return false
	}
	from := p
	if s.anchor != nil {
		from = *s.anchor
	}
	if s.opts.tool == ToolRefine {
		if s.mode == mask.ModeRestore {
			s.surface.Restore(s.original)
			s.mode = mask.ModeErase
			s.surface.SetMode(mask.ModeErase)
			s.anchor = &p
			return true
		}
		s.surface.SetMode(s.mode)
	}
	s.surface.ExtendStroke(from, p, s.radius)
	s.anchor = &p
	return true
}

func (s *Session) endLocked() {
	if s.surface == nil || !s.surface.Stroking() {
		return
	}
	s.surface.EndStroke()
	s.anchor = nil
	if s.opts.metrics {
		metrics.StrokesTotal.WithLabelValues(s.opts.tool.String(), s.strokeStart.String()).Inc()
	}
}

// Undo restores the surface to its state before the last stroke or clear.
// At the history floor it does nothing. It reports whether anything changed.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return false
	}
	if s.surface.Stroking() {
		s.endLocked()
	}
	snap, ok := s.history.Pop()
	if ok {
		s.surface.Restore(snap)
	}
	if s.opts.metrics {
		result := "applied"
		if !ok {
			result = "floor"
		}
		metrics.UndosTotal.WithLabelValues(s.opts.tool.String(), result).Inc()
	}
	return ok
}

// Clear unmasks the whole surface. It can be undone.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return
	}
	if s.surface.Stroking() {
		s.endLocked()
	}
	s.history.Push(s.surface.Snapshot())
	s.surface.Clear()
}

// Restore puts back the mask the session was loaded with and switches to
// erase. It is not recorded in history.
func (s *Session) Restore() error {
	if s.opts.tool != ToolRefine {
		return &InputError{Op: "restore", Err: fmt.Errorf("%s tool has no restore", s.opts.tool)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return &InputError{Op: "restore", Err: ErrNoImage}
	}
	s.surface.Restore(s.original)
	s.mode = mask.ModeErase
	s.surface.SetMode(mask.ModeErase)
	return nil
}

// Save encodes the working surface and writes it to the store under the
// active category with a single SetMask. Nothing is written when encoding
// fails.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.surface == nil {
		s.mu.Unlock()
		return &InputError{Op: "save", Err: ErrNoImage}
	}
	id, c := s.draftID, s.category
	job := s.opts.maskEncoder.Start(payload.FromSurface(s.surface), s.opts.imageQuality)
	s.mu.Unlock()

	uri, err := job.Wait(ctx)
	if err != nil {
		s.countSave(c, "encode_error")
		s.log.Error("encode mask", zap.String("draft", id), zap.String("category", string(c)), zap.Error(err))
		return err
	}
	if err := s.store.SetMask(ctx, id, c, string(uri)); err != nil {
		s.countSave(c, "store_error")
		return fmt.Errorf("save %s mask: %w", c, err)
	}
	s.countSave(c, "ok")
	s.log.Info("mask saved", zap.String("draft", id), zap.String("category", string(c)), zap.Int("bytes", len(uri)))
	return nil
}

func (s *Session) countSave(c drafts.Category, result string) {
	if s.opts.metrics {
		metrics.SavesTotal.WithLabelValues(string(c), result).Inc()
	}
}

// Inpaint sends the base image and the working mask to the inpaint client.
// The surface is left as it is whatever the outcome. The previous result is
// released as soon as Inpaint is called, so after a failure Result is nil.
// The returned result is owned by the session until the next Inpaint or Close.
func (s *Session) Inpaint(ctx context.Context, prompt string) (*redact.Result, error) {
	if s.opts.client == nil {
		return nil, ErrNoClient
	}
	s.mu.Lock()
	if s.surface == nil {
		s.mu.Unlock()
		return nil, &InputError{Op: "inpaint", Err: ErrNoImage}
	}
	q := s.opts.imageQuality
	imageJob := s.opts.imageEncoder.Start(payload.FromImage(s.base), q)
	maskJob := s.opts.maskEncoder.Start(payload.FromSurface(s.surface), q)
	// the client releases the previous result when a request starts
	prev := s.result
	s.result = nil
	s.mu.Unlock()
	prev.Release()

	img, err := imageJob.Wait(ctx)
	if err != nil {
		return nil, err
	}
	m, err := maskJob.Wait(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.opts.client.RequestInpaint(ctx, redact.Request{Image: img, Mask: m, Prompt: prompt})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.result = res
	s.mu.Unlock()
	return res, nil
}

// Result returns the last inpaint result, if any.
func (s *Session) Result() *redact.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Abandon drops the result of an inpaint still in flight.
func (s *Session) Abandon() {
	if s.opts.client != nil {
		s.opts.client.Abandon()
	}
}

// Close abandons pending work and releases the last result.
func (s *Session) Close() {
	s.Abandon()
	s.mu.Lock()
	res := s.result
	s.result = nil
	s.mu.Unlock()
	res.Release()
}
