package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/mapper"
	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/payload"
	"github.com/example/maskedit/internal/redact"
)

// countingStore records mask reads and writes.
type countingStore struct {
	drafts.Store
	mu   sync.Mutex
	gets int
	sets int
}

func (c *countingStore) GetMask(ctx context.Context, id string, cat drafts.Category) (string, bool, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Store.GetMask(ctx, id, cat)
}

func (c *countingStore) SetMask(ctx context.Context, id string, cat drafts.Category, encoded string) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Store.SetMask(ctx, id, cat, encoded)
}

func newImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 90, 120, 150, 255
	}
	return img
}

func addDraft(t *testing.T, s drafts.Store, d drafts.Draft) drafts.Draft {
	t.Helper()
	if d.Source == "" {
		d.Source = "photo.jpg"
	}
	out, err := s.Add(context.Background(), d)
	require.NoError(t, err)
	return out
}

func loaded(t *testing.T, w, h int, opts ...Option) (*Session, *countingStore, drafts.Draft) {
	t.Helper()
	store := &countingStore{Store: drafts.NewMemory()}
	d := addDraft(t, store, drafts.Draft{})
	s := New(store, append([]Option{WithLogger(zap.NewNop()), WithMetrics(false)}, opts...)...)
	require.NoError(t, s.Load(context.Background(), d.ID, drafts.Face, newImage(w, h)))
	return s, store, d
}

func stroke(s *Session, mode mask.Mode, pts ...mapper.Point) {
	s.BeginStroke(mode)
	s.ExtendStroke(pts[0], pts[0])
	for i := 1; i < len(pts); i++ {
		s.ExtendStroke(pts[i-1], pts[i])
	}
	s.EndStroke()
}

func TestPaintStrokeSavedUnderActiveCategoryOnly(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: drafts.NewMemory()}
	d := addDraft(t, store, drafts.Draft{Masks: map[drafts.Category]string{drafts.Doc: "data:image/png;base64,AAAA"}})

	s := New(store,
		WithLogger(zap.NewNop()),
		WithMetrics(false),
		WithBrushRange(mask.BrushRange{Min: 1, Max: 200, Default: 80}),
	)
	require.NoError(t, s.Load(ctx, d.ID, drafts.Face, newImage(400, 600)))
	stroke(s, mask.ModePaint, mapper.Point{X: 100, Y: 100}, mapper.Point{X: 100, Y: 300})
	require.NoError(t, s.Save(ctx))

	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, store.sets)

	got, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	encoded, ok := got.Mask(drafts.Face)
	require.True(t, ok)
	surface, err := payload.DecodeMask(payload.DataURI(encoded), 400, 600)
	require.NoError(t, err)
	require.Equal(t, 400, surface.Width())
	require.Equal(t, 600, surface.Height())

	band := 0
	for x := 0; x < 400; x++ {
		if surface.At(x, 200) >= mask.Masked {
			band++
		}
	}
	assert.InDelta(t, 80, band, 2)
	assert.GreaterOrEqual(t, surface.At(100, 65), uint8(mask.Masked))
	assert.GreaterOrEqual(t, surface.At(100, 335), uint8(mask.Masked))
	assert.Zero(t, surface.At(100, 50))
	assert.Zero(t, surface.At(100, 350))
	assert.Zero(t, surface.At(200, 200))

	assert.Equal(t, "data:image/png;base64,AAAA", got.Masks[drafts.Doc])
	_, ok = got.Mask(drafts.Location)
	assert.False(t, ok)
	_, ok = got.Mask(drafts.Plate)
	assert.False(t, ok)
}

func TestStrokesDoNotTouchStore(t *testing.T) {
	s, store, _ := loaded(t, 50, 50)
	for i := 0; i < 5; i++ {
		stroke(s, mask.ModePaint, mapper.Point{X: float64(i * 10), Y: 5}, mapper.Point{X: float64(i * 10), Y: 40})
	}
	s.Undo()
	s.Clear()
	assert.Equal(t, 0, store.sets)
	assert.Equal(t, 1, store.gets)
}

func TestUndoReplaysEarlierStrokes(t *testing.T) {
	for _, tool := range []Tool{ToolPaint, ToolRefine} {
		t.Run(tool.String(), func(t *testing.T) {
			s, _, _ := loaded(t, 60, 60, WithTool(tool))
			states := []mask.Snapshot{s.Surface().Snapshot()}
			for i := 0; i < 6; i++ {
				mode := mask.ModePaint
				if i%3 == 2 {
					mode = mask.ModeErase
				}
				stroke(s, mode, mapper.Point{X: float64(5 + i*8), Y: 0}, mapper.Point{X: float64(5 + i*8), Y: 59})
				states = append(states, s.Surface().Snapshot())
			}
			for n := 1; n <= 6; n++ {
				require.True(t, s.Undo())
				assert.True(t, states[6-n].Equal(s.Surface().Snapshot()), "after %d undos", n)
			}
		})
	}
}

func TestUndoAtFloor(t *testing.T) {
	s, _, _ := loaded(t, 20, 20, WithTool(ToolRefine))
	before := s.Surface().Snapshot()
	assert.Equal(t, 1, s.HistoryLen())
	assert.False(t, s.Undo())
	assert.Equal(t, 1, s.HistoryLen())
	assert.True(t, before.Equal(s.Surface().Snapshot()))

	p, _, _ := loaded(t, 20, 20)
	assert.False(t, p.Undo())
}

func TestClearThenUndo(t *testing.T) {
	s, _, _ := loaded(t, 40, 40)
	stroke(s, mask.ModePaint, mapper.Point{X: 20, Y: 20})
	before := s.Surface().Snapshot()
	require.NotZero(t, s.Surface().MaskedCount(mask.Masked))

	s.Clear()
	assert.Zero(t, s.Surface().MaskedCount(1))
	require.True(t, s.Undo())
	assert.True(t, before.Equal(s.Surface().Snapshot()))
}

func TestHistoryCapacity(t *testing.T) {
	s, _, _ := loaded(t, 40, 40, WithHistoryCapacity(3))
	for i := 0; i < 5; i++ {
		stroke(s, mask.ModePaint, mapper.Point{X: float64(i * 8), Y: 10})
	}
	assert.Equal(t, 3, s.HistoryLen())
	undone := 0
	for s.Undo() {
		undone++
	}
	assert.Equal(t, 3, undone)
	assert.NotZero(t, s.Surface().MaskedCount(mask.Masked), "oldest strokes were evicted and stay")
}

func TestPointerMappingAtHalfScale(t *testing.T) {
	s, _, _ := loaded(t, 200, 200, WithBrushWidth(10))
	canvas := mapper.Canvas{Rect: mapper.Rect{Left: 10, Top: 20, Width: 100, Height: 100}, BufferWidth: 200, BufferHeight: 200}

	require.True(t, s.PointerDown(mapper.MouseEvent(60, 70), canvas))
	require.True(t, s.PointerMove(mapper.MouseEvent(60, 70), canvas))
	s.PointerUp()
	surface := s.Surface()
	assert.Equal(t, uint8(255), surface.At(100, 100))
	assert.Zero(t, surface.At(50, 50))
}

func TestPressWithoutMovePaintsNothing(t *testing.T) {
	s, _, _ := loaded(t, 60, 60, WithBrushWidth(28))
	canvas := mapper.Canvas{Rect: mapper.Rect{Width: 60, Height: 60}, BufferWidth: 60, BufferHeight: 60}

	require.True(t, s.PointerDown(mapper.MouseEvent(30, 30), canvas))
	s.PointerUp()
	assert.Zero(t, s.Surface().MaskedCount(1))
	assert.Equal(t, 1, s.HistoryLen(), "the press still opened a stroke")
}

func TestInvalidPointerIsSkipped(t *testing.T) {
	s, _, _ := loaded(t, 50, 50)
	canvas := mapper.Canvas{Rect: mapper.Rect{Width: 50, Height: 50}, BufferWidth: 50, BufferHeight: 50}
	assert.False(t, s.PointerDown(mapper.Event{}, canvas))
	assert.Equal(t, 0, s.HistoryLen())

	require.True(t, s.PointerDown(mapper.TouchEvent(mapper.Point{X: 5, Y: 5}), canvas))
	assert.False(t, s.PointerMove(mapper.Event{}, canvas))
	s.PointerUp()
	assert.Equal(t, 1, s.HistoryLen())
}

func TestBrushWidthChangeIsNotRetroactive(t *testing.T) {
	s, _, _ := loaded(t, 100, 100, WithBrushWidth(10))
	s.BeginStroke(mask.ModePaint)
	s.ExtendStroke(mapper.Point{X: 50, Y: 10}, mapper.Point{X: 50, Y: 10})
	s.SetBrushWidth(60)
	s.ExtendStroke(mapper.Point{X: 50, Y: 10}, mapper.Point{X: 50, Y: 90})
	s.EndStroke()

	assert.Zero(t, s.Surface().At(40, 50), "stroke kept its starting width")
	stroke(s, mask.ModePaint, mapper.Point{X: 20, Y: 50})
	assert.Equal(t, uint8(255), s.Surface().At(20+25, 50))
}

func TestBrushWidthClamped(t *testing.T) {
	s := New(drafts.NewMemory(), WithLogger(zap.NewNop()))
	assert.Equal(t, mask.PaintBrush.Default, s.BrushWidth())
	assert.Equal(t, mask.PaintBrush.Max, s.SetBrushWidth(500))
	assert.Equal(t, mask.PaintBrush.Min, s.SetBrushWidth(1))

	r := New(drafts.NewMemory(), WithTool(ToolRefine), WithBrushWidth(2))
	assert.Equal(t, mask.RefineBrush.Min, r.BrushWidth())
}

func TestPaintToolCapturesModeAtStrokeStart(t *testing.T) {
	s, _, _ := loaded(t, 60, 60, WithBrushWidth(10))
	canvas := mapper.Canvas{Rect: mapper.Rect{Width: 60, Height: 60}, BufferWidth: 60, BufferHeight: 60}
	require.True(t, s.PointerDown(mapper.MouseEvent(10, 30), canvas))
	require.NoError(t, s.SetMode(mask.ModeErase))
	s.PointerMove(mapper.MouseEvent(50, 30), canvas)
	s.PointerUp()
	assert.Equal(t, uint8(255), s.Surface().At(50, 30))
	assert.Equal(t, mask.ModeErase, s.Mode())
}

func TestRefineLoadsPlaceholder(t *testing.T) {
	s, _, _ := loaded(t, 100, 100, WithTool(ToolRefine))
	assert.Equal(t, mask.ModeErase, s.Mode())
	centre := s.Surface().At(50, 50)
	assert.InDelta(t, 153, int(centre), 1)
	assert.Zero(t, s.Surface().At(0, 0))
}

func TestRefineRestoreMidGesture(t *testing.T) {
	s, _, _ := loaded(t, 100, 100, WithTool(ToolRefine), WithBrushWidth(20))
	original := s.Surface().Snapshot()
	canvas := mapper.Canvas{Rect: mapper.Rect{Width: 100, Height: 100}, BufferWidth: 100, BufferHeight: 100}

	stroke(s, mask.ModeErase, mapper.Point{X: 50, Y: 10}, mapper.Point{X: 50, Y: 90})
	require.Zero(t, s.Surface().At(50, 50))

	require.NoError(t, s.SetMode(mask.ModeRestore))
	require.True(t, s.PointerDown(mapper.MouseEvent(20, 50), canvas))
	require.True(t, s.PointerMove(mapper.MouseEvent(25, 50), canvas))
	assert.True(t, original.Equal(s.Surface().Snapshot()), "restore segment brings back the loaded mask")
	assert.Equal(t, mask.ModeErase, s.Mode())

	s.PointerMove(mapper.MouseEvent(50, 50), canvas)
	s.PointerUp()
	assert.Zero(t, s.Surface().At(40, 50), "later segments erase")
	assert.NotZero(t, s.Surface().At(50, 30))

	require.True(t, s.Undo())
	assert.Zero(t, s.Surface().At(50, 50), "undo returns to the state before the gesture")
}

func TestRestore(t *testing.T) {
	s, _, _ := loaded(t, 80, 80, WithTool(ToolRefine))
	original := s.Surface().Snapshot()
	stroke(s, mask.ModeErase, mapper.Point{X: 40, Y: 40})
	n := s.HistoryLen()

	require.NoError(t, s.SetMode(mask.ModeRestore))
	require.NoError(t, s.Restore())
	assert.True(t, original.Equal(s.Surface().Snapshot()))
	assert.Equal(t, mask.ModeErase, s.Mode())
	assert.Equal(t, n, s.HistoryLen())

	p, _, _ := loaded(t, 10, 10)
	var ie *InputError
	assert.ErrorAs(t, p.Restore(), &ie)
	assert.ErrorAs(t, p.SetMode(mask.ModeRestore), &ie)
}

func TestLoadSeedsFromStoredMask(t *testing.T) {
	ctx := context.Background()
	seed := mask.NewSurface(30, 30)
	seed.BeginStroke(mask.ModePaint)
	seed.ExtendStroke(mapper.Point{X: 15, Y: 15}, mapper.Point{X: 15, Y: 15}, 5)
	seed.EndStroke()
	uri, err := payload.NewEncoder(payload.PNG, nil).Encode(ctx, payload.FromSurface(seed), 1)
	require.NoError(t, err)

	store := drafts.NewMemory()
	d := addDraft(t, store, drafts.Draft{Masks: map[drafts.Category]string{drafts.Plate: string(uri)}})
	s := New(store, WithTool(ToolRefine), WithLogger(zap.NewNop()))
	require.NoError(t, s.Load(ctx, d.ID, drafts.Plate, newImage(30, 30)))
	assert.True(t, seed.Snapshot().Equal(s.Surface().Snapshot()))
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	store := drafts.NewMemory()
	img := addDraft(t, store, drafts.Draft{})
	video := addDraft(t, store, drafts.Draft{Source: "clip.mp4", Kind: drafts.KindVideo})
	s := New(store, WithLogger(zap.NewNop()))

	var ie *InputError
	err := s.Load(ctx, img.ID, drafts.Face, nil)
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, ErrNoImage)

	err = s.Load(ctx, video.ID, drafts.Face, newImage(4, 4))
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, ErrVideoDraft)

	err = s.Load(ctx, img.ID, "tattoo", newImage(4, 4))
	assert.ErrorAs(t, err, &ie)

	err = s.Load(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", drafts.Face, newImage(4, 4))
	assert.ErrorIs(t, err, drafts.ErrNotFound)

	assert.False(t, s.Loaded())
	assert.False(t, s.BeginStroke(mask.ModePaint))
	assert.False(t, s.Undo())
	assert.ErrorIs(t, s.Save(ctx), ErrNoImage)
}

func TestLoadIgnoresUnreadableMask(t *testing.T) {
	ctx := context.Background()
	store := drafts.NewMemory()
	d := addDraft(t, store, drafts.Draft{Masks: map[drafts.Category]string{drafts.Face: "not a data uri"}})
	s := New(store, WithLogger(zap.NewNop()))
	require.NoError(t, s.Load(ctx, d.ID, drafts.Face, newImage(8, 8)))
	assert.Zero(t, s.Surface().MaskedCount(1))
}

func TestSaveEncodeFailureWritesNothing(t *testing.T) {
	s, store, d := loaded(t, 20, 20, WithImageQuality(1.5))
	stroke(s, mask.ModePaint, mapper.Point{X: 10, Y: 10})
	before := s.Surface().Snapshot()

	err := s.Save(context.Background())
	var ee *payload.EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, store.sets)
	_, ok, err := store.GetMask(context.Background(), d.ID, drafts.Face)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, before.Equal(s.Surface().Snapshot()))
}

func TestSaveJPEGMask(t *testing.T) {
	s, store, d := loaded(t, 64, 64, WithMaskFormat(payload.JPEG))
	s.Clear()
	s.BeginStroke(mask.ModePaint)
	for y := 0.0; y < 64; y += 4 {
		s.ExtendStroke(mapper.Point{X: 0, Y: y}, mapper.Point{X: 63, Y: y})
	}
	s.EndStroke()
	require.NoError(t, s.Save(context.Background()))

	v, ok, err := store.GetMask(context.Background(), d.ID, drafts.Face)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", payload.DataURI(v).MIME())
}

// fakeInpainter records requests and returns a canned result or error.
type fakeInpainter struct {
	req       redact.Request
	calls     int
	abandoned int
	err       error
}

func (f *fakeInpainter) RequestInpaint(_ context.Context, req redact.Request) (*redact.Result, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &redact.Result{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), MIME: "image/png"}, nil
}

func (f *fakeInpainter) Abandon() { f.abandoned++ }

func TestInpaintSendsImageAndMask(t *testing.T) {
	fake := &fakeInpainter{}
	s, _, _ := loaded(t, 40, 30, WithClient(fake))
	stroke(s, mask.ModePaint, mapper.Point{X: 10, Y: 10})

	res, err := s.Inpaint(context.Background(), "  blur it ")
	require.NoError(t, err)
	assert.Same(t, res, s.Result())
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "  blur it ", fake.req.Prompt)
	assert.Equal(t, "image/jpeg", fake.req.Image.MIME())
	assert.Equal(t, "image/png", fake.req.Mask.MIME())

	img, err := fake.req.Image.Decode()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
	m, err := payload.DecodeMask(fake.req.Mask, 40, 30)
	require.NoError(t, err)
	assert.True(t, m.Snapshot().Equal(s.Surface().Snapshot()))

	s.Close()
	assert.Nil(t, s.Result())
	assert.Equal(t, 1, fake.abandoned)
}

func TestInpaintFailureLeavesSurface(t *testing.T) {
	fake := &fakeInpainter{err: &redact.ServiceError{Status: 422, Detail: "mask is empty"}}
	s, _, _ := loaded(t, 20, 20, WithClient(fake))
	stroke(s, mask.ModePaint, mapper.Point{X: 5, Y: 5})
	before := s.Surface().Snapshot()

	_, err := s.Inpaint(context.Background(), "")
	var se *redact.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 422, se.Status)
	assert.True(t, before.Equal(s.Surface().Snapshot()))
	assert.Nil(t, s.Result())
}

// gatedStore holds SetMask until release is closed.
type gatedStore struct {
	drafts.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) SetMask(ctx context.Context, id string, cat drafts.Category, encoded string) error {
	close(g.entered)
	<-g.release
	return g.Store.SetMask(ctx, id, cat, encoded)
}

func TestStrokeDuringSaveStaysOutOfPayload(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{Store: drafts.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	d := addDraft(t, store, drafts.Draft{})
	s := New(store, WithLogger(zap.NewNop()), WithMetrics(false), WithBrushWidth(10))
	require.NoError(t, s.Load(ctx, d.ID, drafts.Face, newImage(50, 50)))
	stroke(s, mask.ModePaint, mapper.Point{X: 10, Y: 10}, mapper.Point{X: 10, Y: 40})
	saved := s.Surface().Snapshot()

	done := make(chan error, 1)
	go func() { done <- s.Save(ctx) }()
	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("save never reached the store")
	}

	stroke(s, mask.ModePaint, mapper.Point{X: 40, Y: 10}, mapper.Point{X: 40, Y: 40})
	close(store.release)
	require.NoError(t, <-done)

	encoded, ok, err := store.GetMask(ctx, d.ID, drafts.Face)
	require.NoError(t, err)
	require.True(t, ok)
	back, err := payload.DecodeMask(payload.DataURI(encoded), 50, 50)
	require.NoError(t, err)
	assert.True(t, saved.Equal(back.Snapshot()))
	assert.NotZero(t, s.Surface().At(40, 25), "the later stroke stays on the surface")
}

// blockingInpainter holds RequestInpaint until release is closed.
type blockingInpainter struct {
	req     redact.Request
	entered chan struct{}
	release chan struct{}
}

func (b *blockingInpainter) RequestInpaint(_ context.Context, req redact.Request) (*redact.Result, error) {
	b.req = req
	close(b.entered)
	<-b.release
	return &redact.Result{MIME: "image/png"}, nil
}

func (b *blockingInpainter) Abandon() {}

func TestStrokeDuringInpaintStaysOutOfPayload(t *testing.T) {
	fake := &blockingInpainter{entered: make(chan struct{}), release: make(chan struct{})}
	s, _, _ := loaded(t, 50, 50, WithClient(fake), WithBrushWidth(10))
	stroke(s, mask.ModePaint, mapper.Point{X: 25, Y: 5}, mapper.Point{X: 25, Y: 45})
	sent := s.Surface().Snapshot()

	done := make(chan error, 1)
	go func() {
		_, err := s.Inpaint(context.Background(), "")
		done <- err
	}()
	select {
	case <-fake.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("inpaint never reached the client")
	}
	s.Clear()
	close(fake.release)
	require.NoError(t, <-done)

	m, err := payload.DecodeMask(fake.req.Mask, 50, 50)
	require.NoError(t, err)
	assert.True(t, sent.Equal(m.Snapshot()))
}

func TestInpaintFailureDropsPreviousResult(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			var buf bytes.Buffer
			_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)))
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(buf.Bytes())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	}))
	defer srv.Close()

	client := redact.New(srv.URL, redact.WithTempDir(t.TempDir()), redact.WithLogger(zap.NewNop()))
	s, _, _ := loaded(t, 20, 20, WithClient(client))
	stroke(s, mask.ModePaint, mapper.Point{X: 10, Y: 10})

	first, err := s.Inpaint(context.Background(), "")
	require.NoError(t, err)
	require.FileExists(t, first.Path)

	_, err = s.Inpaint(context.Background(), "")
	var se *redact.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Nil(t, s.Result())
	assert.NoFileExists(t, first.Path)
	s.Close()
}

func TestInpaintNeedsClient(t *testing.T) {
	s, _, _ := loaded(t, 4, 4)
	_, err := s.Inpaint(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNoClient))
}

func TestToolParsing(t *testing.T) {
	for in, want := range map[string]Tool{"": ToolPaint, "paint": ToolPaint, "Refine": ToolRefine} {
		got, err := ParseTool(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTool("lasso")
	assert.Error(t, err)
}
