package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/mapper"
	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/payload"
	"github.com/example/maskedit/internal/redact"
)

func stripes(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if x%2 == 0 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func encode(t *testing.T, format payload.Format, src payload.Source) payload.DataURI {
	t.Helper()
	uri, err := payload.NewEncoder(format, zap.NewNop()).Encode(context.Background(), src, 1)
	require.NoError(t, err)
	return uri
}

func leftMask(w, h int) *mask.Surface {
	s := mask.NewSurface(w, h)
	s.BeginStroke(mask.ModePaint)
	for y := 0; y < h; y++ {
		s.ExtendStroke(mapper.Point{X: 0, Y: float64(y)}, mapper.Point{X: float64(w/2 - 4), Y: float64(y)}, 1)
	}
	s.EndStroke()
	return s
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInpaintThroughClient(t *testing.T) {
	srv := httptest.NewServer(New(WithLogger(zap.NewNop())).Handler())
	defer srv.Close()

	img := stripes(40, 20)
	client := redact.New(srv.URL, redact.WithLogger(zap.NewNop()), redact.WithTempDir(t.TempDir()))
	defer client.Close()

	for _, prompt := range []string{"", "solid please", "pixelate"} {
		res, err := client.RequestInpaint(context.Background(), redact.Request{
			Image:  encode(t, payload.PNG, payload.FromImage(img)),
			Mask:   encode(t, payload.PNG, payload.FromSurface(leftMask(40, 20))),
			Prompt: prompt,
		})
		require.NoError(t, err, prompt)
		assert.Equal(t, image.Rect(0, 0, 40, 20), res.Image.Bounds())
		assert.Equal(t, "image/png", res.MIME)

		r, g, b, _ := res.Image.At(35, 10).RGBA()
		wr, wg, wb, _ := img.At(35, 10).RGBA()
		assert.Equal(t, [3]uint32{wr, wg, wb}, [3]uint32{r, g, b}, "unmasked pixel kept (%q)", prompt)
	}
}

func TestInpaintMethods(t *testing.T) {
	assert.Equal(t, "blur", methodFromPrompt(""))
	assert.Equal(t, "blur", methodFromPrompt("remove the face"))
	assert.Equal(t, "solid", methodFromPrompt("Solid box"))
	assert.Equal(t, "solid", methodFromPrompt("black it out"))
	assert.Equal(t, "pixelate", methodFromPrompt("PIXELATE"))
}

func TestInpaintSolidFillsMask(t *testing.T) {
	h := New(WithLogger(zap.NewNop())).Handler()
	img := encode(t, payload.PNG, payload.FromImage(stripes(20, 10)))
	m := encode(t, payload.PNG, payload.FromSurface(leftMask(20, 10)))
	rec := postJSON(t, h, "/inpaint", `{"image":"`+string(img)+`","mask":"`+string(m)+`","prompt":"solid"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	out, err := png.Decode(rec.Body)
	require.NoError(t, err)
	r, g, b, a := out.At(2, 5).RGBA()
	assert.Equal(t, []uint32{0, 0, 0, 0xffff}, []uint32{r, g, b, a})
}

func TestInpaintErrors(t *testing.T) {
	h := New(WithLogger(zap.NewNop()), WithMaxBody(1<<20)).Handler()
	img := string(encode(t, payload.PNG, payload.FromImage(stripes(20, 10))))
	m := string(encode(t, payload.PNG, payload.FromSurface(leftMask(20, 10))))
	wrongSize := string(encode(t, payload.PNG, payload.FromSurface(leftMask(10, 10))))
	empty := string(encode(t, payload.PNG, payload.FromSurface(mask.NewSurface(20, 10))))

	cases := []struct {
		name   string
		body   string
		status int
		detail string
	}{
		{"not json", "{", http.StatusBadRequest, "invalid JSON body"},
		{"missing mask", `{"image":"` + img + `"}`, http.StatusBadRequest, "image and mask are required"},
		{"bad envelope", `{"image":"hello","mask":"` + m + `"}`, http.StatusBadRequest, "image:"},
		{"size mismatch", `{"image":"` + img + `","mask":"` + wrongSize + `"}`, http.StatusUnprocessableEntity, "mask is 10x10"},
		{"empty mask", `{"image":"` + img + `","mask":"` + empty + `"}`, http.StatusUnprocessableEntity, "mask is empty"},
		{"too big", `{"image":"` + strings.Repeat("a", 2<<20) + `"}`, http.StatusRequestEntityTooLarge, "too large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h, "/inpaint", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Detail, tc.detail)
		})
	}
}

func TestServiceErrorReachesClient(t *testing.T) {
	srv := httptest.NewServer(New(WithLogger(zap.NewNop())).Handler())
	defer srv.Close()
	client := redact.New(srv.URL, redact.WithLogger(zap.NewNop()), redact.WithTempDir(t.TempDir()))

	_, err := client.RequestInpaint(context.Background(), redact.Request{
		Image: encode(t, payload.PNG, payload.FromImage(stripes(8, 8))),
		Mask:  encode(t, payload.PNG, payload.FromSurface(mask.NewSurface(8, 8))),
	})
	var se *redact.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, "mask is empty", se.Detail)
}

func TestHealthAndMetrics(t *testing.T) {
	h := New(WithLogger(zap.NewNop())).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "maskedit_server_requests_total")
}

func TestDraftRoutes(t *testing.T) {
	ctx := context.Background()
	store := drafts.NewMemory()
	d, err := store.Add(ctx, drafts.Draft{Source: "a.jpg"})
	require.NoError(t, err)
	h := New(WithStore(store), WithLogger(zap.NewNop())).Handler()

	do := func(method, path string, body io.Reader) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, body))
		return rec
	}

	rec := do(http.MethodGet, "/drafts/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []drafts.Draft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	m := string(encode(t, payload.PNG, payload.FromSurface(leftMask(8, 8))))
	rec = do(http.MethodPut, "/drafts/"+d.ID+"/masks/face", strings.NewReader(m))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = do(http.MethodPut, "/drafts/"+d.ID+"/masks/license_plate", bytes.NewReader([]byte(`{"mask":"`+m+`"}`)))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(http.MethodGet, "/drafts/"+d.ID+"/masks/face", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got maskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, drafts.Face, got.Category)
	assert.Equal(t, m, got.Mask)

	_, ok, err := store.GetMask(ctx, d.ID, drafts.Plate)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/drafts/"+d.ID+"/masks/face", strings.NewReader("nope")).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/drafts/"+d.ID+"/masks/tattoo", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/drafts/"+d.ID+"/masks/doc", nil).Code)

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/drafts/"+d.ID+"/masks/face", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/drafts/"+d.ID+"/masks/face", nil).Code)

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/drafts/"+d.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/drafts/"+d.ID, nil).Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- New(WithLogger(zap.NewNop())).ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-errc)
}
