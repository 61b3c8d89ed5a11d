package redact

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/maskedit/internal/payload"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testRequest() Request {
	return Request{
		Image: payload.NewDataURI("image/jpeg", []byte("img")),
		Mask:  payload.NewDataURI("image/png", []byte("mask")),
	}
}

func TestRequestInpaintSuccess(t *testing.T) {
	var got inpaintBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/inpaint", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.NotContains(t, string(body), "prompt")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(t, 12, 8))
	}))
	defer srv.Close()

	c := New(srv.URL+"/inpaint", WithTempDir(t.TempDir()))
	req := testRequest()
	res, err := c.RequestInpaint(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, string(req.Image), got.Image)
	assert.Equal(t, string(req.Mask), got.Mask)
	assert.Equal(t, 12, res.Image.Bounds().Dx())
	assert.Equal(t, "image/png", res.MIME)
	assert.FileExists(t, res.Path)
	assert.False(t, c.Pending())

	res.Release()
	res.Release()
	assert.NoFileExists(t, res.Path)
}

func TestRequestInpaintSendsPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body inpaintBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "blur", body.Prompt)
		_, _ = w.Write(pngBytes(t, 2, 2))
	}))
	defer srv.Close()

	c := New(srv.URL, WithTempDir(t.TempDir()))
	req := testRequest()
	req.Prompt = "  blur "
	res, err := c.RequestInpaint(context.Background(), req)
	require.NoError(t, err)
	res.Release()
}

func TestRequestInpaintServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":"mask size does not match image"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).RequestInpaint(context.Background(), testRequest())
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, "mask size does not match image", se.Detail)
	assert.False(t, IsRetryable(err))
}

func TestRequestInpaintServiceErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).RequestInpaint(context.Background(), testRequest())
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, "upstream exploded", se.Detail)
}

func TestRequestInpaintStructuredDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"loc":["body","mask"],"msg":"field required"}]}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).RequestInpaint(context.Background(), testRequest())
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Detail, "field required")
}

func TestRequestInpaintTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(2*time.Second))
	_, err := c.RequestInpaint(context.Background(), testRequest())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, IsRetryable(err))
	assert.False(t, c.Pending())
}

func TestRequestInpaintUndecodableResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, "definitely not a png")
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithTempDir(t.TempDir())).RequestInpaint(context.Background(), testRequest())
	assert.True(t, IsRetryable(err))
}

func TestRequestInpaintRejectsEmptyPayload(t *testing.T) {
	_, err := New("http://127.0.0.1:1").RequestInpaint(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestSecondRequestRejectedWhilePending(t *testing.T) {
	var hits atomic.Int32
	entered := make(chan struct{})
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		close(entered)
		<-unblock
		_, _ = w.Write(pngBytes(t, 4, 4))
	}))
	defer srv.Close()

	c := New(srv.URL, WithTempDir(t.TempDir()))
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.RequestInpaint(context.Background(), testRequest())
		done <- outcome{res, err}
	}()
	<-entered
	require.True(t, c.Pending())

	_, err := c.RequestInpaint(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrRequestPending)

	close(unblock)
	first := <-done
	require.NoError(t, first.err)
	first.res.Release()
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewRequestReleasesPreviousResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes(t, 4, 4))
	}))
	defer srv.Close()

	c := New(srv.URL, WithTempDir(t.TempDir()))
	first, err := c.RequestInpaint(context.Background(), testRequest())
	require.NoError(t, err)
	require.FileExists(t, first.Path)

	second, err := c.RequestInpaint(context.Background(), testRequest())
	require.NoError(t, err)
	assert.NoFileExists(t, first.Path)
	assert.FileExists(t, second.Path)

	c.Close()
	assert.NoFileExists(t, second.Path)
}

func TestAbandonDropsResult(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-unblock
		_, _ = w.Write(pngBytes(t, 4, 4))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(srv.URL, WithTempDir(dir))
	errCh := make(chan error, 1)
	go func() {
		_, err := c.RequestInpaint(context.Background(), testRequest())
		errCh <- err
	}()
	<-entered
	c.Abandon()
	assert.True(t, c.Pending())
	close(unblock)

	assert.ErrorIs(t, <-errCh, ErrAbandoned)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
