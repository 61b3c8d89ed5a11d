// Package redact talks to the external redaction services: the inpainting
// endpoint used by the editor and the upload-time blur/clean backend.
package redact

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/metrics"
	"github.com/example/maskedit/internal/payload"
)

// DefaultBaseURL is where a local inpainting service usually listens.
const DefaultBaseURL = "http://localhost:8080"

const userAgent = "maskedit/1"

type options struct {
	timeout    time.Duration
	log        *zap.Logger
	httpClient *http.Client
	tempDir    string
}

// Option configures a Client or Backend.
type Option func(*options)

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithTempDir sets where result files are written.
func WithTempDir(dir string) Option { return func(o *options) { o.tempDir = dir } }

func newResty(base string, o *options) *resty.Client {
	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(base, "/"))
	if o.timeout > 0 {
		rc.SetTimeout(o.timeout)
	}
	rc.SetHeader("User-Agent", userAgent)
	rc.SetLogger(o.log.Sugar())
	rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		id := uuid.NewString()
		req.SetHeader("X-Request-ID", id)
		o.log.Debug("http request", zap.String("method", req.Method), zap.String("url", req.URL), zap.String("request_id", id))
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		o.log.Debug("http response",
			zap.Int("status", resp.StatusCode()),
			zap.String("request_id", resp.Request.Header.Get("X-Request-ID")),
			zap.Duration("elapsed", resp.Time()),
		)
		return nil
	})
	return rc
}

func buildOptions(name string, opts []Option) *options {
	o := &options{}
	for _, fn := range opts {
		fn(o)
	}
	o.log = logger.Named(o.log, name)
	return o
}

// Request is one inpainting call.
type Request struct {
	Image  payload.DataURI
	Mask   payload.DataURI
	Prompt string
}

type inpaintBody struct {
	Image  string `json:"image"`
	Mask   string `json:"mask"`
	Prompt string `json:"prompt,omitempty"`
}

// Client issues inpaint requests one at a time.
type Client struct {
	http    *resty.Client
	log     *zap.Logger
	tempDir string

	mu         sync.Mutex
	pending    bool
	generation uint64
	last       *Result
}

// New creates a client for the service at baseURL. A trailing /inpaint on
// baseURL is accepted and stripped.
func New(baseURL string, opts ...Option) *Client {
	o := buildOptions("inpaint", opts)
	base := strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/inpaint")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{http: newResty(base, o), log: o.log, tempDir: o.tempDir}
}

// Pending reports whether a request is in flight.
func (c *Client) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// RequestInpaint sends req and returns the service's image. A call made while
// another is in flight fails with ErrRequestPending without touching the
// network. Starting a request releases the previous result.
func (c *Client) RequestInpaint(ctx context.Context, req Request) (*Result, error) {
	if req.Image == "" || req.Mask == "" {
		return nil, ErrEmptyPayload
	}
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		metrics.InpaintRequestsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrRequestPending
	}
	c.pending = true
	gen := c.generation
	prev := c.last
	c.last = nil
	c.mu.Unlock()
	prev.Release()

	res, err := c.send(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	if err != nil {
		metrics.InpaintRequestsTotal.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}
	if gen != c.generation {
		res.Release()
		metrics.InpaintRequestsTotal.WithLabelValues("abandoned").Inc()
		return nil, ErrAbandoned
	}
	c.last = res
	metrics.InpaintRequestsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(inpaintBody{
		Image:  string(req.Image),
		Mask:   string(req.Mask),
		Prompt: strings.TrimSpace(req.Prompt),
	})
	if err != nil {
		return nil, &TransportError{Op: "encode inpaint request", Err: err}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "image/*").
		SetBody(body).
		Post("/inpaint")
	if err != nil {
		c.log.Warn("inpaint request failed", zap.Error(err))
		return nil, &TransportError{Op: "inpaint request", Err: err}
	}
	if !resp.IsSuccess() {
		serr := parseServiceError(resp)
		c.log.Warn("inpaint rejected", zap.Int("status_code", resp.StatusCode()), zap.Error(serr))
		return nil, serr
	}
	res, err := newResult(resp.Body(), resp.Header().Get("Content-Type"), c.tempDir, c.log)
	if err != nil {
		return nil, &TransportError{Op: "inpaint response", Err: err}
	}
	c.log.Info("inpaint complete", zap.String("path", res.Path), zap.Int("bytes", res.Size))
	return res, nil
}

// Abandon discards the result of the request in flight, if any. The request
// still occupies the client until it resolves.
func (c *Client) Abandon() {
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
}

// Close abandons any pending request and releases the last result.
func (c *Client) Close() {
	c.mu.Lock()
	c.generation++
	last := c.last
	c.last = nil
	c.mu.Unlock()
	last.Release()
}

func outcome(err error) string {
	switch err.(type) {
	case *ServiceError:
		return "service_error"
	case *TransportError:
		return "transport_error"
	default:
		return "error"
	}
}
