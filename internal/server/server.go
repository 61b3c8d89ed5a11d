// Package server is a local stand-in for the redaction service. It speaks
// the same /inpaint contract as the real one, filling masked pixels with a
// blur, a solid colour or pixelation instead of a learned inpainting model,
// and serves the draft store for browser front ends.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxBody bounds request bodies; two data URIs of a large photo fit.
const DefaultMaxBody = 64 << 20

type options struct {
	store   drafts.Store
	log     *zap.Logger
	maxBody int64
	origins []string
}

// Option configures a Server.
type Option func(*options)

// WithStore exposes store under /drafts.
func WithStore(s drafts.Store) Option { return func(o *options) { o.store = s } }

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithMaxBody limits request body size in bytes.
func WithMaxBody(n int64) Option { return func(o *options) { o.maxBody = n } }

// WithAllowedOrigins adds CORS origins beyond localhost.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) { o.origins = append(o.origins, origins...) }
}

// Server routes the local redaction API.
type Server struct {
	router  chi.Router
	store   drafts.Store
	log     *zap.Logger
	maxBody int64
}

// New builds the router.
func New(opts ...Option) *Server {
	o := options{maxBody: DefaultMaxBody}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{store: o.store, log: logger.Named(o.log, "server"), maxBody: o.maxBody}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   append([]string{"http://localhost:*", "http://127.0.0.1:*"}, o.origins...),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	r.Post("/inpaint", s.handleInpaint)
	if s.store != nil {
		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", s.handleListDrafts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDraft)
				r.Delete("/", s.handleDeleteDraft)
				r.Get("/masks/{category}", s.handleGetMask)
				r.Put("/masks/{category}", s.handlePutMask)
				r.Delete("/masks/{category}", s.handleDeleteMask)
			})
		})
	}
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then drains for up
// to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLog logs each request and counts it by route pattern and status.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ServerRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Detail: detail})
}
