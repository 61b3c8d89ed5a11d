// Package metrics holds the Prometheus collectors shared by the editor, the
// redaction client and the local server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maskedit"

// Registry collects every maskedit metric plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// StrokesTotal counts committed strokes per tool and starting mode.
	StrokesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strokes_total",
		Help:      "Strokes committed to a mask surface.",
	}, []string{"tool", "mode"})

	// UndosTotal counts undo requests; result is applied or floor.
	UndosTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "undos_total",
		Help:      "Undo requests by outcome.",
	}, []string{"tool", "result"})

	// SavesTotal counts category mask saves.
	SavesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mask_saves_total",
		Help:      "Category mask saves by outcome.",
	}, []string{"category", "result"})

	// InpaintRequestsTotal counts inpaint calls by outcome.
	InpaintRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inpaint_requests_total",
		Help:      "Inpaint requests by outcome.",
	}, []string{"outcome"})

	// EncodeDuration observes transport encoding latency.
	EncodeDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "encode_duration_seconds",
		Help:      "Time spent encoding surfaces and images into data URIs.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"format"})

	// ServerRequestsTotal counts requests handled by the local redaction server.
	ServerRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "server_requests_total",
		Help:      "Requests served by the local redaction server.",
	}, []string{"route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
