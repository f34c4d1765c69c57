// Package metrics exposes the scan pipeline's Prometheus counters and
// histograms, adapted from the teacher's muxer stats (which track entries
// written per tag) toward the call-graph pipeline's own units of work:
// lines scanned, lines skipped, requests interned, sessions tracked, and
// per-chunk worker duration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of scan pipeline metrics. Each scan worker observes
// ChunkDuration when its chunk finishes; scan.Run adds the line, request
// and session totals once after all workers have joined. It is safe for
// concurrent use by multiple workers.
type Recorder struct {
	LinesScanned     prometheus.Counter
	LinesSkipped     prometheus.Counter
	RequestsInterned prometheus.Counter
	SessionsTracked  prometheus.Gauge
	ChunkDuration    prometheus.Histogram

	reg *prometheus.Registry
}

// New builds a Recorder registered against a fresh, private registry so
// multiple Recorders (e.g. in tests) never collide on collector names.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		LinesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callgraph",
			Name:      "lines_scanned_total",
			Help:      "Total log lines successfully tokenised and classified.",
		}),
		LinesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callgraph",
			Name:      "lines_skipped_total",
			Help:      "Total log lines skipped for being malformed or under-field.",
		}),
		RequestsInterned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callgraph",
			Name:      "requests_interned_total",
			Help:      "Total distinct canonical requests assigned a dense request id.",
		}),
		SessionsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "callgraph",
			Name:      "sessions_tracked",
			Help:      "Distinct sessions currently present in the session map.",
		}),
		ChunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "callgraph",
			Name:      "worker_chunk_duration_seconds",
			Help:      "Wall time a single worker spent scanning one chunk.",
			Buckets:   prometheus.DefBuckets,
		}),
		reg: reg,
	}
	reg.MustRegister(r.LinesScanned, r.LinesSkipped, r.RequestsInterned, r.SessionsTracked, r.ChunkDuration)
	return r
}

// Handler returns the HTTP handler that serves this Recorder's metrics in
// the Prometheus exposition format, for wiring to --metrics-addr.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ListenAndServe starts a dedicated metrics HTTP server on addr. It blocks
// until the server stops or errors; callers run it in its own goroutine.
func (r *Recorder) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return http.ListenAndServe(addr, mux)
}
