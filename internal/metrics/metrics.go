// Package metrics exposes Prometheus instrumentation for feedback submissions.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for the submissions counter.
const (
	ResultSuccess = "success"
)

// Metrics holds the collectors registered for the application.
type Metrics struct {
	submissions   *prometheus.CounterVec
	duration      prometheus.Histogram
	inFlight      prometheus.Gauge
	activeSession prometheus.Gauge
	gatherer      prometheus.Gatherer
}

// Singleton pattern for metrics (avoid double registration in tests).
var (
	instance        *Metrics
	once            sync.Once
	defaultRegistry prometheus.Registerer = prometheus.DefaultRegisterer
	defaultGatherer prometheus.Gatherer   = prometheus.DefaultGatherer
)

// New registers the collectors on reg and returns them. Tests pass a fresh
// prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Feedback submissions by result (success, validation, auth, submission, unknown)",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedback_submission_duration_seconds",
			Help:    "Time taken by the token and list item calls of a submission",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feedback_submissions_in_flight",
			Help: "Submissions currently waiting on the identity platform or SharePoint",
		}),
		activeSession: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feedback_live_sessions",
			Help: "Open WebSocket form sessions",
		}),
		gatherer: gatherer,
	}
}

// Default returns the process-wide metrics registered on the default registry.
func Default() *Metrics {
	once.Do(func() {
		instance = newMetrics(defaultRegistry, defaultGatherer)
	})
	return instance
}

// SubmissionStarted marks a submission as in flight and returns a function
// recording its outcome. result is ResultSuccess or an error kind label.
func (m *Metrics) SubmissionStarted() func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func(result string) {
		m.inFlight.Dec()
		m.duration.Observe(time.Since(start).Seconds())
		m.submissions.WithLabelValues(result).Inc()
	}
}

// SessionOpened increments the live sessions gauge and returns its closer.
func (m *Metrics) SessionOpened() func() {
	if m == nil {
		return func() {}
	}
	m.activeSession.Inc()
	return m.activeSession.Dec
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
