package metrics

import (
	"time"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "askchat"

// Metrics collects stream and request counters. A nil *Metrics is valid and
// records nothing, so callers never need to guard.
type Metrics struct {
	events    *prometheus.CounterVec
	malformed prometheus.Counter
	streams   *prometheus.CounterVec
	duration  prometheus.Histogram
	reauth    *prometheus.CounterVec
	requests  *prometheus.CounterVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: type (reasoning, content, source, status, files, other)
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Decoded stream events by type",
		}, []string{"type"}),
		malformed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "malformed_total",
			Help:      "Frames that carried the data prefix but failed to decode",
		}),
		// Labels: state (closed, cancelled, failed)
		streams: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions_total",
			Help:      "Finished stream sessions by final state",
		}, []string{"state"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "duration_seconds",
			Help:      "Time from request to final stream state",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		// Labels: outcome (requested, retried, abandoned)
		reauth: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "reauth_total",
			Help:      "Re-authentication round trips triggered by the backend",
		}, []string{"outcome"}),
		// Labels: status (2xx, 401, 4xx, 5xx, error)
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Upstream chat requests by response class",
		}, []string{"status"}),
	}
}

// EventDecoded implements stream.Observer
func (m *Metrics) EventDecoded(t domain.EventType) {
	if m == nil {
		return
	}
	label := string(t)
	if !t.Known() {
		label = "other"
	}
	m.events.WithLabelValues(label).Inc()
}

// EventMalformed implements stream.Observer
func (m *Metrics) EventMalformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

// StreamFinished records the final state and elapsed time of one stream
func (m *Metrics) StreamFinished(state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.streams.WithLabelValues(state).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Reauth records one step of the re-authentication flow
func (m *Metrics) Reauth(outcome string) {
	if m == nil {
		return
	}
	m.reauth.WithLabelValues(outcome).Inc()
}

// Request records one upstream response by status code. code <= 0 means the
// request never got a response.
func (m *Metrics) Request(code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(statusClass(code)).Inc()
}

func statusClass(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code == 401:
		return "401"
	case code < 300:
		return "2xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
