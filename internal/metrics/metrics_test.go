package metrics

import (
	"testing"
	"time"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEventCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.EventDecoded(domain.EventContent)
	m.EventDecoded(domain.EventContent)
	m.EventDecoded(domain.EventType("tool_call"))
	m.EventMalformed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("content")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.malformed))
}

func TestStreamAndRequestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.StreamFinished("closed", 2*time.Second)
	m.StreamFinished("cancelled", time.Second)
	m.Request(200)
	m.Request(401)
	m.Request(503)
	m.Request(0)
	m.Reauth("requested")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.streams.WithLabelValues("closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.streams.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reauth.WithLabelValues("requested")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.EventDecoded(domain.EventContent)
		m.EventMalformed()
		m.StreamFinished("failed", time.Second)
		m.Reauth("abandoned")
		m.Request(500)
	})
}
