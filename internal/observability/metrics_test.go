package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/x", "GET", 200, time.Millisecond)
		m.RecordError("/x", "GET", "NOT_FOUND")
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.Handshake("accepted")
		m.Pushed("private")
		m.FrameDropped()
		m.EventDropped("task.created")
	})
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connections))

	m.Handshake("rejected")
	m.Handshake("rejected")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.handshakes.WithLabelValues("rejected")))

	m.Pushed("general")
	m.FrameDropped()
	m.EventDropped("tasks.deleted")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pushes.WithLabelValues("general")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.framesDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsDropped.WithLabelValues("tasks.deleted")))

	m.RecordRequest("/api/v1/tasks", "POST", 201, 5*time.Millisecond)
	m.RecordError("/api/v1/tasks", "POST", "CONFLICT")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/tasks", "POST", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("/api/v1/tasks", "POST", "CONFLICT")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.Handshake("accepted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `task_gateway_ws_handshakes_total{result="accepted"} 1`)
}
