package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	assert.NoError(t, metrics.Track("session_refresh").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, metrics.Track("session_refresh").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("session_refresh", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("session_refresh", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("session_refresh")))
}

func TestAddSessions(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.AddSessions("session_refresh", 3)
	metrics.AddSessions("session_refresh", 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.affected.WithLabelValues("session_refresh")))

	var nilMetrics *Metrics
	nilMetrics.AddSessions("session_refresh", 1)
	assert.NoError(t, nilMetrics.Track("noop").End(nil))
}
