package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMetricsRecording(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewExtractMetrics(registry)
	require.NoError(t, err)

	m.ProcessStarted()
	m.ProcessStarted()
	m.ProcessReleased()
	assert.InDelta(t, 1, testutil.ToFloat64(m.activeProcesses), 0)

	m.RecordInvocation("read", "success", 250*time.Millisecond)
	m.RecordInvocation("read", "error", time.Second)
	m.RecordError("read", "input-not-found")
	m.AddSamples("stream", 16000)
	m.AddSamples("stream", 8000)
	m.AddBytes("stream", 48000)

	assert.InDelta(t, 1, testutil.ToFloat64(m.invocationsTotal.WithLabelValues("read", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.invocationsTotal.WithLabelValues("read", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues("read", "input-not-found")), 0)
	assert.InDelta(t, 24000, testutil.ToFloat64(m.samplesTotal.WithLabelValues("stream")), 0)
	assert.InDelta(t, 48000, testutil.ToFloat64(m.bytesReadTotal.WithLabelValues("stream")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.invocationDuration))
}

func TestExtractMetricsExposition(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewExtractMetrics(registry)
	require.NoError(t, err)

	m.RecordError("stream", "timed-out")

	expected := `
# HELP ffaudio_errors_total Total number of failed extractions by error kind
# TYPE ffaudio_errors_total counter
ffaudio_errors_total{kind="timed-out",operation="stream"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "ffaudio_errors_total"))
}

func TestExtractMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewExtractMetrics(registry)
	require.NoError(t, err)

	_, err = NewExtractMetrics(registry)
	assert.Error(t, err)
}
