// Package metrics provides Prometheus metrics for audio extraction
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExtractMetrics contains Prometheus metrics for FFmpeg based extraction.
// It satisfies ffaudio.Recorder.
type ExtractMetrics struct {
	registry *prometheus.Registry

	invocationsTotal   *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	samplesTotal       *prometheus.CounterVec
	bytesReadTotal     *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	activeProcesses    prometheus.Gauge

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewExtractMetrics creates and registers new extraction metrics
func NewExtractMetrics(registry *prometheus.Registry) (*ExtractMetrics, error) {
	m := &ExtractMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *ExtractMetrics) initMetrics() {
	m.invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffaudio_invocations_total",
			Help: "Total number of extraction operations by outcome",
		},
		[]string{"operation", "status"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffaudio_errors_total",
			Help: "Total number of failed extractions by error kind",
		},
		[]string{"operation", "kind"},
	)

	m.samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffaudio_samples_total",
			Help: "Total number of samples returned to callers",
		},
		[]string{"operation"},
	)

	m.bytesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffaudio_bytes_read_total",
			Help: "Total number of PCM bytes read from FFmpeg output",
		},
		[]string{"operation"},
	)

	m.invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffaudio_invocation_duration_seconds",
			Help:    "Wall-clock duration of extraction operations",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~82s
		},
		[]string{"operation"},
	)

	m.activeProcesses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffaudio_active_processes",
			Help: "Number of FFmpeg processes currently owned by callers",
		},
	)

	m.collectors = []prometheus.Collector{
		m.invocationsTotal,
		m.errorsTotal,
		m.samplesTotal,
		m.bytesReadTotal,
		m.invocationDuration,
		m.activeProcesses,
	}
}

// Describe implements the Collector interface
func (m *ExtractMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ExtractMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// ProcessStarted increments the active process gauge
func (m *ExtractMetrics) ProcessStarted() {
	m.activeProcesses.Inc()
}

// ProcessReleased decrements the active process gauge
func (m *ExtractMetrics) ProcessReleased() {
	m.activeProcesses.Dec()
}

// RecordInvocation records the outcome and duration of one operation
func (m *ExtractMetrics) RecordInvocation(operation, status string, elapsed time.Duration) {
	m.invocationsTotal.WithLabelValues(operation, status).Inc()
	m.invocationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordError records a failed operation by error kind
func (m *ExtractMetrics) RecordError(operation, kind string) {
	m.errorsTotal.WithLabelValues(operation, kind).Inc()
}

// AddSamples adds to the returned sample count
func (m *ExtractMetrics) AddSamples(operation string, n int) {
	m.samplesTotal.WithLabelValues(operation).Add(float64(n))
}

// AddBytes adds to the PCM byte count
func (m *ExtractMetrics) AddBytes(operation string, n int) {
	m.bytesReadTotal.WithLabelValues(operation).Add(float64(n))
}
