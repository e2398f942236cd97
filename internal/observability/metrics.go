// Package observability provides metrics collection and export for ffaudio.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/ffaudio/internal/errors"
	"github.com/tphakala/ffaudio/internal/logger"
	"github.com/tphakala/ffaudio/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Extract  *metrics.ExtractMetrics
}

// NewMetrics creates a new instance of Metrics with its own registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	extractMetrics, err := metrics.NewExtractMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create extract metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Extract:  extractMetrics,
	}, nil
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metrics in the Prometheus text format to
// path, for pickup by the node_exporter textfile collector. The file is
// written atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.New(err).
			Component("metrics").
			Category(errors.CategoryFileIO).
			Context("operation", "write-metrics-textfile").
			FileContext(path).
			Build()
	}
	getLogger().Debug("metrics written", logger.String("path", path))
	return nil
}
