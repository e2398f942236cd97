// Package app wires configuration, logging, metrics and the extraction engine
// together for the command line interface.
package app

import (
	"sync"

	"github.com/spf13/viper"

	"github.com/tphakala/ffaudio/internal/buildinfo"
	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/errors"
	"github.com/tphakala/ffaudio/internal/ffaudio"
	"github.com/tphakala/ffaudio/internal/logger"
	"github.com/tphakala/ffaudio/internal/observability"
)

// Context holds the overall application state shared by all subcommands.
// Settings, Log and Metrics are valid only after Setup.
type Context struct {
	Viper    *viper.Viper
	Build    *buildinfo.Context
	Settings conf.Settings
	Metrics  *observability.Metrics
	Log      logger.Logger

	// MetricsFile receives a Prometheus textfile on Close when non-empty
	MetricsFile string

	central   *logger.CentralLogger
	closeOnce sync.Once
}

// New creates an application context with default settings loaded into a
// fresh viper instance. Flags are bound to Viper before Setup is called.
func New(build *buildinfo.Context) *Context {
	return &Context{
		Viper: conf.NewViper(),
		Build: build,
	}
}

// Setup loads settings from configFile, the environment and bound flags, then
// configures logging and metrics.
func (c *Context) Setup(configFile string) error {
	settings, err := conf.Load(c.Viper, configFile)
	if err != nil {
		return err
	}
	return c.SetupWithSettings(settings)
}

// SetupWithSettings configures logging and metrics from explicit settings.
func (c *Context) SetupWithSettings(settings conf.Settings) error {
	c.Settings = settings

	central, err := logger.NewCentralLogger(loggingConfig(settings.Log))
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "setup-logging").
			Build()
	}
	logger.SetGlobal(central)
	c.central = central
	c.Log = central.Module("app")

	for _, w := range settings.Warnings {
		c.Log.Warn("configuration value rejected", logger.String("detail", w))
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategorySystem).
			Context("operation", "setup-metrics").
			Build()
	}
	c.Metrics = metrics

	c.Log.Debug("application configured",
		logger.String("version", c.Build.GetVersion()),
		logger.String("ffmpeg", settings.FFmpeg.Path),
		logger.Int("stream_chunk_seconds", settings.Stream.ChunkSeconds),
		logger.Int("read_timeout_ms", settings.Read.TimeoutMs))

	return nil
}

// loggingConfig maps the flat log settings onto the central logger config.
// File output, when enabled, records everything down to debug.
func loggingConfig(s conf.LogSettings) *logger.LoggingConfig {
	cfg := &logger.LoggingConfig{
		DefaultLevel: s.Level,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: s.Level},
	}
	if s.File != "" {
		cfg.FileOutput = &logger.FileOutput{Enabled: true, Path: s.File, Level: string(logger.LogLevelDebug)}
	}
	return cfg
}

// options returns the engine options shared by every extraction component
func (c *Context) options() []ffaudio.Option {
	opts := []ffaudio.Option{}
	if c.central != nil {
		opts = append(opts, ffaudio.WithLogger(c.central.Module("ffaudio")))
	}
	if c.Metrics != nil {
		opts = append(opts, ffaudio.WithRecorder(c.Metrics.Extract))
	}
	return opts
}

// Reader returns a segment reader using the application settings.
func (c *Context) Reader() *ffaudio.Reader {
	return ffaudio.NewReader(c.Settings, c.options()...)
}

// Streamer returns a chunk streamer using the application settings.
func (c *Context) Streamer() *ffaudio.Streamer {
	return ffaudio.NewStreamer(c.Settings, c.options()...)
}

// Prober returns a duration prober using the application settings.
func (c *Context) Prober() *ffaudio.Prober {
	return ffaudio.NewProber(c.Settings, c.options()...)
}

// Close writes the metrics textfile, if configured, and closes the log file.
// It is safe to call more than once and before Setup.
func (c *Context) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		if c.Metrics != nil && c.MetricsFile != "" {
			if err := c.Metrics.WriteTextfile(c.MetricsFile); err != nil {
				errs = append(errs, err)
			}
		}
		if c.central != nil {
			if err := c.central.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
