// config.go: settings for ffaudio. Settings are built once from defaults, an
// optional YAML file, environment variables and command line flags, then passed
// around by value.
package conf

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/ffaudio/internal/errors"
)

// FFmpegSettings controls how the external engine is located and supervised.
type FFmpegSettings struct {
	Path            string        `yaml:"path"`            // ffmpeg executable, resolved through PATH when not absolute
	ProbePath       string        `yaml:"probepath"`       // ffprobe executable
	PipeBuffer      int           `yaml:"pipebuffer"`      // read buffer size on the engine's stdout in bytes
	DiagnosticLimit int           `yaml:"diagnosticlimit"` // max retained stderr bytes per process
	ReleaseWait     time.Duration `yaml:"releasewait"`     // how long release waits for the process to exit after kill
	ExitWait        time.Duration `yaml:"exitwait"`        // how long a stream waits for exit status after end of output
}

// StreamSettings contains settings for chunked streaming.
type StreamSettings struct {
	ChunkSeconds int `yaml:"chunkseconds"` // default chunk duration in seconds
}

// ChunkDuration returns the default chunk duration.
func (s StreamSettings) ChunkDuration() time.Duration {
	return time.Duration(s.ChunkSeconds) * time.Second
}

// ReadSettings contains settings for whole-segment reads.
type ReadSettings struct {
	TimeoutMs int `yaml:"timeoutms"` // default read timeout in milliseconds
}

// Timeout returns the default read timeout.
func (s ReadSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// ProbeSettings contains settings for ffprobe duration lookups.
type ProbeSettings struct {
	Timeout  time.Duration `yaml:"timeout"`  // ffprobe execution timeout
	CacheTTL time.Duration `yaml:"cachettl"` // how long probed durations are cached
}

// BatchSettings contains settings for the batch command.
type BatchSettings struct {
	Workers int `yaml:"workers"` // max concurrent extractions
}

// LogSettings contains logging settings.
type LogSettings struct {
	Level string `yaml:"level"` // default log level
	File  string `yaml:"file"`  // optional JSON log file, empty disables file logging
}

// Settings is the complete, immutable configuration of an ffaudio instance.
type Settings struct {
	Debug  bool           `yaml:"debug"`
	FFmpeg FFmpegSettings `yaml:"ffmpeg"`
	Stream StreamSettings `yaml:"stream"`
	Read   ReadSettings   `yaml:"read"`
	Probe  ProbeSettings  `yaml:"probe"`
	Batch  BatchSettings  `yaml:"batch"`
	Log    LogSettings    `yaml:"log"`

	// Warnings collected while loading, e.g. rejected environment values
	Warnings []string `yaml:"-"`
}

// NewViper returns a viper instance with defaults and environment bindings
// applied. Callers may bind flags to it before passing it to Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaultConfig(v)
	return v
}

// Default returns settings built from defaults and the environment only.
func Default() Settings {
	return FromViper(NewViper())
}

// Load reads the optional configuration file into v and builds Settings.
// With an empty configFile the default search paths are tried and a missing
// file is not an error. An explicitly named file must exist.
func Load(v *viper.Viper, configFile string) (Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Settings{}, errors.New(err).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("config_file", configFile).
				Build()
		}
	}

	return FromViper(v), nil
}

// FromViper builds Settings from v. Environment variables are bound here so
// that every Settings value sees the same environment. Missing, empty,
// non-numeric or non-positive numeric values fall back to their defaults.
func FromViper(v *viper.Viper) Settings {
	warnings := bindEnvVars(v)

	s := Settings{
		Debug: v.GetBool("debug"),
		FFmpeg: FFmpegSettings{
			Path:            stringOr(v, "ffmpeg.path", DefaultFFmpegPath),
			ProbePath:       stringOr(v, "ffmpeg.probepath", DefaultFFprobePath),
			PipeBuffer:      positiveIntOr(v, "ffmpeg.pipebuffer", DefaultPipeBufferSize),
			DiagnosticLimit: positiveIntOr(v, "ffmpeg.diagnosticlimit", DefaultDiagnosticLimit),
			ReleaseWait:     positiveDurationOr(v, "ffmpeg.releasewait", DefaultReleaseWait),
			ExitWait:        positiveDurationOr(v, "ffmpeg.exitwait", DefaultExitWait),
		},
		Stream: StreamSettings{
			ChunkSeconds: positiveIntOr(v, "stream.chunkseconds", DefaultStreamChunkSeconds),
		},
		Read: ReadSettings{
			TimeoutMs: positiveIntOr(v, "read.timeoutms", DefaultReadTimeoutMs),
		},
		Probe: ProbeSettings{
			Timeout:  positiveDurationOr(v, "probe.timeout", DefaultProbeTimeout),
			CacheTTL: positiveDurationOr(v, "probe.cachettl", DefaultProbeCacheTTL),
		},
		Batch: BatchSettings{
			Workers: positiveIntOr(v, "batch.workers", 1),
		},
		Log: LogSettings{
			Level: stringOr(v, "log.level", DefaultLogLevel),
			File:  strings.TrimSpace(v.GetString("log.file")),
		},
		Warnings: warnings,
	}

	if s.Debug && s.Log.Level == DefaultLogLevel {
		s.Log.Level = "debug"
	}

	return s
}

// Dump renders settings as YAML, suitable as a configuration file.
func Dump(s Settings) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return data, nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in
// order of precedence.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "ffaudio"))
	}
	return paths
}

// stringOr returns the trimmed string value of key or def when it is empty
func stringOr(v *viper.Viper, key, def string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return def
}

// positiveIntOr returns the value of key when it parses as a positive integer,
// def otherwise.
func positiveIntOr(v *viper.Viper, key string, def int) int {
	if n, ok := parsePositiveInt(v.GetString(key)); ok {
		return n
	}
	return def
}

// positiveDurationOr returns the value of key when it is a positive duration,
// def otherwise.
func positiveDurationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	return def
}
