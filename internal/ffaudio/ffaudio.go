// Package ffaudio extracts normalized mono audio samples from any container
// FFmpeg can decode.
//
// FFmpeg runs as a child process writing signed 16-bit little-endian PCM to a
// pipe. Reader returns a bounded segment in one call, Streamer yields fixed
// size chunks from a single long running process:
//
//	r := ffaudio.NewReader(settings)
//	samples, err := r.Read(ctx, ffaudio.SegmentRequest{
//	    Path:     "clip.mp3",
//	    Duration: ffaudio.Ptr(3 * time.Second),
//	    Timeout:  30 * time.Second,
//	})
//
//	stream, err := ffaudio.NewStreamer(settings).Open(ctx, ffaudio.StreamRequest{Path: "long.flac"})
//	if err != nil { ... }
//	defer stream.Close()
//	for chunk, err := range stream.All() { ... }
//
// Every failure is an *ExtractError (wrapped in the shared enhanced error)
// whose Kind is recovered with KindOf or matched with errors.Is against the
// Err* sentinels. No child process outlives the call or stream that started it.
package ffaudio

import (
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/logger"
)

// componentName is the error component and log module for this package
const componentName = "ffaudio"

// Recorder receives extraction metrics. A nil Recorder disables metrics.
type Recorder interface {
	ProcessStarted()
	ProcessReleased()
	RecordInvocation(operation, status string, elapsed time.Duration)
	RecordError(operation, kind string)
	AddSamples(operation string, n int)
	AddBytes(operation string, n int)
}

type nopRecorder struct{}

func (nopRecorder) ProcessStarted()                                {}
func (nopRecorder) ProcessReleased()                               {}
func (nopRecorder) RecordInvocation(string, string, time.Duration) {}
func (nopRecorder) RecordError(string, string)                     {}
func (nopRecorder) AddSamples(string, int)                         {}
func (nopRecorder) AddBytes(string, int)                           {}

// Option configures a Reader, Streamer or Prober.
type Option func(*engine)

// WithLogger sets the logger. The default is the global "ffaudio" module logger.
func WithLogger(l logger.Logger) Option {
	return func(e *engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSpawner replaces the process spawner, e.g. with a test double.
func WithSpawner(s Spawner) Option {
	return func(e *engine) {
		if s != nil {
			e.spawner = s
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// engine holds what Reader, Streamer and Prober share
type engine struct {
	settings conf.Settings
	spawner  Spawner
	log      logger.Logger
	recorder Recorder
}

func newEngine(settings conf.Settings, opts ...Option) engine {
	e := engine{
		settings: settings,
		spawner: &ExecSpawner{
			PipeBuffer:      settings.FFmpeg.PipeBuffer,
			DiagnosticLimit: settings.FFmpeg.DiagnosticLimit,
			WaitDelay:       settings.FFmpeg.ReleaseWait,
		},
		log:      logger.Global().Module(componentName),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// invocation builds the FFmpeg command line for a time window of path
func (e *engine) invocation(path string, start, duration *time.Duration) Invocation {
	return Invocation{
		Executable: e.settings.FFmpeg.Path,
		Args:       BuildArgs(path, start, duration, conf.SampleRate, conf.NumChannels),
	}
}

// finish records the outcome of one operation
func (e *engine) finish(operation string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		e.recorder.RecordError(operation, KindOf(err).String())
	}
	e.recorder.RecordInvocation(operation, status, time.Since(started))
}

// newInvocationID returns a short id tagging the log lines of one call
func newInvocationID() string {
	return uuid.New().String()[:8]
}

// Ptr returns a pointer to d, for the optional fields of requests.
func Ptr(d time.Duration) *time.Duration {
	return &d
}
