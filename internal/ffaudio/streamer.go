package ffaudio

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/errors"
	"github.com/tphakala/ffaudio/internal/logger"
)

const operationStream = "stream"

// ErrStreamClosed is returned by Next after Close.
var ErrStreamClosed = errors.NewStd("ffaudio: stream closed")

// StreamRequest describes a chunked read. Start and Duration are optional; a
// nil Duration streams to the end of the file. A zero or negative
// ChunkDuration selects the configured default.
type StreamRequest struct {
	Path          string
	Start         *time.Duration
	Duration      *time.Duration
	ChunkDuration time.Duration
}

// validate rejects malformed requests before anything is spawned
func (req *StreamRequest) validate() *ExtractError {
	switch {
	case req.Path == "":
		return invalidRequest(req.Path, "file path must not be empty")
	case req.Start != nil && *req.Start < 0:
		return invalidRequest(req.Path, "start offset must be >= 0, got %s", *req.Start)
	case req.Duration != nil && *req.Duration <= 0:
		return invalidRequest(req.Path, "duration must be > 0, got %s", *req.Duration)
	}
	return nil
}

// Streamer opens chunked streams. It is safe for concurrent use; every
// Stream runs its own engine process.
type Streamer struct {
	engine
}

// NewStreamer returns a Streamer configured from settings.
func NewStreamer(settings conf.Settings, opts ...Option) *Streamer {
	return &Streamer{engine: newEngine(settings, opts...)}
}

// Open starts an engine for req and returns a Stream over its output. The
// engine is killed when ctx is done. The caller must Close the stream unless
// it has been consumed until Next returned an error.
func (s *Streamer) Open(ctx context.Context, req StreamRequest) (*Stream, error) {
	started := time.Now()
	id := newInvocationID()
	log := s.log.With(
		logger.String("invocation_id", id),
		logger.String("operation", operationStream))

	if verr := req.validate(); verr != nil {
		log.Debug("rejected stream request", logger.String("reason", verr.Message))
		err := enhance(verr, operationStream, id)
		s.finish(operationStream, started, err)
		return nil, err
	}

	if req.ChunkDuration <= 0 {
		log.Warn("invalid chunk duration, using default",
			logger.Duration("chunk_duration", req.ChunkDuration),
			logger.Duration("default", s.settings.Stream.ChunkDuration()))
		req.ChunkDuration = s.settings.Stream.ChunkDuration()
	}

	budget := int64(-1)
	if req.Duration != nil {
		budget = samplesFor(*req.Duration, conf.SampleRate)
	}

	h, spawnErr := s.spawnHandle(ctx, s.invocation(req.Path, req.Start, req.Duration), req.Path, id, log)
	if spawnErr != nil {
		err := enhance(spawnErr, operationStream, id)
		s.finish(operationStream, started, err)
		return nil, err
	}

	log.Debug("stream opened",
		logger.String("path", req.Path),
		logger.Duration("chunk_duration", req.ChunkDuration),
		logger.Int64("budget_samples", budget))

	return &Stream{
		engine:       &s.engine,
		ctx:          ctx,
		h:            h,
		path:         req.Path,
		id:           id,
		log:          log,
		started:      started,
		chunkSamples: samplesFor(req.ChunkDuration, conf.SampleRate),
		budget:       budget,
	}, nil
}

// Stream is a pull based sequence of sample chunks from one engine process.
// A Stream is not safe for concurrent use: to cancel from another goroutine,
// cancel the context passed to Open.
type Stream struct {
	*engine
	ctx     context.Context
	h       *Handle
	path    string
	id      string
	log     logger.Logger
	started time.Time

	chunkSamples int64
	budget       int64 // total samples allowed, -1 when unbounded
	emitted      int64
	chunks       int

	buf  []byte
	done bool
	err  error // returned by every Next after done
}

// Next returns the next chunk of samples. Chunks hold chunk duration worth of
// samples except the last, which may be shorter. Next returns io.EOF after
// the last chunk, and the process is released before any error is returned.
func (s *Stream) Next() ([]float32, error) {
	if s.done {
		return nil, s.err
	}

	// (a) An engine that already failed has nothing valid left to give
	if code, failed := s.h.exitedWithError(); failed {
		if s.ctx.Err() != nil {
			return s.fail(s.cancelled())
		}
		return s.fail(s.classify(code))
	}

	// (b) Budget exhausted
	if s.budget >= 0 && s.emitted >= s.budget {
		return s.end("duration budget reached")
	}

	// (c) Window size, clamped to what is left of the budget
	window := s.chunkSamples
	if s.budget >= 0 {
		window = min(window, s.budget-s.emitted)
	}
	size := int(window) * conf.BytesPerSample
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}
	buf := s.buf[:size]

	// (d) Blocking read; a short read means the output ended mid-window
	n, err := io.ReadFull(s.h.Stdout(), buf)
	switch {
	case err == nil, errors.Is(err, io.ErrUnexpectedEOF):
	case errors.Is(err, io.EOF):
		return s.endOfOutput()
	default:
		if s.ctx.Err() != nil {
			return s.fail(s.cancelled())
		}
		s.log.Error("failed reading ffmpeg output", logger.String("path", s.path), logger.Error(err))
		return s.fail(enhance(&ExtractError{
			Kind:    EngineFailure,
			Message: "failed reading ffmpeg output",
			Path:    s.path,
			Stderr:  s.h.Stderr(),
			Err:     err,
		}, operationStream, s.id))
	}

	// (e) Convert; a lone trailing byte is not a sample
	samples := convertS16LEToFloat32(buf[:n])
	if len(samples) == 0 {
		return s.endOfOutput()
	}

	s.emitted += int64(len(samples))
	s.chunks++
	s.recorder.AddBytes(operationStream, n)
	s.recorder.AddSamples(operationStream, len(samples))

	s.log.Trace("chunk read",
		logger.Int("chunk", s.chunks),
		logger.Int("samples", len(samples)),
		logger.Int64("emitted", s.emitted))

	return samples, nil
}

// endOfOutput handles end of the output pipe: give the engine time to exit,
// then surface a failure it reported or end cleanly
func (s *Stream) endOfOutput() ([]float32, error) {
	if !s.h.awaitExit(s.ctx, s.engine.settings.FFmpeg.ExitWait) {
		if s.ctx.Err() != nil {
			return s.fail(s.cancelled())
		}
		s.log.Warn("ffmpeg closed its output but did not exit",
			logger.String("path", s.path),
			logger.Int("pid", s.h.PID()),
			logger.Duration("wait", s.engine.settings.FFmpeg.ExitWait))
	}

	if status := s.h.Release(); status.Failed() {
		if s.ctx.Err() != nil {
			return s.fail(s.cancelled())
		}
		return s.fail(s.classify(status.Code))
	}
	return s.end("end of output")
}

// classify builds the error for an engine that exited with code
func (s *Stream) classify(code int) error {
	classified := Classify(s.h.Stderr(), s.path, code)
	s.log.Warn("ffmpeg exited with error",
		logger.String("path", s.path),
		logger.Int("exit_code", code),
		logger.String("error_kind", classified.Kind.String()),
		logger.Int64("stderr_dropped", s.h.StderrDropped()))
	return enhance(classified, operationStream, s.id)
}

// cancelled builds the error for a stream whose context ended
func (s *Stream) cancelled() error {
	return errors.New(context.Cause(s.ctx)).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Context("operation", operationStream).
		Context("invocation_id", s.id).
		FileContext(s.path).
		Build()
}

// end terminates the stream cleanly
func (s *Stream) end(reason string) ([]float32, error) {
	s.h.Release()
	s.done, s.err = true, io.EOF
	s.finish(operationStream, s.started, nil)
	s.log.Debug("stream completed",
		logger.String("path", s.path),
		logger.String("reason", reason),
		logger.Int("chunks", s.chunks),
		logger.Int64("samples", s.emitted),
		logger.Duration("elapsed", time.Since(s.started)))
	return nil, io.EOF
}

// fail terminates the stream with err
func (s *Stream) fail(err error) ([]float32, error) {
	s.h.Release()
	s.done, s.err = true, err
	s.finish(operationStream, s.started, err)
	return nil, err
}

// Close releases the engine process. It is idempotent and safe to call after
// the stream ended. Next returns ErrStreamClosed after an early Close.
func (s *Stream) Close() error {
	if s.done {
		return nil
	}
	s.h.Release()
	s.done, s.err = true, ErrStreamClosed
	s.recorder.RecordInvocation(operationStream, "abandoned", time.Since(s.started))
	s.log.Debug("stream closed before completion",
		logger.String("path", s.path),
		logger.Int("chunks", s.chunks),
		logger.Int64("samples", s.emitted))
	return nil
}

// Emitted returns the number of samples returned so far.
func (s *Stream) Emitted() int64 {
	return s.emitted
}

// All returns an iterator over the remaining chunks. A non-EOF error is
// yielded once as the final element. The stream is closed when iteration
// stops, including on break.
func (s *Stream) All() iter.Seq2[[]float32, error] {
	return func(yield func([]float32, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}
