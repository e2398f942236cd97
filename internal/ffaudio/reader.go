package ffaudio

import (
	"context"
	"io"
	"time"

	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/logger"
)

const operationRead = "read"

// SegmentRequest describes a bounded one-shot read. Start is optional and
// defaults to the beginning of the file; Duration is required so a read can
// never load a whole large file by accident. Timeout bounds the wall-clock
// time of the read; zero selects the configured default.
type SegmentRequest struct {
	Path     string
	Start    *time.Duration
	Duration *time.Duration
	Timeout  time.Duration
}

// validate rejects malformed requests before anything is spawned
func (req *SegmentRequest) validate() *ExtractError {
	switch {
	case req.Path == "":
		return invalidRequest(req.Path, "file path must not be empty")
	case req.Start == nil && req.Duration == nil:
		return invalidRequest(req.Path, "segment read requires a duration")
	case req.Duration == nil:
		return invalidRequest(req.Path, "start offset %s given without a duration", *req.Start)
	case req.Start != nil && *req.Start < 0:
		return invalidRequest(req.Path, "start offset must be >= 0, got %s", *req.Start)
	case *req.Duration <= 0:
		return invalidRequest(req.Path, "duration must be > 0, got %s", *req.Duration)
	case req.Timeout < 0:
		return invalidRequest(req.Path, "timeout must be > 0, got %s", req.Timeout)
	}
	return nil
}

// Reader performs bounded, timeout limited segment reads. It is safe for
// concurrent use; every Read runs its own engine process.
type Reader struct {
	engine
}

// NewReader returns a Reader configured from settings.
func NewReader(settings conf.Settings, opts ...Option) *Reader {
	return &Reader{engine: newEngine(settings, opts...)}
}

// readResult carries the outcome of draining stdout
type readResult struct {
	data []byte
	err  error
}

// Read decodes the requested window of req.Path and returns it as normalized
// samples. A window lying beyond the end of the file yields an empty, non-nil
// slice. If the timeout elapses, or ctx is cancelled, the engine is killed and
// a TimedOut error is returned without partial samples.
func (r *Reader) Read(ctx context.Context, req SegmentRequest) ([]float32, error) {
	started := time.Now()
	id := newInvocationID()
	log := r.log.With(
		logger.String("invocation_id", id),
		logger.String("operation", operationRead))

	samples, err := r.read(ctx, req, id, log)
	r.finish(operationRead, started, err)
	if err != nil {
		return nil, err
	}

	log.Debug("segment read completed",
		logger.String("path", req.Path),
		logger.Int("samples", len(samples)),
		logger.Duration("elapsed", time.Since(started)))
	return samples, nil
}

func (r *Reader) read(ctx context.Context, req SegmentRequest, id string, log logger.Logger) ([]float32, error) {
	if verr := req.validate(); verr != nil {
		log.Debug("rejected segment request", logger.String("reason", verr.Message))
		return nil, enhance(verr, operationRead, id)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = r.settings.Read.Timeout()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inv := r.invocation(req.Path, req.Start, req.Duration)
	log.Debug("starting segment read",
		logger.String("path", req.Path),
		logger.Duration("duration", *req.Duration),
		logger.Duration("timeout", timeout))

	h, spawnErr := r.spawnHandle(ctx, inv, req.Path, id, log)
	if spawnErr != nil {
		return nil, enhance(spawnErr, operationRead, id)
	}
	defer h.Release()

	done := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(h.Stdout())
		done <- readResult{data: data, err: err}
	}()

	var res readResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, r.timeout(ctx, h, done, req.Path, id, log)
	}

	// Output is complete, wait for the exit status within the same deadline
	select {
	case <-h.Exited():
	case <-ctx.Done():
	}
	// An expired deadline also kills the engine, which ends its output early
	if ctx.Err() != nil {
		return nil, r.timeout(ctx, h, nil, req.Path, id, log)
	}

	if res.err != nil {
		h.Release()
		log.Error("failed reading ffmpeg output", logger.String("path", req.Path), logger.Error(res.err))
		return nil, enhance(&ExtractError{
			Kind:    EngineFailure,
			Message: "failed reading ffmpeg output",
			Path:    req.Path,
			Stderr:  h.Stderr(),
			Err:     res.err,
		}, operationRead, id)
	}

	if status := h.Release(); status.Failed() {
		classified := Classify(h.Stderr(), req.Path, status.Code)
		log.Warn("ffmpeg exited with error",
			logger.String("path", req.Path),
			logger.Int("exit_code", status.Code),
			logger.String("error_kind", classified.Kind.String()),
			logger.Int64("stderr_dropped", h.StderrDropped()))
		return nil, enhance(classified, operationRead, id)
	}

	r.recorder.AddBytes(operationRead, len(res.data))
	// Never return more than the requested window, whatever the engine wrote
	if limit := samplesFor(*req.Duration, conf.SampleRate) * conf.BytesPerSample; int64(len(res.data)) > limit {
		log.Debug("truncating ffmpeg output to requested duration",
			logger.Int("bytes", len(res.data)),
			logger.Int64("limit", limit))
		res.data = res.data[:limit]
	}
	samples := convertS16LEToFloat32(res.data)
	r.recorder.AddSamples(operationRead, len(samples))
	return samples, nil
}

// timeout kills the engine, waits for the stdout collector unless done is nil
// and builds the TimedOut error
func (r *Reader) timeout(ctx context.Context, h *Handle, done <-chan readResult, path, id string, log logger.Logger) error {
	h.Release()

	if done != nil {
		// Closing the pipe unblocks the collector; bound the wait regardless
		timer := time.NewTimer(r.settings.FFmpeg.ReleaseWait)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			log.Warn("stdout collector did not stop after release", logger.String("path", path))
		}
	}

	log.Warn("ffmpeg timed out",
		logger.String("path", path),
		logger.Int("pid", h.PID()),
		logger.Error(context.Cause(ctx)))
	return enhance(timedOut(path, context.Cause(ctx)), operationRead, id)
}
