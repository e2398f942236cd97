package ffaudio

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/logger"
)

const operationProbe = "probe"

// Prober looks up media durations with ffprobe and caches the results.
// Cache entries are keyed by path, size and modification time, so a file
// replaced in place is probed again.
type Prober struct {
	engine
	cache *cache.Cache
}

// NewProber returns a Prober configured from settings.
func NewProber(settings conf.Settings, opts ...Option) *Prober {
	ttl := settings.Probe.CacheTTL
	return &Prober{
		engine: newEngine(settings, opts...),
		cache:  cache.New(ttl, 2*ttl),
	}
}

// probeArgs returns the ffprobe arguments printing only the container duration
func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// Duration returns the duration of the media at path.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	started := time.Now()
	id := newInvocationID()
	log := p.log.With(
		logger.String("invocation_id", id),
		logger.String("operation", operationProbe))

	if path == "" {
		err := enhance(invalidRequest(path, "file path must not be empty"), operationProbe, id)
		p.finish(operationProbe, started, err)
		return 0, err
	}

	key, cacheable := cacheKey(path)
	if cacheable {
		if cached, found := p.cache.Get(key); found {
			log.Trace("probe cache hit", logger.String("path", path))
			p.recorder.RecordInvocation(operationProbe, "cached", time.Since(started))
			return cached.(time.Duration), nil
		}
	}

	d, err := p.probe(ctx, path, id, log)
	p.finish(operationProbe, started, err)
	if err != nil {
		return 0, err
	}

	if cacheable {
		p.cache.SetDefault(key, d)
	}
	log.Debug("probed duration",
		logger.String("path", path),
		logger.Duration("duration", d))
	return d, nil
}

func (p *Prober) probe(ctx context.Context, path, id string, log logger.Logger) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.settings.Probe.Timeout)
	defer cancel()

	inv := Invocation{Executable: p.settings.FFmpeg.ProbePath, Args: probeArgs(path)}
	h, spawnErr := p.spawnHandle(ctx, inv, path, id, log)
	if spawnErr != nil {
		if spawnErr.Kind == ExecutableNotFound {
			spawnErr.Message = fmt.Sprintf("ffprobe not found at %q, ensure it is installed and available in PATH", inv.Executable)
		}
		return 0, enhance(spawnErr, operationProbe, id)
	}
	defer h.Release()

	// ffprobe output is a single short line, read it inline
	out, readErr := io.ReadAll(h.Stdout())

	select {
	case <-h.Exited():
	case <-ctx.Done():
		h.Release()
		return 0, enhance(&ExtractError{
			Kind:    TimedOut,
			Message: "ffprobe timed out while processing " + path,
			Path:    path,
			Err:     context.Cause(ctx),
		}, operationProbe, id)
	}

	if status := h.Release(); status.Failed() {
		return 0, enhance(Classify(h.Stderr(), path, status.Code), operationProbe, id)
	}
	if readErr != nil {
		return 0, enhance(&ExtractError{Kind: EngineFailure, Message: "failed reading ffprobe output", Path: path, Err: readErr}, operationProbe, id)
	}

	d, parseErr := parseProbeDuration(string(out), path)
	if parseErr != nil {
		return 0, enhance(parseErr, operationProbe, id)
	}
	return d, nil
}

// parseProbeDuration parses the seconds value printed by ffprobe
func parseProbeDuration(out, path string) (time.Duration, *ExtractError) {
	value := strings.TrimSpace(out)
	if value == "" || value == "N/A" {
		return 0, &ExtractError{
			Kind:    UnsupportedFormat,
			Message: "ffprobe could not determine duration for file: " + path,
			Path:    path,
		}
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0, &ExtractError{
			Kind:    UnsupportedFormat,
			Message: fmt.Sprintf("unexpected ffprobe duration %q for file: %s", value, path),
			Path:    path,
			Err:     err,
		}
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// cacheKey identifies the current version of the file at path
func cacheKey(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano()), true
}
