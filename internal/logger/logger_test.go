package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/ffaudio/internal/logger"
)

// decodeLines parses every JSON log line in buf
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Info("shown", logger.Int("samples", 16000))
	log.Warn("warned")
	log.Log(logger.LogLevelTrace, "hidden trace")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.InDelta(t, 16000, entries[0]["samples"], 0)
	assert.Equal(t, "WARN", entries[1]["level"])
}

func TestModuleAndFieldAccumulation(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := logger.NewSlogLogger(buf, logger.LogLevelTrace, time.UTC)

	log := base.Module("ffaudio").Module("stream").With(logger.String("invocation_id", "abc12345"))
	log.Trace("chunk", logger.Duration("elapsed", 1500*time.Millisecond), logger.Float64("rms", 0.123456))
	log.Error("failed", logger.Error(errors.New("boom")), logger.Error(nil))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "ffaudio.stream", entries[0]["module"])
	assert.Equal(t, "abc12345", entries[0]["invocation_id"])
	assert.Equal(t, "TRACE", entries[0]["level"])
	assert.Equal(t, "1.5s", entries[0]["elapsed"])
	assert.InDelta(t, 0.123, entries[0]["rms"], 1e-9)

	assert.Equal(t, "boom", entries[1]["error"])
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)

	ctx := logger.WithTraceID(context.Background(), "trace-1")
	log.WithContext(ctx).Info("with trace")
	log.WithContext(context.Background()).Info("without trace")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "trace-1", entries[0]["trace_id"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "ffaudio.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"ffaudio": "debug"},
	})
	require.NoError(t, err)

	cl.Module("ffaudio").Debug("module debug")
	cl.Module("other").Debug("filtered by default level")
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())
	require.NoError(t, cl.Close(), "Close should be idempotent")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 1)
	assert.Equal(t, "module debug", entries[0]["msg"])
	assert.Equal(t, "ffaudio", entries[0]["module"])
}

func TestCentralLoggerInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(nil)
	require.Error(t, err)

	_, err = logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestGlobalFallback(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, logger.Global())
	assert.NotNil(t, logger.Global().Module("ffaudio"))
}
