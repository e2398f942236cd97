package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ffaudio/internal/buildinfo"
	"github.com/tphakala/ffaudio/internal/conf"
)

func TestContextSetupAndClose(t *testing.T) {
	dir := t.TempDir()

	settings := conf.Default()
	settings.Log.Level = "warn"
	settings.Log.File = filepath.Join(dir, "logs", "ffaudio.log")
	settings.Warnings = []string{"FFMPEG_TIMEOUT_MS: invalid value"}

	c := New(buildinfo.NewContext("v0.0.1", ""))
	c.MetricsFile = filepath.Join(dir, "ffaudio.prom")
	require.NoError(t, c.SetupWithSettings(settings))

	require.NotNil(t, c.Metrics)
	require.NotNil(t, c.Log)
	assert.NotNil(t, c.Reader())
	assert.NotNil(t, c.Streamer())
	assert.NotNil(t, c.Prober())

	c.Metrics.Extract.RecordInvocation("read", "success", 0)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "Close should be idempotent")

	prom, err := os.ReadFile(c.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "ffaudio_invocations_total")

	logData, err := os.ReadFile(settings.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "configuration value rejected")
}

func TestContextCloseBeforeSetup(t *testing.T) {
	t.Parallel()

	c := New(buildinfo.NewContext("", ""))
	c.MetricsFile = filepath.Join(t.TempDir(), "unused.prom")
	require.NoError(t, c.Close())

	_, err := os.Stat(c.MetricsFile)
	assert.True(t, os.IsNotExist(err))
}

func TestLoggingConfig(t *testing.T) {
	t.Parallel()

	cfg := loggingConfig(conf.LogSettings{Level: "warn"})
	assert.Equal(t, "warn", cfg.DefaultLevel)
	assert.True(t, cfg.Console.Enabled)
	assert.Nil(t, cfg.FileOutput)

	cfg = loggingConfig(conf.LogSettings{Level: "info", File: "/tmp/x.log"})
	require.NotNil(t, cfg.FileOutput)
	assert.Equal(t, "/tmp/x.log", cfg.FileOutput.Path)
	assert.Equal(t, "debug", cfg.FileOutput.Level)
}
