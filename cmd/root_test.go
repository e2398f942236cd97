package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ffaudio/internal/app"
	"github.com/tphakala/ffaudio/internal/buildinfo"
	"github.com/tphakala/ffaudio/internal/ffaudio"
)

// execute runs the CLI with args in an isolated working directory and
// environment, returning stdout and the command error
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, name := range []string{
		"FFMPEG_PATH", "FFPROBE_PATH", "FFMPEG_TIMEOUT_MS", "FFMPEG_STREAM_CHUNK_DURATION_SEC",
		"FFAUDIO_FFMPEG_PATH", "FFAUDIO_LOG_LEVEL", "FFAUDIO_READ_TIMEOUTMS",
	} {
		t.Setenv(name, "")
	}
	t.Chdir(t.TempDir())

	ctx := app.New(buildinfo.NewContext("v9.9.9", "2024-06-01"))
	t.Cleanup(func() { _ = ctx.Close() })

	root := RootCommand(ctx)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "error"))

	err := root.Execute()
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "v9.9.9 (built 2024-06-01)")
}

func TestConfigCommand(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("read:\n  timeoutms: 1234\nstream:\n  chunkseconds: 60\n"), 0o600))

	out, err := execute(t, "config", "--config", cfgFile, "--ffmpeg", "/opt/ffmpeg/bin/ffmpeg")
	require.NoError(t, err)

	assert.Contains(t, out, "timeoutms: 1234")
	assert.Contains(t, out, "chunkseconds: 60")
	assert.Contains(t, out, "path: /opt/ffmpeg/bin/ffmpeg")
	assert.Contains(t, out, "level: error")
}

func TestConfigCommandMissingFile(t *testing.T) {
	_, err := execute(t, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestReadExecutableNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-ffmpeg")

	_, err := execute(t, "read", "input.wav", "--ffmpeg", missing, "--duration", "1s")
	require.Error(t, err)
	assert.Equal(t, ffaudio.ExecutableNotFound, ffaudio.KindOf(err))
}

func TestReadInvalidRequest(t *testing.T) {
	_, err := execute(t, "read", "input.wav", "--duration=-1s")
	require.Error(t, err)
	assert.Equal(t, ffaudio.InvalidRequest, ffaudio.KindOf(err))
}

func TestBatchReportsEveryFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-ffmpeg")

	out, err := execute(t, "batch", "a.wav", "b.mp3", "--ffmpeg", missing, "--workers", "2", "--duration", "1s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 inputs failed")
	assert.Contains(t, out, "a.wav\tFAILED\texecutable-not-found")
	assert.Contains(t, out, "b.mp3\tFAILED\texecutable-not-found")
}

func TestProbeExecutableNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-ffprobe")
	input := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0o600))

	_, err := execute(t, "probe", input, "--ffprobe", missing)
	require.Error(t, err)
	assert.Equal(t, ffaudio.ExecutableNotFound, ffaudio.KindOf(err))
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "transcode")
	require.Error(t, err)
}
