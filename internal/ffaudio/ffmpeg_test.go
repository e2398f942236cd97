package ffaudio

import (
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/wavout"
)

// realEngine returns settings pointing at an installed ffmpeg or skips the test
func realEngine(t *testing.T) conf.Settings {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping ffmpeg integration test in short mode")
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	settings := testSettings()
	settings.FFmpeg.Path = path
	return settings
}

// sineFile writes a 440 Hz tone of length d as a WAV file at the engine's
// native rate
func sineFile(t *testing.T, d time.Duration) string {
	t.Helper()
	n := int(samplesFor(d, conf.SampleRate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/conf.SampleRate))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, wavout.WriteFile(path, samples, conf.SampleRate))
	return path
}

func TestFFmpegReadSegment(t *testing.T) {
	t.Parallel()
	settings := realEngine(t)
	path := sineFile(t, 3*time.Second)

	samples, err := NewReader(settings, WithLogger(testLogger())).Read(t.Context(), SegmentRequest{
		Path:     path,
		Start:    Ptr(time.Second),
		Duration: Ptr(time.Second),
		Timeout:  30 * time.Second,
	})
	require.NoError(t, err)
	assert.InDelta(t, conf.SampleRate, len(samples), conf.SampleRate/100)

	var peak float64
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	assert.InDelta(t, 0.5, peak, 0.01)
}

func TestFFmpegReadPastEnd(t *testing.T) {
	t.Parallel()
	settings := realEngine(t)
	path := sineFile(t, 3*time.Second)

	samples, err := NewReader(settings, WithLogger(testLogger())).Read(t.Context(), SegmentRequest{
		Path:     path,
		Start:    Ptr(5 * time.Second),
		Duration: Ptr(2 * time.Second),
	})
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestFFmpegReadMissingInput(t *testing.T) {
	t.Parallel()
	settings := realEngine(t)

	_, err := NewReader(settings, WithLogger(testLogger())).Read(t.Context(), SegmentRequest{
		Path:     filepath.Join(t.TempDir(), "missing.wav"),
		Duration: Ptr(time.Second),
	})
	require.ErrorIs(t, err, ErrInputNotFound)
}

func TestFFmpegReadUnsupportedFormat(t *testing.T) {
	t.Parallel()
	settings := realEngine(t)

	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not audio at all"), 0o600))

	_, err := NewReader(settings, WithLogger(testLogger())).Read(t.Context(), SegmentRequest{
		Path:     path,
		Duration: Ptr(time.Second),
	})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFFmpegStreamChunks(t *testing.T) {
	t.Parallel()
	settings := realEngine(t)
	path := sineFile(t, 2500*time.Millisecond)

	s, err := NewStreamer(settings, WithLogger(testLogger())).Open(t.Context(), StreamRequest{
		Path:          path,
		ChunkDuration: time.Second,
	})
	require.NoError(t, err)

	var sizes []int
	for chunk, err := range s.All() {
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
	}
	require.Len(t, sizes, 3)
	assert.Equal(t, conf.SampleRate, sizes[0])
	assert.Equal(t, conf.SampleRate, sizes[1])
	assert.InDelta(t, conf.SampleRate/2, sizes[2], conf.SampleRate/100)
}

func TestFFprobeDuration(t *testing.T) {
	t.Parallel()
	settings := realEngine(t)
	probePath, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not installed")
	}
	settings.FFmpeg.ProbePath = probePath
	path := sineFile(t, 3*time.Second)

	d, err := NewProber(settings, WithLogger(testLogger())).Duration(t.Context(), path)
	require.NoError(t, err)
	assert.InDelta(t, float64(3*time.Second), float64(d), float64(10*time.Millisecond))
}
