package wavout

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode reads back a WAV file written by this package
func decode(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.True(t, dec.IsValidFile())
	return dec, buf.Data
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	samples := []float32{0, 0.5, -0.5, -1.0, 32767.0 / 32768.0, 1.5, -1.5}
	require.NoError(t, Write(f, samples, 16000))
	require.NoError(t, f.Close())

	dec, data := decode(t, path)
	assert.Equal(t, uint32(16000), dec.SampleRate)
	assert.Equal(t, uint16(1), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)
	assert.Equal(t, []int{0, 16384, -16384, -32768, 32767, 32767, -32768}, data)
}

func TestWriterChunks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chunks.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	w, err := NewWriter(f, 16000)
	require.NoError(t, err)
	for range 3 {
		require.NoError(t, w.WriteChunk(make([]float32, 1600)))
	}
	require.NoError(t, w.WriteChunk(nil))
	assert.Equal(t, 4800, w.Samples())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "Close is idempotent")
	require.Error(t, w.WriteChunk([]float32{0}))
	require.NoError(t, f.Close())

	_, data := decode(t, path)
	assert.Len(t, data, 4800)
}

func TestNewWriterRejectsInvalidRate(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
	require.NoError(t, err)
	defer f.Close()

	_, err = NewWriter(f, 0)
	require.Error(t, err)
}

func TestFloatToInt16(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, floatToInt16(0))
	assert.Equal(t, math.MaxInt16, floatToInt16(1.0))
	assert.Equal(t, math.MinInt16, floatToInt16(-1.0))
	assert.Equal(t, math.MaxInt16, floatToInt16(float32(math.Inf(1))))
	assert.Equal(t, 1, floatToInt16(1.0/32768.0))
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "clip.wav")
	require.NoError(t, WriteFile(path, []float32{0.25, -0.25}, 8000))

	dec, data := decode(t, path)
	assert.Equal(t, uint32(8000), dec.SampleRate)
	assert.Equal(t, []int{8192, -8192}, data)
}
