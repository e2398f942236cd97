package ffaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertS16LEToFloat32(t *testing.T) {
	t.Parallel()

	samples := convertS16LEToFloat32(pcm(0, 1, -1, 16384, -16384, 32767, -32768))
	require.Len(t, samples, 7)

	assert.InDelta(t, 0.0, samples[0], 0)
	assert.InDelta(t, 1.0/32768.0, samples[1], 1e-9)
	assert.InDelta(t, -1.0/32768.0, samples[2], 1e-9)
	assert.InDelta(t, 0.5, samples[3], 0)
	assert.InDelta(t, -0.5, samples[4], 0)
	assert.InDelta(t, 0.999969, samples[5], 1e-6)
	assert.InDelta(t, -1.0, samples[6], 0)

	for _, s := range samples {
		assert.GreaterOrEqual(t, s, float32(-1.0))
		assert.LessOrEqual(t, s, float32(1.0))
	}
}

func TestConvertS16LEToFloat32Edges(t *testing.T) {
	t.Parallel()

	empty := convertS16LEToFloat32(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	// Trailing odd byte is dropped
	odd := convertS16LEToFloat32([]byte{0x00, 0x40, 0x7f})
	assert.Equal(t, []float32{0.5}, odd)
}

func TestConvertDoesNotAlias(t *testing.T) {
	t.Parallel()

	data := pcm(100, 200)
	samples := convertS16LEToFloat32(data)
	data[0], data[1] = 0, 0
	assert.InDelta(t, 100.0/32768.0, samples[0], 1e-9)
}
