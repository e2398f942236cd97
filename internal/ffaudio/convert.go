package ffaudio

import (
	"encoding/binary"

	"github.com/tphakala/ffaudio/internal/conf"
)

// int16Scale maps the signed 16-bit range onto [-1.0, 1.0)
const int16Scale = 32768.0

// convertS16LEToFloat32 converts little-endian signed 16-bit PCM to normalized
// float32 samples. A trailing odd byte is ignored. The result never aliases
// data and is non-nil even for empty input.
func convertS16LEToFloat32(data []byte) []float32 {
	n := len(data) / conf.BytesPerSample
	samples := make([]float32, n)

	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(sample) / int16Scale
	}

	return samples
}
