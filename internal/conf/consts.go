// conf/consts.go hard coded constants
package conf

const (
	SampleRate     = 16000   // Sample rate of the PCM produced by the engine
	NumChannels    = 1       // Number of channels of the PCM produced by the engine (mono)
	BitDepth       = 16      // Bit depth of the PCM produced by the engine
	BytesPerSample = 2       // BitDepth / 8
	OutputFormat   = "s16le" // FFmpeg raw output format matching BitDepth
)
