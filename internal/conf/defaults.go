// conf/defaults.go default values for settings
package conf

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Default values used when a setting is absent, empty or invalid.
const (
	DefaultFFmpegPath         = "ffmpeg"
	DefaultFFprobePath        = "ffprobe"
	DefaultPipeBufferSize     = 1 << 20 // 1 MiB read buffer on the engine's stdout
	DefaultDiagnosticLimit    = 64 << 10
	DefaultReleaseWait        = time.Second
	DefaultExitWait           = 5 * time.Second
	DefaultStreamChunkSeconds = 1200   // 20 minutes
	DefaultReadTimeoutMs      = 300000 // 5 minutes
	DefaultProbeTimeout       = 10 * time.Second
	DefaultProbeCacheTTL      = 10 * time.Minute
	DefaultLogLevel           = "info"
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("ffmpeg.path", DefaultFFmpegPath)
	v.SetDefault("ffmpeg.probepath", DefaultFFprobePath)
	v.SetDefault("ffmpeg.pipebuffer", DefaultPipeBufferSize)
	v.SetDefault("ffmpeg.diagnosticlimit", DefaultDiagnosticLimit)
	v.SetDefault("ffmpeg.releasewait", DefaultReleaseWait)
	v.SetDefault("ffmpeg.exitwait", DefaultExitWait)

	v.SetDefault("stream.chunkseconds", DefaultStreamChunkSeconds)
	v.SetDefault("read.timeoutms", DefaultReadTimeoutMs)

	v.SetDefault("probe.timeout", DefaultProbeTimeout)
	v.SetDefault("probe.cachettl", DefaultProbeCacheTTL)

	v.SetDefault("batch.workers", runtime.NumCPU())

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
}
