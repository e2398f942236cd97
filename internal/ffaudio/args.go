package ffaudio

import (
	"strconv"
	"time"

	"github.com/tphakala/ffaudio/internal/conf"
)

// Invocation is a fully built engine command line. Args is passed to the
// executable as a literal argument vector, never through a shell.
type Invocation struct {
	Executable string
	Args       []string
}

// BuildArgs builds the FFmpeg argument vector for decoding path to raw signed
// 16-bit little-endian PCM on stdout.
//
// Seek and duration options are placed before -i so FFmpeg seeks in the input
// instead of decoding and discarding the skipped frames. A nil start or
// duration omits the corresponding option.
func BuildArgs(path string, start, duration *time.Duration, sampleRate, channels int) []string {
	args := make([]string, 0, 20)
	args = append(args, "-v", "error")

	if start != nil {
		args = append(args, "-ss", formatSeconds(*start))
	}
	if duration != nil {
		args = append(args, "-t", formatSeconds(*duration))
	}

	args = append(args,
		"-i", path,
		"-vn", "-sn", "-dn",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-f", conf.OutputFormat,
		"-",
	)

	return args
}

// formatSeconds renders d as decimal seconds with no trailing zeros, e.g.
// 1500ms becomes "1.5" and 2s becomes "2".
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// samplesFor returns the number of samples covering d at sampleRate, rounded up.
func samplesFor(d time.Duration, sampleRate int) int64 {
	if d <= 0 {
		return 0
	}
	rate := int64(sampleRate)
	whole := int64(d/time.Second) * rate
	frac := int64(d%time.Second) * rate
	return whole + (frac+int64(time.Second)-1)/int64(time.Second)
}
