package observability

import "github.com/tphakala/ffaudio/internal/logger"

// getLogger returns the metrics module logger. It is resolved on each call so
// that a global logger configured after package init is picked up.
func getLogger() logger.Logger {
	return logger.Global().Module("metrics")
}
