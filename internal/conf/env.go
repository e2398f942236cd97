// env.go - Environment variable configuration for ffaudio
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variables mapped automatically to
// configuration keys, e.g. FFAUDIO_FFMPEG_PATH for ffmpeg.path.
const EnvPrefix = "FFAUDIO"

// Legacy environment variable names honoured for compatibility with existing
// deployments.
const (
	EnvStreamChunkSeconds = "FFMPEG_STREAM_CHUNK_DURATION_SEC"
	EnvReadTimeoutMs      = "FFMPEG_TIMEOUT_MS"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Legacy environment variable name, empty if none
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicit environment variable bindings. Every
// key is also reachable through its FFAUDIO_ prefixed name, which takes
// precedence over the legacy name.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"stream.chunkseconds", EnvStreamChunkSeconds, validateEnvPositiveInt},
		{"read.timeoutms", EnvReadTimeoutMs, validateEnvPositiveInt},
		{"ffmpeg.path", "FFMPEG_PATH", nil},
		{"ffmpeg.probepath", "FFPROBE_PATH", nil},
		{"ffmpeg.pipebuffer", "", validateEnvPositiveInt},
		{"ffmpeg.diagnosticlimit", "", validateEnvPositiveInt},
		{"ffmpeg.releasewait", "", validateEnvPositiveDuration},
		{"ffmpeg.exitwait", "", validateEnvPositiveDuration},
		{"probe.timeout", "", validateEnvPositiveDuration},
		{"probe.cachettl", "", validateEnvPositiveDuration},
		{"batch.workers", "", validateEnvPositiveInt},
	}
}

// envNames returns the variable names bound to a key in lookup order
func (b envBinding) envNames() []string {
	names := []string{EnvPrefix + "_" + envKey(b.ConfigKey)}
	if b.EnvVar != "" {
		names = append(names, b.EnvVar)
	}
	return names
}

// resolveEnv returns the first non-empty variable among names, the same one
// viper resolves for the key
func resolveEnv(names []string) (name, value string, ok bool) {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return name, value, true
		}
	}
	return "", "", false
}

// bindEnvVars binds environment variables to v. Invalid values are not fatal:
// they are reported back as warnings and the affected setting falls back to
// its default when Settings are built.
func bindEnvVars(v *viper.Viper) []string {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		names := binding.envNames()
		if err := v.BindEnv(append([]string{binding.ConfigKey}, names...)...); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.ConfigKey, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if name, value, ok := resolveEnv(names); ok {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v, using default", name, value, err))
			}
		}
	}

	return warnings
}

// envKey converts a config key to its environment variable suffix
func envKey(configKey string) string {
	return strings.ToUpper(strings.ReplaceAll(configKey, ".", "_"))
}

// validateEnvPositiveInt validates integer environment variables that must be
// strictly positive
func validateEnvPositiveInt(value string) error {
	if _, ok := parsePositiveInt(value); !ok {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

// validateEnvPositiveDuration validates duration environment variables such
// as "1s" or "250ms" that must be strictly positive
func validateEnvPositiveDuration(value string) error {
	// Parsed the way viper's GetDuration does: a bare number is nanoseconds
	if !strings.ContainsAny(value, "nsuµmh") {
		value += "ns"
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 5s or 250ms")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// parsePositiveInt parses a base-10 integer surrounded by optional whitespace.
// Zero, negative and non-numeric values are rejected.
func parsePositiveInt(value string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
