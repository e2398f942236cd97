// Package cmd assembles the ffaudio command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/ffaudio/cmd/batch"
	"github.com/tphakala/ffaudio/cmd/config"
	"github.com/tphakala/ffaudio/cmd/probe"
	"github.com/tphakala/ffaudio/cmd/read"
	"github.com/tphakala/ffaudio/cmd/stream"
	"github.com/tphakala/ffaudio/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "ffaudio",
		Short: "Extract normalized mono audio with FFmpeg",
		Long: `ffaudio decodes any audio or video container FFmpeg understands into
16 kHz mono float samples, either as a bounded segment or as a stream of
fixed size chunks.`,
		Version:       ctx.Build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, ctx, &configFile); err != nil {
		// Flag names are static, a binding failure is a programming error
		panic(err)
	}

	// Add sub-commands to the root command.
	subcommands := []*cobra.Command{
		read.Command(ctx),
		stream.Command(ctx),
		probe.Command(ctx),
		batch.Command(ctx),
		config.Command(ctx),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return ctx.Setup(configFile)
	}

	return rootCmd
}

// flagBindings maps configuration keys to the global flags overriding them
var flagBindings = map[string]string{
	"debug":            "debug",
	"ffmpeg.path":      "ffmpeg",
	"ffmpeg.probepath": "ffprobe",
	"log.level":        "log-level",
	"log.file":         "log-file",
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *app.Context, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.StringVar(configFile, "config", "", "Path to config file (default: ./config.yaml, then the user config directory)")
	flags.String("ffmpeg", "", "Path to the ffmpeg executable")
	flags.String("ffprobe", "", "Path to the ffprobe executable")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-file", "", "Also write JSON logs to this file")
	flags.StringVar(&ctx.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")

	for key, name := range flagBindings {
		if err := ctx.Viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	return nil
}
