package read

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/ffaudio/internal/app"
	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/ffaudio"
	"github.com/tphakala/ffaudio/internal/wavout"
)

// options holds flags specific to the read command
type options struct {
	timeout time.Duration
	output  string
}

// Command creates a new read command for extracting a single segment.
func Command(ctx *app.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "read [input]",
		Short: "Extract a bounded segment of audio",
		Long: `Decode a segment of an audio file in one call and report its level.
With --out the samples are also saved as a 16-bit WAV file.`,
		Args: cobra.ExactArgs(1), // the command expects exactly one argument
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx, opts, args[0])
		},
	}

	// Set up flags specific to the 'read' command
	setupFlags(cmd, opts)

	return cmd
}

// setupFlags configures flags specific to the read command.
func setupFlags(cmd *cobra.Command, opts *options) {
	app.AddSegmentFlags(cmd.Flags())
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Abort extraction after this long (default: read.timeoutms)")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "Write the extracted samples to this WAV file")
}

func run(cmd *cobra.Command, ctx *app.Context, opts *options, path string) error {
	start, duration, err := app.SegmentFlags(cmd.Flags())
	if err != nil {
		return err
	}

	began := time.Now()
	samples, err := ctx.Reader().Read(cmd.Context(), ffaudio.SegmentRequest{
		Path:     path,
		Start:    start,
		Duration: duration,
		Timeout:  opts.timeout,
	})
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := wavout.WriteFile(opts.output, samples, conf.SampleRate); err != nil {
			return err
		}
	}

	levels := app.MeasureLevels(samples)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples (%.3fs), rms %.1f dBFS, peak %.1f dBFS, took %s\n",
		path,
		len(samples),
		float64(len(samples))/conf.SampleRate,
		app.DBFS(levels.RMS),
		app.DBFS(levels.Peak),
		time.Since(began).Round(time.Millisecond))
	return err
}
