package stream

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/ffaudio/internal/app"
	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/ffaudio"
	"github.com/tphakala/ffaudio/internal/logger"
	"github.com/tphakala/ffaudio/internal/wavout"
)

// options holds flags specific to the stream command
type options struct {
	chunk  time.Duration
	output string
}

// Command creates a new stream command for chunked extraction of long inputs.
func Command(ctx *app.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "stream [input]",
		Short: "Stream audio in fixed size chunks",
		Long: `Decode an audio file with a single FFmpeg process and report the level of
every chunk as it arrives. Memory use is bounded by the chunk size, so this
works for inputs of any length.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx, opts, args[0])
		},
	}

	setupFlags(cmd, opts)

	return cmd
}

// setupFlags configures flags specific to the stream command.
func setupFlags(cmd *cobra.Command, opts *options) {
	app.AddSegmentFlags(cmd.Flags())
	cmd.Flags().DurationVarP(&opts.chunk, "chunk", "c", 0, "Chunk duration (default: stream.chunkseconds)")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "Write all chunks to this WAV file")
}

func run(cmd *cobra.Command, ctx *app.Context, opts *options, path string) (err error) {
	start, duration, err := app.SegmentFlags(cmd.Flags())
	if err != nil {
		return err
	}

	s, err := ctx.Streamer().Open(cmd.Context(), ffaudio.StreamRequest{
		Path:          path,
		Start:         start,
		Duration:      duration,
		ChunkDuration: opts.chunk,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			ctx.Log.Warn("failed to close stream", logger.Error(cerr), logger.String("path", path))
		}
	}()

	var out *wavout.Writer
	if opts.output != "" {
		f, cerr := os.Create(opts.output)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		if out, err = wavout.NewWriter(f, conf.SampleRate); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	index := 0
	for chunk, err := range s.All() {
		if err != nil {
			return err
		}
		if out != nil {
			if err := out.WriteChunk(chunk); err != nil {
				return err
			}
		}
		levels := app.MeasureLevels(chunk)
		if _, err := fmt.Fprintf(w, "chunk %d: %d samples, rms %.1f dBFS, peak %.1f dBFS\n",
			index, len(chunk), app.DBFS(levels.RMS), app.DBFS(levels.Peak)); err != nil {
			return err
		}
		index++
	}

	if out != nil {
		if err := out.Close(); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "%s: %d chunks, %d samples (%.3fs)\n",
		path, index, s.Emitted(), float64(s.Emitted())/conf.SampleRate)
	return err
}
