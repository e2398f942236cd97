package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/ffaudio/internal/app"
	"github.com/tphakala/ffaudio/internal/conf"
	"github.com/tphakala/ffaudio/internal/errors"
	"github.com/tphakala/ffaudio/internal/ffaudio"
	"github.com/tphakala/ffaudio/internal/logger"
	"github.com/tphakala/ffaudio/internal/wavout"
)

// options holds flags specific to the batch command
type options struct {
	timeout time.Duration
	outDir  string
}

// result is the outcome of one input
type result struct {
	samples int
	levels  app.Levels
	err     error
}

// Command creates a new batch command extracting the same segment from many files.
func Command(ctx *app.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "batch [input|dir...]",
		Short: "Extract the same segment from many files concurrently",
		Long: `Run one segment read per input with at most --workers FFmpeg processes at a
time. Directories expand to the regular files they contain. A failing input
does not stop the others; the command fails if any input failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx, opts, args)
		},
	}

	setupFlags(cmd, ctx, opts)

	return cmd
}

// setupFlags configures flags specific to the batch command.
func setupFlags(cmd *cobra.Command, ctx *app.Context, opts *options) {
	app.AddSegmentFlags(cmd.Flags())
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Per file timeout (default: read.timeoutms)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Write each segment as <name>.wav into this directory")
	cmd.Flags().IntP("workers", "w", 0, "Max concurrent extractions (default: number of CPUs)")

	// Flag names are static, binding cannot fail
	_ = ctx.Viper.BindPFlag("batch.workers", cmd.Flags().Lookup("workers"))
}

func run(cmd *cobra.Command, ctx *app.Context, opts *options, args []string) error {
	start, duration, err := app.SegmentFlags(cmd.Flags())
	if err != nil {
		return err
	}

	paths, err := expandInputs(args)
	if err != nil {
		return err
	}
	ctx.Log.Debug("batch started",
		logger.Int("inputs", len(paths)),
		logger.Int("workers", ctx.Settings.Batch.Workers))

	reader := ctx.Reader()
	results := make([]result, len(paths))

	var g errgroup.Group
	g.SetLimit(ctx.Settings.Batch.Workers)

	for i, path := range paths {
		g.Go(func() error {
			samples, err := reader.Read(cmd.Context(), ffaudio.SegmentRequest{
				Path:     path,
				Start:    start,
				Duration: duration,
				Timeout:  opts.timeout,
			})
			if err == nil && opts.outDir != "" {
				err = wavout.WriteFile(outputPath(opts.outDir, path), samples, conf.SampleRate)
			}
			results[i] = result{samples: len(samples), levels: app.MeasureLevels(samples), err: err}
			// Failures are collected per input, never cancel siblings
			return nil
		})
	}
	_ = g.Wait()

	w := cmd.OutOrStdout()
	failed := 0
	for i, path := range paths {
		r := results[i]
		if r.err != nil {
			failed++
			ctx.Log.Error("extraction failed",
				logger.String("path", path),
				logger.String("kind", ffaudio.KindOf(r.err).String()),
				logger.Error(r.err))
			if _, err := fmt.Fprintf(w, "%s\tFAILED\t%s\n", path, ffaudio.KindOf(r.err)); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\t%d\t%.1f dBFS\n", path, r.samples, app.DBFS(r.levels.RMS)); err != nil {
			return err
		}
	}

	if failed > 0 {
		return errors.Newf("%d of %d inputs failed", failed, len(paths)).
			Component("app").
			Category(errors.CategoryProcessing).
			Build()
	}
	return nil
}

// outputPath maps an input file to <dir>/<basename>.wav
func outputPath(dir, input string) string {
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".wav")
}

// expandInputs replaces every directory argument with the sorted regular
// files directly inside it. Hidden files are skipped.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported per input by the reader
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategoryFileIO).
				FileContext(arg).
				Build()
		}
		var files []string
		for _, e := range entries {
			if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			files = append(files, filepath.Join(arg, e.Name()))
		}
		slices.Sort(files)
		paths = append(paths, files...)
	}
	return paths, nil
}
