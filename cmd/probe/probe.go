package probe

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/ffaudio/internal/app"
	"github.com/tphakala/ffaudio/internal/errors"
	"github.com/tphakala/ffaudio/internal/logger"
)

// Command creates a new probe command reporting container durations.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [input...]",
		Short: "Report the duration of audio files",
		Long: `Ask ffprobe for the container duration of each input. Failures are reported
per file and do not stop the remaining inputs from being probed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prober := ctx.Prober()
			w := cmd.OutOrStdout()

			var errs []error
			for _, path := range args {
				d, err := prober.Duration(cmd.Context(), path)
				if err != nil {
					ctx.Log.Error("probe failed", logger.String("path", path), logger.Error(err))
					errs = append(errs, err)
					continue
				}
				if _, err := fmt.Fprintf(w, "%s\t%.3fs\n", path, d.Seconds()); err != nil {
					return err
				}
			}
			return errors.Join(errs...)
		},
	}

	return cmd
}
