package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/ffaudio/internal/app"
	"github.com/tphakala/ffaudio/internal/conf"
)

// Command creates a new config command printing the effective configuration.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after defaults, the config file, environment
variables and flags have been applied. The output is a valid config file.
Rejected environment values are listed on stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.Dump(ctx.Settings)
			if err != nil {
				return err
			}
			for _, w := range ctx.Settings.Warnings {
				if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w); err != nil {
					return err
				}
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	return cmd
}
