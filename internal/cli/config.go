package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	Config string
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective config",
		Long: `Print the capacities the runtime would use, as CUE or JSON.

Without --config the built-in defaults are printed, which makes a
starting point for a config file:

  esm config > esm.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config file")

	return cmd
}

func runConfig(opts *ConfigOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load config", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: cfg})
	}

	src, err := cfg.Format()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to format config", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(src))
	return nil
}
