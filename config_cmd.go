package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newConfigCommand creates `dupcheck config`, which prints the effective
// configuration for a tree after file, environment and flag overrides.
func newConfigCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "config [path]",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), f.verbose)
			cfg, err := loadConfig(cmd, f, rootArg(args), logger)
			if err != nil {
				return err
			}
			out, err := cfg.TOML()
			if err != nil {
				return fmt.Errorf("rendering config: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}
