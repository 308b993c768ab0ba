package main

import (
	"github.com/spf13/cobra"

	// registers the native: loader and its built-in plugins
	_ "github.com/justyntemme/plughost/pkg/formats/native"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var levelFlag string

	ctx := newCommandContext(&configFlag, &levelFlag)

	rootCmd := &cobra.Command{
		Use:           "plughost",
		Short:         "Load and drive audio plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return ctx.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Override logging.level")

	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
