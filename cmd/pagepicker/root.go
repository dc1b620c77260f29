package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFile string
	var server string

	ctx := newCommandContext(&envFile, &server)

	rootCmd := &cobra.Command{
		Use:           "pagepicker",
		Short:         "Pick pages from a PDF and have the server assemble them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "Processing server base URL (overrides PAGEPICKER_SERVER_URL)")

	// runs after Execute even when a command failed
	cobra.OnFinalize(ctx.close)

	rootCmd.AddCommand(newShellCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newClearCacheCommand(ctx))

	return rootCmd
}
