package main

import (
	"github.com/spf13/cobra"

	"github.com/cadenza-app/cadenza/internal/version"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cadenza",
		Short:         "Classroom listening-lesson service with score provenance",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the binary with no subcommand starts the server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newResolveCommand())

	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}
