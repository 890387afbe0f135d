package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raaihank/pii-redactor/internal/server"
)

var (
	commit = "dev"
	date   = "unknown"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pii-redactor %s (commit: %s, built: %s)\n", server.Version, commit, date)
	},
}
