// Package cli implements the lumenc command line interface.
package cli

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:          "lumenc [subcommand]",
	Short:        "lumenc checks protocol conformances declared in manifest files",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
