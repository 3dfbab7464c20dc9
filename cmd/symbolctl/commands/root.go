// Package commands implements the symbolctl subcommands.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "symbolctl",
	Short: "Operator CLI for the manuscript symbol extraction service",
	Long: `symbolctl works directly against the extraction database: run
extraction jobs, register page records, inspect extracted symbols, and
print manuscript-wide reports.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
