// Package cmd implements the minirag command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	projectID  int64
)

var rootCmd = &cobra.Command{
	Use:          "minirag",
	Short:        "Retrieval-augmented question answering over project document collections",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ./minirag.yaml)")
	rootCmd.PersistentFlags().Int64Var(&projectID, "project", 1, "project id")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
