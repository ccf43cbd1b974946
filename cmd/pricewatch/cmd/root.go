// Package cmd implements the CLI commands for the pricewatch server.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pricewatch",
	Short: "Track product prices and notify subscribers on drops",
	Long: "A web backend that tracks prices on arbitrary product pages via CSS " +
		"selectors and emails subscribers when a price falls to their threshold.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
