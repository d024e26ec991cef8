package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Interact with the configuration",
	Long:  `Utilities for validating the authnd server configuration and preparing its values`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
