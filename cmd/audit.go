package cmd

import (
	"github.com/spf13/cobra"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail of status checks and logins",
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
