package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/authnd/pkg/client"
)

var auditLogOpts client.ListAuditEventsOpts

// auditLogCmd represents the audit log command
var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Retrieve and display audit events of an account",
	Long:  "Lists the latest audit events of an account. Requires the access token of the account admin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching audit log...")
		events, correlation, err := cli.ListAuditEvents(cmd.Context(), auditLogOpts)
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log")
		}

		log.Info().Msgf("Retrieved %d audit events", len(events))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Action", "Webservice", "User", "Success", "Message",
		})

		for _, e := range events {
			status := "YES"
			if !e.Success {
				status = "NO"
			}

			user := e.Username
			if user == "" {
				user = "(anonymous)"
			}

			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				e.Action,
				truncate(e.ResourceID, 45),
				truncate(user, 30),
				status,
				truncate(e.Message, 60),
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().StringVarP(&auditLogOpts.Account, "account", "a", "", "Account to list audit events of")
	auditLogCmd.Flags().StringVar(&auditLogOpts.Action, "action", "", "Only show events of this action (status, authenticate)")
	auditLogCmd.Flags().BoolVar(&auditLogOpts.FailedOnly, "failed", false, "Only show failed events")
	auditLogCmd.Flags().UintVarP(&auditLogOpts.Limit, "limit", "n", 25, "Number of audit events to retrieve")
	_ = auditLogCmd.MarkFlagRequired("account")
}
