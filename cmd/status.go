package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/authnd/pkg/client"
)

var statusAccount string

var statusCmd = &cobra.Command{
	Use:   "status <authenticator>[/<service-id>]",
	Short: "Check whether an authenticator is configured correctly",
	Long: `Runs the status check of an authenticator webservice on the server,
e.g. "authnd status authn-oidc/okta --account cucumber".
Requires a saved access token with read permission on the status webservice.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		authenticator, serviceID, _ := strings.Cut(args[0], "/")

		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Info().Msgf("Checking status of %s in account %s...", bold(args[0]), bold(statusAccount))
		_, correlation, err := cli.Status(cmd.Context(), authenticator, serviceID, statusAccount)
		if err != nil {
			var apiErr client.APIError
			if errors.As(err, &apiErr) {
				fmt.Printf("%s %s %s\n", redCross, args[0], faint(fmt.Sprintf("(HTTP %d)", apiErr.StatusCode)))
				fmt.Printf("  %s\n", apiErr.Message)
			}
			return logError(err, correlation, "status check failed")
		}

		fmt.Printf("%s %s is healthy\n", greenCheck, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusAccount, "account", "a", "", "Account of the authenticator webservice")
	_ = statusCmd.MarkFlagRequired("account")
}
