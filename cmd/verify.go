package cmd

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/authnd/internal/authn/oidc"
)

var verifyProviderURI string

var verifyCmd = &cobra.Command{
	Use:   "verify [id-token]",
	Short: "Verify an ID token against an OIDC provider",
	Long: `Fetches the signing certificates of the provider through its discovery
document, verifies the signature and expiration of the token and prints its claims.
Runs locally, no authnd server is involved. Reads the token from stdin if omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readArgOrStdin(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		verifier := oidc.NewTokenVerifier(oidc.NewDiscoveryCertificates(nil), oidc.NewJWTCodec())

		log.Info().Msgf("Verifying token against %s...", bold(verifyProviderURI))
		claims, err := verifier.DecodeAndVerify(cmd.Context(), verifyProviderURI, token)
		if err != nil {
			return logError(err, "", "token verification failed")
		}
		logSuccess("token is valid")

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Claim", "Value"})

		names := make([]string, 0, len(claims))
		for name := range claims {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			t.AppendRow(table.Row{name, formatClaim(name, claims[name])})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyProviderURI, "provider-uri", "", "Issuer URI of the OIDC provider")
	_ = verifyCmd.MarkFlagRequired("provider-uri")
}

// formatClaim renders time claims as timestamps and truncates long values.
func formatClaim(name string, value any) string {
	if seconds, ok := value.(float64); ok && (name == "exp" || name == "iat" || name == "nbf" || name == "auth_time") {
		return time.Unix(int64(seconds), 0).UTC().Format(time.RFC3339)
	}
	return truncate(fmt.Sprint(value), 80)
}
