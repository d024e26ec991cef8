package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/authnd/internal/authenticators"
	"github.com/darmiel/authnd/internal/authn"
	"github.com/darmiel/authnd/internal/store"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Parses the configuration file, checks accounts, permissions and audit
settings and builds every installed authenticator without contacting any provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return logError(err, "", "configuration is invalid")
		}

		dir := store.NewInMemoryDirectory()
		dir.Load(cfg.Accounts)
		registry, err := authenticators.BuildRegistry(cfg.Authenticators.Installed, authenticators.Dependencies{
			Secrets:     dir,
			Credentials: dir,
		})
		if err != nil {
			return logError(err, "", "configuration is invalid")
		}

		enabled := authn.ParseWebservices("", cfg.Authenticators.Enabled)
		for _, ws := range enabled {
			if _, ok := registry.Lookup(ws.AuthenticatorName); !ok {
				log.Warn().Msgf("enabled webservice %s uses authenticator %q which is not installed",
					bold(ws.Name()), ws.AuthenticatorName)
			}
		}

		logSuccess("configuration is valid")
		fmt.Printf("  %s: %s\n", faint("Accounts"), strings.Join(dir.Accounts(), ", "))
		fmt.Printf("  %s: %s\n", faint("Authenticators"), strings.Join(registry.Names(), ", "))
		names := make([]string, 0, len(enabled))
		for _, ws := range enabled {
			names = append(names, ws.Name())
		}
		fmt.Printf("  %s: %s\n", faint("Enabled"), strings.Join(names, ", "))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)

	f.bindConfigFlag(configValidateCmd.Flags())
}
