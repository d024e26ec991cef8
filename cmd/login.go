package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/darmiel/authnd/internal/api"
	"github.com/darmiel/authnd/internal/cliconfig"
	"github.com/darmiel/authnd/pkg/client"
)

var (
	loginAccount       string
	loginAuthenticator string
	loginTokenFile     string
	loginRefresh       bool
	loginRetryDelay    time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login [login] [credentials]",
	Short: "Authenticate with an authnd server",
	Long: `Exchanges credentials for an access token and saves it locally for
future authenticated requests (like status checks and audit logs).

With the default authenticator the login (e.g. "alice" or "host/myapp") and
its API key are required. With --authenticator <name>/<service-id> only the
credentials (e.g. an OIDC ID token) are given. Credentials are read from stdin
if omitted or "-".

With --token-file the login is retried until it succeeds and the token is
written to that file instead. Adding --refresh keeps the file fresh by logging
in again before the token expires, until interrupted.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginRefresh && loginTokenFile == "" {
			return fmt.Errorf("--refresh requires --token-file")
		}

		server := f.serverAddr()
		if server == "" {
			return fmt.Errorf("server address not configured, provide via --server or env")
		}

		login, who, err := newLoginFunc(client.New(server), loginAccount, loginAuthenticator, args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		log.Info().Msgf("Logging in as %s...", bold(who))

		if loginTokenFile != "" {
			return loginToFile(cmd.Context(), login)
		}

		resp, correlation, err := login(cmd.Context())
		if err != nil {
			return logError(err, correlation, "login failed")
		}
		return saveCredential(server, resp)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginAccount, "account", "a", "", "Account to log in to")
	loginCmd.Flags().StringVar(&loginAuthenticator, "authenticator", "",
		"Webservice authenticator to use, e.g. authn-oidc/okta (default: API key)")
	loginCmd.Flags().StringVar(&loginTokenFile, "token-file", "", "Write the access token to this file")
	loginCmd.Flags().BoolVar(&loginRefresh, "refresh", false, "Keep the token file fresh until interrupted")
	loginCmd.Flags().DurationVar(&loginRetryDelay, "retry-delay", client.DefaultRetryDelay,
		"Pause between failed login attempts with --token-file")
	_ = loginCmd.MarkFlagRequired("account")
}

// newLoginFunc validates the arguments and returns one login attempt and the
// name it logs in as. Credentials are read once, up front.
func newLoginFunc(
	cli *client.Client,
	account, authenticator string,
	args []string,
	stdin io.Reader,
) (client.LoginFunc, string, error) {
	if authenticator == "" {
		if len(args) == 0 {
			return nil, "", fmt.Errorf("login is required for API key authentication")
		}
		apiKey, err := readArgOrStdin(args[1:], stdin)
		if err != nil {
			return nil, "", err
		}
		login := args[0]
		return func(ctx context.Context) (*api.AuthenticateResponse, string, error) {
			return cli.AuthenticateAPIKey(ctx, account, login, apiKey)
		}, login, nil
	}

	name, serviceID, ok := strings.Cut(authenticator, "/")
	if !ok || name == "" || serviceID == "" {
		return nil, "", fmt.Errorf("authenticator must be given as <name>/<service-id>")
	}
	if len(args) > 1 {
		return nil, "", fmt.Errorf("only the credentials are accepted with --authenticator")
	}
	credentials, err := readArgOrStdin(args, stdin)
	if err != nil {
		return nil, "", err
	}
	return func(ctx context.Context) (*api.AuthenticateResponse, string, error) {
		return cli.Authenticate(ctx, name, serviceID, account, credentials)
	}, authenticator, nil
}

// loginToFile retries until a login succeeds and writes the token file.
// With --refresh it keeps the file fresh until interrupted.
func loginToFile(ctx context.Context, login client.LoginFunc) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresher := client.NewTokenRefresher(loginTokenFile, login)
	refresher.RetryDelay = loginRetryDelay

	if loginRefresh {
		log.Info().Msgf("Refreshing %s until interrupted...", bold(loginTokenFile))
		return refresher.Run(ctx)
	}

	resp, err := refresher.Authenticate(ctx)
	if err != nil {
		return logError(err, "", "login failed")
	}
	logSuccess("logged in as %s, wrote token to %s", bold(resp.Role), bold(loginTokenFile))
	return nil
}

func saveCredential(server string, resp *api.AuthenticateResponse) error {
	cfg, err := cliconfig.Load()
	if err != nil {
		return logError(err, "", "login succeeded but could not load saved credentials")
	}
	cred := &cliconfig.Credential{Token: resp.Token, Role: resp.Role}
	if resp.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	}
	host, err := cfg.SetCredential(server, cred)
	if err != nil {
		return err
	}
	if err := cliconfig.Save(cfg); err != nil {
		return logError(err, "", "login succeeded but could not save credentials")
	}

	logSuccess("logged in as %s, saved credentials for %s", bold(resp.Role), bold(host))
	if viper.GetString(TokenKey) != "" {
		log.Warn().Msg("AUTHND_TOKEN is set and takes precedence over the saved credentials")
	}
	return nil
}
