package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/authnd/internal/buildinfo"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the authnd installation",
	Long:  "Shows the local build information, or that of the server if --server is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if f.serverAddr() == "" {
			return infoLocally(cmd, args)
		}
		return infoRemote(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func infoRemote(cmd *cobra.Command, _ []string) error {
	cli, err := f.GetClient()
	if err != nil {
		return err
	}
	log.Info().Msg("Fetching build info from server...")
	info, correlation, err := cli.Info(cmd.Context())
	if err != nil {
		return logError(err, correlation, "failed to get info from server")
	}
	printInfo(&info.Info)
	fmt.Printf("  %s: %s\n", faint("Authenticators"), strings.Join(info.Authenticators, ", "))
	return nil
}

func infoLocally(_ *cobra.Command, _ []string) error {
	log.Info().Msg("Showing local build info...")
	info := buildinfo.GetBuildInfo()
	printInfo(&info)
	return nil
}

func printInfo(info *buildinfo.Info) {
	fmt.Println(bold("\n── authnd Build Information ──"))
	fmt.Printf("  %s:        %s\n", faint("Version"), info.Version)
	fmt.Printf("  %s:         %s\n", faint("Commit"), info.CommitHash)
}
