package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darmiel/authnd/internal/authenticators"
)

var configHashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Hash an API key for the api_key_hash field of a role",
	Long:  `Prints the bcrypt hash of an API key. Reads the key from stdin if omitted or "-".`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := readArgOrStdin(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		hash, err := authenticators.HashAPIKey(key)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configHashKeyCmd)
}
