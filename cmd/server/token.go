package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <device-name>",
	Short: "Mint a device token for the HTTP API",
	Long: `Mint a bearer token for a device without going through pairing.
The token is signed with auth.jwt_secret and valid for auth.token_ttl.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	result, apiErr := application.auth.IssueToken(args[0])
	if apiErr != nil {
		return apiErr
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Token)
	fmt.Fprintf(cmd.ErrOrStderr(), "device %s (%s), expires %s\n",
		result.Device.Name, result.Device.ID, result.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}
