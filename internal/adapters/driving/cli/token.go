package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/api"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue an API bearer token",
	Long: `Signs a bearer token for user-id with auth.secret. The token is also
accepted as the integration app token of the webhook endpoints.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	auth, err := api.NewAuthenticator(cfg.Auth.Secret)
	if err != nil {
		return fmt.Errorf("auth.secret is not configured: %w", err)
	}
	token, err := auth.Issue(args[0], tokenTTL)
	if err != nil {
		return err
	}
	cmd.Println(token)
	return nil
}
