package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

var connectionCmd = &cobra.Command{
	Use:     "connection",
	Aliases: []string{"conn"},
	Short:   "Manage provider connections",
	Long:    `Register, list, and remove the provider connections syncs run against.`,
}

var connectionAddCmd = &cobra.Command{
	Use:   "add [integration]",
	Short: "Register a connection",
	Long: `Registers a connection for an integration (box, sharepoint).
The access token is stored and used when a sync or download has no
token of its own.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectionAdd,
}

var connectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connections of a user",
	Args:  cobra.NoArgs,
	RunE:  runConnectionList,
}

var connectionRemoveCmd = &cobra.Command{
	Use:   "remove [connection-id]",
	Short: "Remove a connection",
	Long: `Removes a connection. A sync running against it fails at its next
check. Synced documents are kept until "sync teardown".`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectionRemove,
}

// Flags for connection commands.
var (
	connUser    string
	connID      string
	connName    string
	connLogo    string
	connToken   string
	connBaseURL string
)

func init() {
	connectionCmd.PersistentFlags().StringVarP(&connUser, "user", "u", "", "owning user id")

	connectionAddCmd.Flags().StringVar(&connID, "id", "", "connection id (generated if empty)")
	connectionAddCmd.Flags().StringVar(&connName, "name", "", "display name of the integration")
	connectionAddCmd.Flags().StringVar(&connLogo, "logo", "", "logo URL of the integration")
	connectionAddCmd.Flags().StringVar(&connToken, "token", "", "provider access token")
	connectionAddCmd.Flags().StringVar(&connBaseURL, "base-url", "", "provider API endpoint override")

	connectionCmd.AddCommand(connectionAddCmd)
	connectionCmd.AddCommand(connectionListCmd)
	connectionCmd.AddCommand(connectionRemoveCmd)
	rootCmd.AddCommand(connectionCmd)
}

func runConnectionAdd(cmd *cobra.Command, args []string) error {
	if connUser == "" {
		return errors.New("--user is required")
	}
	svc, err := requireServices(cmd.Context())
	if err != nil {
		return err
	}

	conn, err := svc.Connections.Register(cmd.Context(), driving.RegisterConnectionRequest{
		ID:              connID,
		UserID:          connUser,
		IntegrationKey:  args[0],
		IntegrationName: connName,
		IntegrationLogo: connLogo,
		AccessToken:     connToken,
		BaseURL:         connBaseURL,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			return fmt.Errorf("unsupported integration %q", args[0])
		}
		return fmt.Errorf("failed to register connection: %w", err)
	}

	cmd.Printf("Connection registered: %s\n", conn.ID)
	return nil
}

func runConnectionList(cmd *cobra.Command, _ []string) error {
	if connUser == "" {
		return errors.New("--user is required")
	}
	svc, err := requireServices(cmd.Context())
	if err != nil {
		return err
	}

	conns, err := svc.Connections.List(cmd.Context(), connUser)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}

	if len(conns) == 0 {
		cmd.Println("No connections configured.")
		return nil
	}

	cmd.Println("Connections:")
	cmd.Println()
	for i := range conns {
		cmd.Printf("  %s\n", conns[i].ID)
		cmd.Printf("    Integration: %s (%s)\n", conns[i].IntegrationName, conns[i].IntegrationKey)
		if conns[i].BaseURL != "" {
			cmd.Printf("    Endpoint: %s\n", conns[i].BaseURL)
		}
		cmd.Printf("    Created: %s\n", conns[i].CreatedAt.Format(time.RFC3339))
		cmd.Println()
	}
	return nil
}

func runConnectionRemove(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd.Context())
	if err != nil {
		return err
	}

	if err := svc.Connections.Disconnect(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("connection not found: %s", args[0])
		}
		return fmt.Errorf("failed to remove connection: %w", err)
	}

	cmd.Printf("Removed connection: %s\n", args[0])
	return nil
}
