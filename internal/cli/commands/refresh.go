package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the refresh command
func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the active backend for a fresh access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := buildAuth()
			if err != nil {
				return err
			}

			c.Restore(cmd.Context())

			if !c.IsAuthenticated() {
				fmt.Println("Not signed in.")
				return nil
			}

			token, err := c.RefreshToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			if token == "" {
				fmt.Println("Server issued no replacement token.")
				return nil
			}

			fmt.Println("✓ Access token refreshed.")
			return nil
		},
	}
}
