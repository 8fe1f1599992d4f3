package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := buildAuth()
			if err != nil {
				return err
			}

			// Signing out with no recorded session is fine; the
			// command stays idempotent.
			c.SignOut()

			fmt.Println("✓ Signed out.")
			return nil
		},
	}
}
