package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the restored session's user",
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

			user := c.User()
			activeBackend, _ := c.ActiveBackend()
			fmt.Printf("User:    %s (%s)\n", user.Data.DisplayName, user.Data.Email)
			fmt.Printf("Role:    %s\n", user.Role)
			fmt.Printf("Backend: %s\n", activeBackend)
			return nil
		},
	}
}
