package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/authgate-dev/authgate/internal/models"
)

// NewSignupCmd creates the signup command
func NewSignupCmd() *cobra.Command {
	var backendFlag, name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignup(cmd.Context(), backendFlag, name, email, password)
		},
	}

	cmd.Flags().StringVar(&backendFlag, "backend", "", `Backend to use: "jwt" or "cognito" (prompts if omitted)`)
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set AUTHGATE_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set AUTHGATE_PASSWORD, will prompt if not provided)")

	return cmd
}

func runSignup(ctx context.Context, backendFlag, name, email, password string) error {
	if email == "" {
		email = os.Getenv("AUTHGATE_EMAIL")
	}
	if password == "" {
		password = os.Getenv("AUTHGATE_PASSWORD")
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or AUTHGATE_EMAIL env var)")
	}
	if name == "" {
		return fmt.Errorf("display name is required (use --name flag)")
	}

	backendID, err := pickBackend(backendFlag)
	if err != nil {
		return err
	}

	if password == "" {
		password, err = promptPassword("Password")
		if err != nil {
			return err
		}
	}

	c, _, err := buildAuth()
	if err != nil {
		return err
	}

	result, err := c.SignUp(ctx, backendID, models.SignUpPayload{
		DisplayName: name,
		Email:       email,
		Password:    password,
	})
	if err != nil {
		return fmt.Errorf("sign-up failed: %w", err)
	}

	fmt.Println("✓ Account created!")
	printSignedIn(result.User)
	return nil
}
