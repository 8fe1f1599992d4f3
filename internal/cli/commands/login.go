package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/authgate-dev/authgate/internal/backend"
	"github.com/authgate-dev/authgate/internal/models"
)

const maxChallengeAttempts = 3

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var backendFlag, email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in against an authentication backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), backendFlag, email, password)
		},
	}

	cmd.Flags().StringVar(&backendFlag, "backend", "", `Backend to use: "jwt" or "cognito" (prompts if omitted)`)
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set AUTHGATE_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set AUTHGATE_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, backendFlag, email, password string) error {
	if email == "" {
		email = os.Getenv("AUTHGATE_EMAIL")
	}
	if password == "" {
		password = os.Getenv("AUTHGATE_PASSWORD")
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or AUTHGATE_EMAIL env var)")
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

	fmt.Printf("Signing in via %s...\n", backendID)

	result, err := c.SignIn(ctx, backendID, models.SignInPayload{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	switch result.Outcome {
	case backend.OutcomeSuccess:
		printSignedIn(result.User)
		return nil
	case backend.OutcomeNewPasswordRequired:
		return runPasswordChallenge(ctx, c, backendID, result.Challenge)
	case backend.OutcomeMFARequired:
		// The MFA branch has no completion flow yet.
		return fmt.Errorf("this account requires a second factor, which the CLI does not support yet (delivery: %v)",
			result.MFA.CodeDeliveryDetails)
	default:
		return fmt.Errorf("unexpected sign-in outcome %s", result.Outcome)
	}
}

// runPasswordChallenge walks the forced password-change flow, allowing
// a few retries when the provider rejects the chosen password.
func runPasswordChallenge(ctx context.Context, c challengeRunner, backendID models.BackendID, challenge *backend.PasswordChallenge) error {
	fmt.Println("The provider requires a new password before sign-in can complete.")

	for attempt := 1; attempt <= maxChallengeAttempts; attempt++ {
		newPassword, err := promptPassword("New password")
		if err != nil {
			return err
		}

		result, err := c.CompletePasswordChallenge(ctx, backendID, backend.CompleteChallengePayload{
			Challenge:   challenge,
			NewPassword: newPassword,
		})
		if err != nil {
			return fmt.Errorf("password change failed: %w", err)
		}

		switch result.Outcome {
		case backend.OutcomeSuccess:
			fmt.Println("✓ Password updated.")
			printSignedIn(result.User)
			return nil
		case backend.OutcomeNewPasswordRequired:
			challenge = result.Challenge
			fmt.Println("The provider rejected that password. Try another.")
		default:
			return fmt.Errorf("unexpected challenge outcome %s", result.Outcome)
		}
	}

	return fmt.Errorf("password change abandoned after %d attempts", maxChallengeAttempts)
}

// challengeRunner is the slice of the coordinator the challenge flow
// needs; narrowing it keeps the flow testable.
type challengeRunner interface {
	CompletePasswordChallenge(ctx context.Context, id models.BackendID, payload backend.CompleteChallengePayload) (*backend.SignInResult, error)
}

func printSignedIn(user *models.User) {
	fmt.Println("✓ Signed in!")
	if user == nil {
		return
	}
	fmt.Printf("  User: %s (%s)\n", user.Data.DisplayName, user.Data.Email)
	if user.Role != "" {
		fmt.Printf("  Role: %s\n", user.Role)
	}
}
