package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/authgate-dev/authgate/internal/backend/idp"
	"github.com/authgate-dev/authgate/internal/backend/jwtauth"
	"github.com/authgate-dev/authgate/internal/config"
	"github.com/authgate-dev/authgate/internal/coordinator"
	"github.com/authgate-dev/authgate/internal/logger"
	"github.com/authgate-dev/authgate/internal/models"
	"github.com/authgate-dev/authgate/internal/session"
)

// buildAuth assembles the full session stack: store, both backend
// services and the coordinator, from environment configuration.
func buildAuth() (*coordinator.Coordinator, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	c := coordinator.New(store, coordinator.NopSink{}, log)

	jwtSvc := jwtauth.New(jwtauth.Config{
		SignInURL:             cfg.JWT.SignInURL,
		SignUpURL:             cfg.JWT.SignUpURL,
		GetUserURL:            cfg.JWT.GetUserURL,
		UpdateUserURL:         cfg.JWT.UpdateUserURL,
		TokenRefreshURL:       cfg.JWT.TokenRefreshURL,
		TokenStorageKey:       cfg.TokenStorageKey,
		UpdateTokenFromHeader: true,
	}, store, c.Wire(models.BackendJWT), log)
	c.Register(jwtSvc)

	idpSvc := idp.New(idp.Config{
		InitiateURL:           cfg.IdP.InitiateURL,
		ChallengeURL:          cfg.IdP.ChallengeURL,
		SignUpURL:             cfg.JWT.SignUpURL,
		GetUserURL:            cfg.JWT.GetUserURL,
		UpdateUserURL:         cfg.JWT.UpdateUserURL,
		TokenRefreshURL:       cfg.JWT.TokenRefreshURL,
		DefaultRole:           cfg.IdP.DefaultRole,
		UpdateTokenFromHeader: true,
	}, store, c.Wire(models.BackendIdentityProvider), log)
	c.Register(idpSvc)

	return c, cfg, nil
}

// openStore picks the session store: OS keyring by default, a file
// store when AUTHGATE_SESSION_STORE=file (useful on headless boxes).
func openStore(cfg *config.Config) (session.Store, error) {
	if os.Getenv("AUTHGATE_SESSION_STORE") == "file" {
		store, err := session.NewFileStore(cfg.SessionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open session file: %w", err)
		}
		return store, nil
	}
	return session.NewKeyringStore(), nil
}

// promptPassword reads a password without echo. Fails in
// non-interactive mode so CI scripts get a clear error instead of a
// hang.
func promptPassword(label string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or AUTHGATE_PASSWORD env var)")
	}
	fmt.Printf("%s: ", label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()
	return string(bytePassword), nil
}

// pickBackend resolves the backend choice: an explicit flag value
// wins, otherwise an interactive selector is shown.
func pickBackend(flagValue string) (models.BackendID, error) {
	if flagValue != "" {
		id := models.BackendID(flagValue)
		if !id.Valid() {
			return "", fmt.Errorf("unknown backend %q (expected %q or %q)",
				flagValue, models.BackendJWT, models.BackendIdentityProvider)
		}
		return id, nil
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return models.BackendJWT, nil
	}

	items := []string{string(models.BackendJWT), string(models.BackendIdentityProvider)}
	prompt := promptui.Select{
		Label: "Authentication backend",
		Items: items,
		Templates: &promptui.SelectTemplates{
			Selected: "Backend: {{ . }}",
		},
	}
	_, choice, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("backend selection aborted: %w", err)
	}
	return models.BackendID(choice), nil
}
