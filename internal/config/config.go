// Package config loads application configuration from the environment.
// Values come from env vars (optionally a .env file) with defaults that
// point every endpoint at a locally running mock API.
package config

import (
	"fmt"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// JWTEndpoints holds the endpoint set for the token backend.
type JWTEndpoints struct {
	SignInURL       string `env:"AUTHGATE_SIGN_IN_URL" envDefault:"http://localhost:8080/api/auth/sign-in" validate:"url"`
	SignUpURL       string `env:"AUTHGATE_SIGN_UP_URL" envDefault:"http://localhost:8080/api/auth/sign-up" validate:"url"`
	GetUserURL      string `env:"AUTHGATE_GET_USER_URL" envDefault:"http://localhost:8080/api/auth/user" validate:"url"`
	UpdateUserURL   string `env:"AUTHGATE_UPDATE_USER_URL" envDefault:"http://localhost:8080/api/auth/user" validate:"url"`
	TokenRefreshURL string `env:"AUTHGATE_TOKEN_REFRESH_URL" envDefault:"http://localhost:8080/api/auth/refresh" validate:"url"`
}

// IdentityProviderEndpoints holds the challenge-protocol endpoints for
// the hosted identity-provider backend. Profile operations reuse the
// generic JWT endpoint set.
type IdentityProviderEndpoints struct {
	InitiateURL  string `env:"AUTHGATE_IDP_INITIATE_URL" envDefault:"http://localhost:8080/api/idp/initiate" validate:"url"`
	ChallengeURL string `env:"AUTHGATE_IDP_CHALLENGE_URL" envDefault:"http://localhost:8080/api/idp/challenge" validate:"url"`
	// DefaultRole is assigned to identity-provider users because the
	// provider's sign-in flow carries no role claim.
	DefaultRole string `env:"AUTHGATE_IDP_DEFAULT_ROLE" envDefault:"admin"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error fatal panic"`
	Format string `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=json console"`
}

// Config holds all configuration for the session manager and its tools.
type Config struct {
	JWT     JWTEndpoints
	IdP     IdentityProviderEndpoints
	Logging LoggingConfig

	// TokenStorageKey is the persisted-store key for the token backend's
	// access token. The identity-provider backend derives its own key.
	TokenStorageKey string `env:"AUTHGATE_TOKEN_STORAGE_KEY" envDefault:"jwt_access_token"`

	// SessionFile backs the file session store when the OS keyring is
	// not in use.
	SessionFile string `env:"AUTHGATE_SESSION_FILE" envDefault:".authgate_session.json"`

	// RefreshSchedule is an optional 5-field cron expression for
	// background token refresh. Empty disables the refresher.
	RefreshSchedule string `env:"AUTHGATE_REFRESH_SCHEDULE"`

	// Route rules file for the authorization gate. Empty means no
	// route table is loaded and every route is allowed.
	RouteRulesFile string `env:"AUTHGATE_ROUTE_RULES"`
}

// MockAPIConfig configures the local mock auth API server.
type MockAPIConfig struct {
	ListenAddr  string `env:"MOCKAPI_LISTEN_ADDR" envDefault:":8080" validate:"hostname_port"`
	DatabaseURL string `env:"MOCKAPI_DATABASE_URL" envDefault:"authgate-mock.sqlite"`
	JWTSecret   string `env:"MOCKAPI_JWT_SECRET" envDefault:"dev-only-secret"`
	// TokenTTL in minutes; tokens within the final third of their
	// lifetime get rotated via the New-Access-Token header.
	TokenTTLMinutes int           `env:"MOCKAPI_TOKEN_TTL_MINUTES" envDefault:"60" validate:"gt=0"`
	Logging         LoggingConfig
}

// Load reads the session-manager configuration from the environment.
func Load() (*Config, error) {
	// .env files are optional; absence is not an error.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadMockAPI reads the mock API server configuration.
func LoadMockAPI() (*MockAPIConfig, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := &MockAPIConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
