// Package jwtauth implements the token-based authentication backend:
// credential sign-in against generic HTTP endpoints, with the access
// token persisted and replayed for session restoration.
package jwtauth

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/authgate-dev/authgate/internal/backend"
	"github.com/authgate-dev/authgate/internal/httpclient"
	"github.com/authgate-dev/authgate/internal/models"
	"github.com/authgate-dev/authgate/internal/session"
)

// Config holds the endpoint set and storage key for the service.
type Config struct {
	SignInURL       string
	SignUpURL       string
	GetUserURL      string
	UpdateUserURL   string
	TokenRefreshURL string

	// TokenStorageKey is the session-store key for the access token.
	TokenStorageKey string

	// UpdateTokenFromHeader enables silent adoption of rotated tokens
	// from response headers while authenticated.
	UpdateTokenFromHeader bool
}

// Service is the token-backend session service.
type Service struct {
	cfg    Config
	store  session.Store
	client *httpclient.Client
	events backend.Events
	log    zerolog.Logger

	mu            sync.Mutex
	user          *models.User
	token         string
	authenticated bool
	loading       bool
	restoreDone   bool
}

// authResponse is the wire shape of sign-in and sign-up responses.
type authResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// New creates the service with its own HTTP client instance. The
// service reports loading until Restore has settled.
func New(cfg Config, store session.Store, events backend.Events, log zerolog.Logger) *Service {
	if cfg.TokenStorageKey == "" {
		cfg.TokenStorageKey = "jwt_access_token"
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		client:  httpclient.New(),
		events:  events,
		log:     log.With().Str("backend", string(models.BackendJWT)).Logger(),
		loading: true,
	}
}

// ID implements backend.Service.
func (s *Service) ID() models.BackendID {
	return models.BackendJWT
}

// Client exposes the service's HTTP client for requests that must ride
// the same bearer token and interceptors.
func (s *Service) Client() *httpclient.Client {
	return s.client
}

// commitSession persists the token, arms the response hooks and flips
// the service to authenticated. Callers invoke success callbacks only
// after this returns, so observers always see fully committed state.
func (s *Service) commitSession(user *models.User, token string) {
	if err := s.store.Set(s.cfg.TokenStorageKey, token); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist access token")
	}
	s.client.SetBearerToken(token)

	s.mu.Lock()
	s.user = user
	s.token = token
	s.authenticated = true
	s.mu.Unlock()

	s.armHooks()
}

// resetSession clears every trace of the session: persisted token,
// bearer header, interceptor hooks and in-memory state.
func (s *Service) resetSession() {
	if err := s.store.Remove(s.cfg.TokenStorageKey); err != nil {
		s.log.Error().Err(err).Msg("Failed to remove persisted access token")
	}
	s.client.DisarmHooks()
	s.client.ClearBearerToken()

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.authenticated = false
	s.mu.Unlock()
}

func (s *Service) armHooks() {
	if !s.cfg.UpdateTokenFromHeader {
		return
	}
	s.client.ArmHooks(httpclient.Hooks{
		OnTokenRotated: s.adoptToken,
		OnUnauthorized: s.forceSignOut,
	})
}

// adoptToken silently replaces the session token; user and
// authentication state are untouched.
func (s *Service) adoptToken(token string) {
	if err := s.store.Set(s.cfg.TokenStorageKey, token); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist rotated token")
	}
	s.client.SetBearerToken(token)

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.log.Debug().Msg("Adopted rotated access token")
}

// forceSignOut handles a server-signaled 401. SignOut disarms the
// hooks, so a burst of unauthorized responses signs out exactly once.
func (s *Service) forceSignOut() {
	s.log.Warn().Msg("Unauthorized response received; signing out")
	s.SignOut()
}

// SignIn implements backend.Service. A failed attempt always leaves
// the service fully signed out.
func (s *Service) SignIn(ctx context.Context, payload models.SignInPayload) (*backend.SignInResult, error) {
	var resp authResponse
	if err := s.client.Post(ctx, s.cfg.SignInURL, payload, &resp); err != nil {
		s.resetSession()
		s.emitError(err)
		return nil, err
	}

	s.commitSession(resp.User, resp.AccessToken)
	s.emitSignedIn(resp.User)

	return &backend.SignInResult{
		Outcome:     backend.OutcomeSuccess,
		User:        resp.User,
		AccessToken: resp.AccessToken,
	}, nil
}

// SignUp implements backend.Service, with the same commit/failure
// contract as SignIn.
func (s *Service) SignUp(ctx context.Context, payload models.SignUpPayload) (*backend.SignInResult, error) {
	var resp authResponse
	if err := s.client.Post(ctx, s.cfg.SignUpURL, payload, &resp); err != nil {
		s.resetSession()
		s.emitError(err)
		return nil, err
	}

	s.commitSession(resp.User, resp.AccessToken)
	s.emitSignedUp(resp.User)

	return &backend.SignInResult{
		Outcome:     backend.OutcomeSuccess,
		User:        resp.User,
		AccessToken: resp.AccessToken,
	}, nil
}

// SignOut implements backend.Service. Idempotent.
func (s *Service) SignOut() {
	s.resetSession()
	if s.events.OnSignedOut != nil {
		s.events.OnSignedOut()
	}
}

// UpdateUser implements backend.Service. The server's representation
// replaces the local user wholesale; no local merge happens.
func (s *Service) UpdateUser(ctx context.Context, partial *models.User) (*models.User, error) {
	var updated models.User
	if err := s.client.Put(ctx, s.cfg.UpdateUserURL, partial, &updated); err != nil {
		s.emitError(err)
		return nil, err
	}

	s.mu.Lock()
	s.user = &updated
	s.mu.Unlock()

	if s.events.OnUpdateUser != nil {
		s.events.OnUpdateUser(&updated)
	}
	return &updated, nil
}

// RefreshToken implements backend.Service. An empty result with nil
// error means the server issued no replacement token.
func (s *Service) RefreshToken(ctx context.Context) (string, error) {
	headers, err := s.client.PostForHeaders(ctx, s.cfg.TokenRefreshURL, nil)
	if err != nil {
		s.emitError(err)
		return "", err
	}

	token := headers.Get(httpclient.RotatedTokenHeader)
	if token == "" {
		return "", nil
	}

	s.adoptToken(token)
	return token, nil
}

// Restore implements backend.Service. It runs its attempt once; later
// calls report the current state. A missing or structurally invalid
// persisted token is cleared silently without any network traffic.
func (s *Service) Restore(ctx context.Context) bool {
	s.mu.Lock()
	if s.restoreDone || s.authenticated {
		done := s.authenticated
		s.restoreDone = true
		s.loading = false
		s.mu.Unlock()
		return done
	}
	s.restoreDone = true
	s.mu.Unlock()

	defer s.setLoading(false)

	token, ok := s.store.Get(s.cfg.TokenStorageKey)
	if !ok || !TokenLooksValid(token) {
		s.resetSession()
		return false
	}

	s.client.SetBearerToken(token)

	var user models.User
	if err := s.client.Get(ctx, s.cfg.GetUserURL, &user); err != nil {
		s.log.Debug().Err(err).Msg("Stored token rejected during restore")
		s.resetSession()
		s.emitError(err)
		return false
	}

	s.commitSession(&user, token)
	s.emitSignedIn(&user)
	return true
}

func (s *Service) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// IsAuthenticated implements backend.Service.
func (s *Service) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// IsLoading implements backend.Service.
func (s *Service) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// User implements backend.Service.
func (s *Service) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

// AccessToken implements backend.Service.
func (s *Service) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Service) emitSignedIn(user *models.User) {
	if s.events.OnSignedIn != nil {
		s.events.OnSignedIn(user)
	}
}

func (s *Service) emitSignedUp(user *models.User) {
	if s.events.OnSignedUp != nil {
		s.events.OnSignedUp(user)
	}
}

func (s *Service) emitError(err error) {
	if s.events.OnError != nil {
		s.events.OnError(err)
	}
}
