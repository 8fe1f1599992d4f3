// Package idp implements the identity-provider authentication backend.
// Interactive sign-in and the forced password-change flow run over the
// provider's challenge-response protocol; sign-up, profile updates,
// refresh and session restoration use the same generic HTTP endpoints
// as the token backend.
package idp

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/authgate-dev/authgate/internal/backend"
	"github.com/authgate-dev/authgate/internal/backend/jwtauth"
	"github.com/authgate-dev/authgate/internal/httpclient"
	"github.com/authgate-dev/authgate/internal/models"
	"github.com/authgate-dev/authgate/internal/session"
)

// Config holds provider endpoints, the generic endpoint set and the
// role assigned to provider-issued users.
type Config struct {
	InitiateURL  string
	ChallengeURL string

	SignUpURL       string
	GetUserURL      string
	UpdateUserURL   string
	TokenRefreshURL string

	// DefaultRole is stamped on every provider user; the sign-in flow
	// carries no role claim.
	DefaultRole string

	// TokenStorageKey is the session-store key for the access token.
	TokenStorageKey string

	// UpdateTokenFromHeader enables silent adoption of rotated tokens
	// while authenticated.
	UpdateTokenFromHeader bool
}

// Service is the identity-provider session service.
type Service struct {
	cfg      Config
	store    session.Store
	client   *httpclient.Client
	provider *providerClient
	events   backend.Events
	log      zerolog.Logger

	mu            sync.Mutex
	user          *models.User
	token         string
	authenticated bool
	loading       bool
	restoreDone   bool
}

// userResponse is the wire shape of the generic sign-up endpoint.
type userResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// New creates the service with its own HTTP client instance.
func New(cfg Config, store session.Store, events backend.Events, log zerolog.Logger) *Service {
	if cfg.TokenStorageKey == "" {
		cfg.TokenStorageKey = "idp_access_token"
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = "admin"
	}
	client := httpclient.New()
	return &Service{
		cfg:    cfg,
		store:  store,
		client: client,
		provider: &providerClient{
			client:       client,
			initiateURL:  cfg.InitiateURL,
			challengeURL: cfg.ChallengeURL,
		},
		events:  events,
		log:     log.With().Str("backend", string(models.BackendIdentityProvider)).Logger(),
		loading: true,
	}
}

// ID implements backend.Service.
func (s *Service) ID() models.BackendID {
	return models.BackendIdentityProvider
}

// Client exposes the service's HTTP client.
func (s *Service) Client() *httpclient.Client {
	return s.client
}

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

	if s.cfg.UpdateTokenFromHeader {
		s.client.ArmHooks(httpclient.Hooks{
			OnTokenRotated: s.adoptToken,
			OnUnauthorized: s.forceSignOut,
		})
	}
}

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

func (s *Service) forceSignOut() {
	s.log.Warn().Msg("Unauthorized response received; signing out")
	s.SignOut()
}

// SignIn implements backend.Service. Besides success and failure the
// handshake has two designed alternate endings: the provider may
// demand a new password or a second factor. Both come back as tagged
// outcomes with a nil error, and neither touches session state.
func (s *Service) SignIn(ctx context.Context, payload models.SignInPayload) (*backend.SignInResult, error) {
	resp, err := s.provider.initiate(ctx, payload.Email, payload.Password)
	if err != nil {
		s.resetSession()
		s.emitError(err)
		return nil, err
	}

	switch resp.Challenge {
	case challengeNewPasswordRequired:
		return &backend.SignInResult{
			Outcome: backend.OutcomeNewPasswordRequired,
			Challenge: &backend.PasswordChallenge{
				UserAttributes:     stripAttrs(resp.UserAttributes, attrEmailVerified),
				RequiredAttributes: resp.RequiredAttributes,
				Credentials:        payload,
				ProviderSession:    resp.Session,
			},
		}, nil
	case challengeMFARequired:
		// Variant only; no completion flow exists yet.
		return &backend.SignInResult{
			Outcome: backend.OutcomeMFARequired,
			MFA:     &backend.MFAChallenge{CodeDeliveryDetails: resp.CodeDelivery},
		}, nil
	}

	return s.commitFromIDToken(resp.IDToken, s.emitSignedIn)
}

// CompletePasswordChallenge finishes a forced credential change. The
// flow re-authenticates with the original credentials, expects the
// provider to demand the new password again, and answers with the
// caller-provided one. A provider-rejected new password yields a fresh
// NewPasswordRequired result so the caller can retry; session state is
// unchanged in that case.
func (s *Service) CompletePasswordChallenge(ctx context.Context, payload backend.CompleteChallengePayload) (*backend.SignInResult, error) {
	creds := payload.Challenge.Credentials

	resp, err := s.provider.initiate(ctx, creds.Email, creds.Password)
	if err != nil {
		// Wrong original credentials; genuine failure.
		s.resetSession()
		s.emitError(err)
		return nil, err
	}

	switch resp.Challenge {
	case challengeNewPasswordRequired:
		attrs := stripAttrs(resp.UserAttributes, attrEmailVerified, attrEmail)
		answer, err := s.provider.respondNewPassword(ctx, resp.Session, creds.Email, payload.NewPassword, attrs)
		if err != nil {
			s.log.Debug().Err(err).Msg("Provider rejected new password")
			return &backend.SignInResult{
				Outcome: backend.OutcomeNewPasswordRequired,
				Challenge: &backend.PasswordChallenge{
					UserAttributes:     stripAttrs(resp.UserAttributes, attrEmailVerified),
					RequiredAttributes: resp.RequiredAttributes,
					Credentials:        creds,
					ProviderSession:    resp.Session,
				},
			}, nil
		}
		return s.commitFromIDToken(answer.IDToken, s.emitSignedIn)
	case challengeMFARequired:
		return &backend.SignInResult{
			Outcome: backend.OutcomeMFARequired,
			MFA:     &backend.MFAChallenge{CodeDeliveryDetails: resp.CodeDelivery},
		}, nil
	}

	// The provider no longer demands the challenge (password already
	// changed elsewhere); treat as a plain successful sign-in.
	return s.commitFromIDToken(resp.IDToken, s.emitSignedIn)
}

func (s *Service) commitFromIDToken(idToken string, emit func(*models.User)) (*backend.SignInResult, error) {
	user, err := userFromIDToken(idToken, s.cfg.DefaultRole)
	if err != nil {
		s.resetSession()
		s.emitError(err)
		return nil, err
	}

	s.commitSession(user, idToken)
	emit(user)

	return &backend.SignInResult{
		Outcome:     backend.OutcomeSuccess,
		User:        user,
		AccessToken: idToken,
	}, nil
}

// SignUp implements backend.Service against the generic sign-up
// endpoint; the provider protocol is not involved.
func (s *Service) SignUp(ctx context.Context, payload models.SignUpPayload) (*backend.SignInResult, error) {
	var resp userResponse
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

// UpdateUser implements backend.Service.
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

// RefreshToken implements backend.Service.
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

// Restore implements backend.Service. Same contract as the token
// backend: the persisted token is replayed against the get-user
// endpoint, and a missing token is the anonymous path.
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
	if !ok || !jwtauth.TokenLooksValid(token) {
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
