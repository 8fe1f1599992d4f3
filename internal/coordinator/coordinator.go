// Package coordinator composes the authentication backend services
// behind one session facade: it tracks which backend issued the live
// session, dispatches operations to it, restores persisted sessions on
// startup and publishes user state to the embedding application.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/authgate-dev/authgate/internal/backend"
	"github.com/authgate-dev/authgate/internal/models"
	"github.com/authgate-dev/authgate/internal/session"
)

// ErrUnknownBackend is returned when an operation names a backend the
// coordinator was not built with.
var ErrUnknownBackend = errors.New("unknown authentication backend")

// ChallengeCompleter is implemented by backends that support the
// forced password-change flow.
type ChallengeCompleter interface {
	CompletePasswordChallenge(ctx context.Context, payload backend.CompleteChallengePayload) (*backend.SignInResult, error)
}

// Coordinator is the unified session manager. Construct with New.
type Coordinator struct {
	store session.Store
	sink  UserSink
	log   zerolog.Logger

	// order fixes the deterministic tie-break used when no active
	// backend is recorded after restoration.
	order    []models.BackendID
	services map[models.BackendID]backend.Service

	mu     sync.Mutex
	active models.BackendID
}

// New builds an empty coordinator; backends are attached afterwards
// with Register, constructed around the Events from Wire. New loads
// the persisted active-backend record.
func New(store session.Store, sink UserSink, log zerolog.Logger) *Coordinator {
	if sink == nil {
		sink = NopSink{}
	}
	c := &Coordinator{
		store:    store,
		sink:     sink,
		log:      log.With().Str("component", "coordinator").Logger(),
		services: make(map[models.BackendID]backend.Service),
	}

	if raw, ok := store.Get(session.ActiveBackendKey); ok {
		id := models.BackendID(raw)
		if id.Valid() {
			c.active = id
		} else {
			c.log.Warn().Str("value", raw).Msg("Discarding unknown persisted backend id")
			_ = store.Remove(session.ActiveBackendKey)
		}
	}

	return c
}

// Register attaches a backend service. Registration order doubles as
// the deterministic tie-break order during restoration.
func (c *Coordinator) Register(svc backend.Service) {
	c.order = append(c.order, svc.ID())
	c.services[svc.ID()] = svc
}

// Wire returns the Events set a backend service should be constructed
// with so its session transitions reach the sink and the coordinator's
// active-backend record stays consistent with forced sign-outs.
func (c *Coordinator) Wire(id models.BackendID) backend.Events {
	return backend.Events{
		OnSignedIn:   func(u *models.User) { c.sink.PublishUser(u) },
		OnSignedUp:   func(u *models.User) { c.sink.PublishUser(u) },
		OnUpdateUser: func(u *models.User) { c.sink.PublishUser(u) },
		OnSignedOut: func() {
			c.clearActiveIf(id)
			c.sink.ClearUser()
		},
		OnError: func(err error) {
			c.log.Warn().Err(err).Str("backend", string(id)).Msg("Backend reported an error")
		},
	}
}

// Service returns the backend service registered under id.
func (c *Coordinator) Service(id models.BackendID) (backend.Service, bool) {
	svc, ok := c.services[id]
	return svc, ok
}

// ActiveBackend reports the recorded issuer of the live session.
func (c *Coordinator) ActiveBackend() (models.BackendID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.active != ""
}

func (c *Coordinator) setActive(id models.BackendID) {
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
	if err := c.store.Set(session.ActiveBackendKey, string(id)); err != nil {
		c.log.Error().Err(err).Msg("Failed to persist active backend")
	}
}

func (c *Coordinator) clearActive() {
	c.mu.Lock()
	c.active = ""
	c.mu.Unlock()
	if err := c.store.Remove(session.ActiveBackendKey); err != nil {
		c.log.Error().Err(err).Msg("Failed to erase active backend")
	}
}

// clearActiveIf erases the record only when it points at id, so one
// backend's forced sign-out cannot drop another backend's session.
func (c *Coordinator) clearActiveIf(id models.BackendID) {
	c.mu.Lock()
	match := c.active == id
	c.mu.Unlock()
	if match {
		c.clearActive()
	}
}

// Restore attempts session restoration on every backend concurrently
// and blocks until all attempts settle. At most one backend may come
// out authenticated: when several do, the persisted active-backend id
// wins and the rest are force-signed out; with no record, the first
// authenticated backend in registration order is kept and recorded.
func (c *Coordinator) Restore(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range c.order {
		svc := c.services[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Restore(ctx)
		}()
	}
	wg.Wait()

	var authenticated []models.BackendID
	for _, id := range c.order {
		if c.services[id].IsAuthenticated() {
			authenticated = append(authenticated, id)
		}
	}

	switch len(authenticated) {
	case 0:
		// Anonymous startup; a stale active record is meaningless.
		c.clearActive()
		return
	case 1:
		c.setActive(authenticated[0])
		return
	}

	// Both backends held valid persisted tokens. Deterministic
	// resolution: the recorded issuer keeps its session.
	recorded, hasRecord := c.ActiveBackend()
	winner := authenticated[0]
	if hasRecord {
		for _, id := range authenticated {
			if id == recorded {
				winner = id
				break
			}
		}
	}

	c.log.Warn().
		Str("kept", string(winner)).
		Msg("Multiple backends restored authenticated sessions; clearing extras")

	for _, id := range authenticated {
		if id != winner {
			c.services[id].SignOut()
		}
	}
	// SignOut of the losers may have cleared the record via the wired
	// OnSignedOut; re-record the winner afterwards.
	c.setActive(winner)
}

// SignIn dispatches a sign-in to the named backend and records it as
// active on the success outcome. Alternate outcomes (new password,
// MFA) leave the active record untouched.
func (c *Coordinator) SignIn(ctx context.Context, id models.BackendID, payload models.SignInPayload) (*backend.SignInResult, error) {
	svc, ok := c.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}

	result, err := svc.SignIn(ctx, payload)
	if err != nil {
		return nil, err
	}
	if result.Outcome == backend.OutcomeSuccess {
		c.setActive(id)
	}
	return result, nil
}

// SignUp dispatches a registration to the named backend; same
// active-record contract as SignIn.
func (c *Coordinator) SignUp(ctx context.Context, id models.BackendID, payload models.SignUpPayload) (*backend.SignInResult, error) {
	svc, ok := c.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}

	result, err := svc.SignUp(ctx, payload)
	if err != nil {
		return nil, err
	}
	if result.Outcome == backend.OutcomeSuccess {
		c.setActive(id)
	}
	return result, nil
}

// CompletePasswordChallenge routes the challenge answer to the backend
// that issued it.
func (c *Coordinator) CompletePasswordChallenge(ctx context.Context, id models.BackendID, payload backend.CompleteChallengePayload) (*backend.SignInResult, error) {
	svc, ok := c.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}
	completer, ok := svc.(ChallengeCompleter)
	if !ok {
		return nil, fmt.Errorf("backend %s does not support password challenges", id)
	}

	result, err := completer.CompletePasswordChallenge(ctx, payload)
	if err != nil {
		return nil, err
	}
	if result.Outcome == backend.OutcomeSuccess {
		c.setActive(id)
	}
	return result, nil
}

// SignOut signs out whichever backend is recorded as active and erases
// the record. With no active backend it is a silent no-op; it never
// fails.
func (c *Coordinator) SignOut() {
	id, ok := c.ActiveBackend()
	if !ok {
		c.log.Debug().Msg("Sign-out with no active backend; nothing to do")
		return
	}
	if svc, exists := c.services[id]; exists {
		svc.SignOut()
	}
	c.clearActive()
}

// UpdateUser dispatches a profile update to the active backend. With
// no active backend it is a silent no-op.
func (c *Coordinator) UpdateUser(ctx context.Context, partial *models.User) (*models.User, error) {
	id, ok := c.ActiveBackend()
	if !ok {
		c.log.Debug().Msg("Update-user with no active backend; nothing to do")
		return nil, nil
	}
	svc, exists := c.services[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}
	return svc.UpdateUser(ctx, partial)
}

// RefreshToken asks the active backend for a fresh token. With no
// active backend it is a silent no-op.
func (c *Coordinator) RefreshToken(ctx context.Context) (string, error) {
	id, ok := c.ActiveBackend()
	if !ok {
		return "", nil
	}
	svc, exists := c.services[id]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}
	return svc.RefreshToken(ctx)
}

// IsAuthenticated reports whether any backend holds a session. The
// backends are mutually exclusive in practice, so this is effectively
// the active backend's state.
func (c *Coordinator) IsAuthenticated() bool {
	for _, svc := range c.services {
		if svc.IsAuthenticated() {
			return true
		}
	}
	return false
}

// IsLoading reports whether any backend is still running its startup
// restoration attempt. The combined splash state clears only when
// every backend has settled.
func (c *Coordinator) IsLoading() bool {
	for _, svc := range c.services {
		if svc.IsLoading() {
			return true
		}
	}
	return false
}

// State returns the derived authentication snapshot.
func (c *Coordinator) State() models.AuthState {
	return models.AuthState{
		IsAuthenticated: c.IsAuthenticated(),
		IsLoading:       c.IsLoading(),
	}
}

// User returns the active backend's user, or nil when anonymous.
func (c *Coordinator) User() *models.User {
	id, ok := c.ActiveBackend()
	if !ok {
		return nil
	}
	if svc, exists := c.services[id]; exists {
		return svc.User()
	}
	return nil
}
