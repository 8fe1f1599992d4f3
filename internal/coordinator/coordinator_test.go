package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/authgate-dev/authgate/internal/backend"
	"github.com/authgate-dev/authgate/internal/models"
	"github.com/authgate-dev/authgate/internal/session"
)

// fakeService is a scriptable backend used to exercise the coordinator
// without HTTP servers.
type fakeService struct {
	id     models.BackendID
	events backend.Events

	signInResult *backend.SignInResult
	signInErr    error
	restoreAuth  bool

	authenticated bool
	loading       bool
	user          *models.User
	token         string

	signOutCalls int
	restoreCalls int
}

func (f *fakeService) ID() models.BackendID { return f.id }

func (f *fakeService) SignIn(ctx context.Context, payload models.SignInPayload) (*backend.SignInResult, error) {
	if f.signInErr != nil {
		if f.events.OnError != nil {
			f.events.OnError(f.signInErr)
		}
		return nil, f.signInErr
	}
	if f.signInResult.Outcome == backend.OutcomeSuccess {
		f.authenticated = true
		f.user = f.signInResult.User
		if f.events.OnSignedIn != nil {
			f.events.OnSignedIn(f.user)
		}
	}
	return f.signInResult, nil
}

func (f *fakeService) SignUp(ctx context.Context, payload models.SignUpPayload) (*backend.SignInResult, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.authenticated = true
	f.user = f.signInResult.User
	if f.events.OnSignedUp != nil {
		f.events.OnSignedUp(f.user)
	}
	return f.signInResult, nil
}

func (f *fakeService) SignOut() {
	f.signOutCalls++
	f.authenticated = false
	f.user = nil
	if f.events.OnSignedOut != nil {
		f.events.OnSignedOut()
	}
}

func (f *fakeService) UpdateUser(ctx context.Context, partial *models.User) (*models.User, error) {
	f.user = partial
	if f.events.OnUpdateUser != nil {
		f.events.OnUpdateUser(partial)
	}
	return partial, nil
}

func (f *fakeService) RefreshToken(ctx context.Context) (string, error) { return f.token, nil }

func (f *fakeService) Restore(ctx context.Context) bool {
	f.restoreCalls++
	f.loading = false
	if f.restoreAuth {
		f.authenticated = true
		f.user = &models.User{UID: "restored-" + string(f.id)}
	}
	return f.restoreAuth
}

func (f *fakeService) IsAuthenticated() bool { return f.authenticated }
func (f *fakeService) IsLoading() bool       { return f.loading }
func (f *fakeService) User() *models.User    { return f.user }
func (f *fakeService) AccessToken() string   { return f.token }

type recordingSink struct {
	published []*models.User
	cleared   int
}

func (r *recordingSink) PublishUser(u *models.User) { r.published = append(r.published, u) }
func (r *recordingSink) ClearUser()                 { r.cleared++ }

func successResult(uid string) *backend.SignInResult {
	return &backend.SignInResult{
		Outcome: backend.OutcomeSuccess,
		User:    &models.User{UID: uid, Role: "admin"},
	}
}

// newFixture wires two fake backends into a coordinator over the given
// store, mirroring how the CLI assembles the real services.
func newFixture(store session.Store) (*Coordinator, *fakeService, *fakeService, *recordingSink) {
	sink := &recordingSink{}
	c := New(store, sink, zerolog.Nop())

	jwtSvc := &fakeService{id: models.BackendJWT, loading: true, signInResult: successResult("u-jwt")}
	jwtSvc.events = c.Wire(jwtSvc.id)
	c.Register(jwtSvc)

	idpSvc := &fakeService{id: models.BackendIdentityProvider, loading: true, signInResult: successResult("u-idp")}
	idpSvc.events = c.Wire(idpSvc.id)
	c.Register(idpSvc)

	return c, jwtSvc, idpSvc, sink
}

func TestSignIn_RecordsActiveBackend(t *testing.T) {
	store := session.NewMemoryStore()
	c, _, _, sink := newFixture(store)

	result, err := c.SignIn(context.Background(), models.BackendJWT, models.SignInPayload{})
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if result.Outcome != backend.OutcomeSuccess {
		t.Fatalf("outcome = %s", result.Outcome)
	}

	if id, ok := c.ActiveBackend(); !ok || id != models.BackendJWT {
		t.Errorf("active backend = (%s, %v), want jwt", id, ok)
	}
	if v, _ := store.Get(session.ActiveBackendKey); v != "jwt" {
		t.Errorf("persisted active backend = %q, want %q", v, "jwt")
	}
	if len(sink.published) != 1 || sink.published[0].UID != "u-jwt" {
		t.Errorf("sink published %+v, want the signed-in user", sink.published)
	}
}

func TestSignIn_UnknownBackend(t *testing.T) {
	c, _, _, _ := newFixture(session.NewMemoryStore())

	_, err := c.SignIn(context.Background(), models.BackendID("saml"), models.SignInPayload{})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("error = %v, want ErrUnknownBackend", err)
	}
}

func TestSignIn_ChallengeDoesNotRecordActive(t *testing.T) {
	store := session.NewMemoryStore()
	c, _, idpSvc, _ := newFixture(store)
	idpSvc.signInResult = &backend.SignInResult{Outcome: backend.OutcomeNewPasswordRequired}

	result, err := c.SignIn(context.Background(), models.BackendIdentityProvider, models.SignInPayload{})
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if result.Outcome != backend.OutcomeNewPasswordRequired {
		t.Fatalf("outcome = %s", result.Outcome)
	}
	if _, ok := c.ActiveBackend(); ok {
		t.Error("a pending challenge must not record an active backend")
	}
	if _, ok := store.Get(session.ActiveBackendKey); ok {
		t.Error("nothing should be persisted for a pending challenge")
	}
}

func TestSignOut_ErasesRecordAndPublishesClear(t *testing.T) {
	store := session.NewMemoryStore()
	c, jwtSvc, _, sink := newFixture(store)

	if _, err := c.SignIn(context.Background(), models.BackendJWT, models.SignInPayload{}); err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	c.SignOut()

	if jwtSvc.signOutCalls != 1 {
		t.Errorf("backend sign-out called %d times, want 1", jwtSvc.signOutCalls)
	}
	if _, ok := c.ActiveBackend(); ok {
		t.Error("expected no active backend after sign-out")
	}
	if _, ok := store.Get(session.ActiveBackendKey); ok {
		t.Error("expected persisted record erased")
	}
	if sink.cleared == 0 {
		t.Error("expected the sink's user cleared")
	}
}

func TestSignOut_NoActiveBackendIsNoOp(t *testing.T) {
	c, jwtSvc, idpSvc, _ := newFixture(session.NewMemoryStore())

	c.SignOut() // must not panic or error

	if jwtSvc.signOutCalls != 0 || idpSvc.signOutCalls != 0 {
		t.Error("no backend should be signed out")
	}
}

func TestUpdateUserAndRefresh_NoActiveBackendAreNoOps(t *testing.T) {
	c, _, _, _ := newFixture(session.NewMemoryStore())

	user, err := c.UpdateUser(context.Background(), &models.User{UID: "x"})
	if user != nil || err != nil {
		t.Errorf("UpdateUser() = (%v, %v), want (nil, nil)", user, err)
	}

	token, err := c.RefreshToken(context.Background())
	if token != "" || err != nil {
		t.Errorf("RefreshToken() = (%q, %v), want empty and nil", token, err)
	}
}

func TestRestore_SingleAuthenticatedBackendBecomesActive(t *testing.T) {
	store := session.NewMemoryStore()
	c, _, idpSvc, _ := newFixture(store)
	idpSvc.restoreAuth = true

	c.Restore(context.Background())

	if id, ok := c.ActiveBackend(); !ok || id != models.BackendIdentityProvider {
		t.Errorf("active backend = (%s, %v), want cognito", id, ok)
	}
	if v, _ := store.Get(session.ActiveBackendKey); v != "cognito" {
		t.Errorf("persisted active backend = %q, want %q", v, "cognito")
	}
}

func TestRestore_NoAuthenticatedBackendClearsStaleRecord(t *testing.T) {
	store := session.NewMemoryStore()
	store.Set(session.ActiveBackendKey, "jwt")
	c, _, _, _ := newFixture(store)

	c.Restore(context.Background())

	if _, ok := c.ActiveBackend(); ok {
		t.Error("expected no active backend")
	}
	if _, ok := store.Get(session.ActiveBackendKey); ok {
		t.Error("expected the stale record cleared")
	}
}

func TestRestore_BothAuthenticated_PersistedRecordWins(t *testing.T) {
	store := session.NewMemoryStore()
	store.Set(session.ActiveBackendKey, "cognito")
	c, jwtSvc, idpSvc, _ := newFixture(store)
	jwtSvc.restoreAuth = true
	idpSvc.restoreAuth = true

	c.Restore(context.Background())

	if id, ok := c.ActiveBackend(); !ok || id != models.BackendIdentityProvider {
		t.Errorf("active backend = (%s, %v), want the recorded issuer", id, ok)
	}
	if jwtSvc.signOutCalls != 1 {
		t.Errorf("losing backend signed out %d times, want 1", jwtSvc.signOutCalls)
	}
	if idpSvc.signOutCalls != 0 {
		t.Error("winning backend must keep its session")
	}
	if v, _ := store.Get(session.ActiveBackendKey); v != "cognito" {
		t.Errorf("persisted record = %q, want the winner re-recorded", v)
	}
}

func TestRestore_BothAuthenticated_NoRecordUsesRegistrationOrder(t *testing.T) {
	store := session.NewMemoryStore()
	c, jwtSvc, idpSvc, _ := newFixture(store)
	jwtSvc.restoreAuth = true
	idpSvc.restoreAuth = true

	c.Restore(context.Background())

	if id, ok := c.ActiveBackend(); !ok || id != models.BackendJWT {
		t.Errorf("active backend = (%s, %v), want the first registered", id, ok)
	}
	if idpSvc.signOutCalls != 1 {
		t.Errorf("second backend signed out %d times, want 1", idpSvc.signOutCalls)
	}
}

func TestNew_DiscardsUnknownPersistedBackend(t *testing.T) {
	store := session.NewMemoryStore()
	store.Set(session.ActiveBackendKey, "ldap")

	c, _, _, _ := newFixture(store)

	if _, ok := c.ActiveBackend(); ok {
		t.Error("unknown persisted id must not become active")
	}
	if _, ok := store.Get(session.ActiveBackendKey); ok {
		t.Error("unknown persisted id must be removed from the store")
	}
}

func TestLoadingAggregation(t *testing.T) {
	c, jwtSvc, idpSvc, _ := newFixture(session.NewMemoryStore())

	if !c.IsLoading() {
		t.Error("expected loading while both backends are unrestored")
	}

	jwtSvc.loading = false
	if !c.IsLoading() {
		t.Error("expected loading while one backend is still restoring")
	}

	idpSvc.loading = false
	if c.IsLoading() {
		t.Error("expected loading cleared once every backend settled")
	}

	state := c.State()
	if state.IsLoading || state.IsAuthenticated {
		t.Errorf("state = %+v, want settled anonymous snapshot", state)
	}
}

func TestUser_ComesFromActiveBackend(t *testing.T) {
	c, _, _, _ := newFixture(session.NewMemoryStore())

	if c.User() != nil {
		t.Error("expected nil user while anonymous")
	}

	if _, err := c.SignIn(context.Background(), models.BackendIdentityProvider, models.SignInPayload{}); err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if user := c.User(); user == nil || user.UID != "u-idp" {
		t.Errorf("user = %+v, want the active backend's user", user)
	}
}
