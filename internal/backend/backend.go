// Package backend defines the contract every authentication backend
// service implements, plus the tagged sign-in result shared by both.
package backend

import (
	"context"

	"github.com/authgate-dev/authgate/internal/models"
)

// Outcome tags the terminal branch a sign-in attempt reached. Hard
// failures are reported through the error return instead; the non-error
// outcomes below are all designed flows, not failures.
type Outcome int

const (
	// OutcomeSuccess means a session was committed.
	OutcomeSuccess Outcome = iota
	// OutcomeNewPasswordRequired means the provider demands a
	// credential reset before the sign-in can complete.
	OutcomeNewPasswordRequired
	// OutcomeMFARequired means the provider wants a second factor.
	// No completion flow exists for this branch yet.
	OutcomeMFARequired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNewPasswordRequired:
		return "new_password_required"
	case OutcomeMFARequired:
		return "mfa_required"
	default:
		return "unknown"
	}
}

// PasswordChallenge carries everything the caller needs to route the
// user into the credential-reset flow and come back.
type PasswordChallenge struct {
	// UserAttributes as returned by the provider, with fields the
	// provider refuses to accept back already removed.
	UserAttributes map[string]string
	// RequiredAttributes the provider insists on receiving.
	RequiredAttributes []string
	// Credentials are the original sign-in credentials; the
	// completion flow re-authenticates with them.
	Credentials models.SignInPayload
	// ProviderSession is the opaque continuation handle issued by the
	// provider, when its protocol uses one.
	ProviderSession string
}

// MFAChallenge describes the second-factor demand. Completion is not
// implemented; the variant exists so callers can recognize the branch.
type MFAChallenge struct {
	CodeDeliveryDetails map[string]string
}

// SignInResult is the tagged result of SignIn, SignUp and
// CompletePasswordChallenge. Exactly the fields matching Outcome are
// populated.
type SignInResult struct {
	Outcome     Outcome
	User        *models.User
	AccessToken string
	Challenge   *PasswordChallenge
	MFA         *MFAChallenge
}

// CompleteChallengePayload answers a PasswordChallenge.
type CompleteChallengePayload struct {
	Challenge   *PasswordChallenge
	NewPassword string
}

// Events are optional observer callbacks. A backend commits its session
// state fully before invoking the corresponding success callback.
type Events struct {
	OnSignedIn   func(user *models.User)
	OnSignedUp   func(user *models.User)
	OnSignedOut  func()
	OnUpdateUser func(user *models.User)
	OnError      func(err error)
}

// Service is one authentication backend. Implementations are safe for
// concurrent use.
type Service interface {
	ID() models.BackendID

	// SignIn authenticates with credentials. A nil error with a
	// non-success outcome is an alternate terminal branch, not a
	// failure. On error the service is guaranteed fully signed out.
	SignIn(ctx context.Context, payload models.SignInPayload) (*SignInResult, error)

	// SignUp registers a new account and signs it in; same contract
	// as SignIn.
	SignUp(ctx context.Context, payload models.SignUpPayload) (*SignInResult, error)

	// SignOut clears persisted and in-memory session state.
	// Idempotent, never fails.
	SignOut()

	// UpdateUser sends a partial profile update. The server's returned
	// representation replaces the local user wholesale; on error the
	// local user is left untouched.
	UpdateUser(ctx context.Context, partial *models.User) (*models.User, error)

	// RefreshToken asks for a fresh access token. An empty return with
	// nil error means the server issued none; session state is
	// unchanged in that case.
	RefreshToken(ctx context.Context) (string, error)

	// Restore attempts to revive a persisted session. Returns whether
	// the service ended up authenticated. A missing or invalid
	// persisted token is the anonymous-visitor path: no error, no
	// callback, no network call.
	Restore(ctx context.Context) bool

	IsAuthenticated() bool
	IsLoading() bool
	User() *models.User
	AccessToken() string
}
