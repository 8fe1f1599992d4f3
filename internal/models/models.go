package models

// BackendID identifies which authentication backend issued a session.
type BackendID string

const (
	// BackendJWT is the token-based backend talking to the generic
	// sign-in/sign-up HTTP endpoints.
	BackendJWT BackendID = "jwt"
	// BackendIdentityProvider is the hosted identity-provider backend.
	// The persisted value is fixed by the stored-session contract.
	BackendIdentityProvider BackendID = "cognito"
)

// Valid reports whether id is one of the known backends.
func (id BackendID) Valid() bool {
	return id == BackendJWT || id == BackendIdentityProvider
}

// Shortcut is a user-pinned navigation entry.
type Shortcut struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// UserData holds the profile payload attached to a user.
type UserData struct {
	DisplayName string         `json:"displayName"`
	Email       string         `json:"email"`
	Shortcuts   []Shortcut     `json:"shortcuts,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

// User is the normalized user model shared by both backends.
// It is replaced wholesale on sign-in and profile update, never merged.
type User struct {
	UID  string   `json:"uid"`
	Role string   `json:"role"`
	Data UserData `json:"data"`
}

// Clone returns a deep copy so callers can hand users across goroutines
// without sharing the shortcut slice or settings map.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Data.Shortcuts != nil {
		cp.Data.Shortcuts = make([]Shortcut, len(u.Data.Shortcuts))
		copy(cp.Data.Shortcuts, u.Data.Shortcuts)
	}
	if u.Data.Settings != nil {
		cp.Data.Settings = make(map[string]any, len(u.Data.Settings))
		for k, v := range u.Data.Settings {
			cp.Data.Settings[k] = v
		}
	}
	return &cp
}

// Session is the persisted session state. BackendID and AccessToken are
// either both set or both empty: a token without a known issuer backend
// is unusable and never stored.
type Session struct {
	BackendID   BackendID `json:"backendId,omitempty"`
	AccessToken string    `json:"accessToken,omitempty"`
}

// IsZero reports whether no session is recorded.
func (s Session) IsZero() bool {
	return s.BackendID == "" && s.AccessToken == ""
}

// SignInPayload carries interactive sign-in credentials.
type SignInPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpPayload carries registration data.
type SignUpPayload struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// AuthState is the derived authentication snapshot exposed to the UI
// layer. IsLoading stays true until every backend has settled its
// startup restoration attempt.
type AuthState struct {
	IsAuthenticated bool `json:"isAuthenticated"`
	IsLoading       bool `json:"isLoading"`
}
