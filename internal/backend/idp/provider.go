package idp

import (
	"context"

	"github.com/authgate-dev/authgate/internal/httpclient"
)

// Challenge names used by the provider's handshake protocol.
const (
	challengeNewPasswordRequired = "NEW_PASSWORD_REQUIRED"
	challengeMFARequired         = "MFA_REQUIRED"
)

// Attribute keys the provider refuses to accept back when answering a
// challenge.
const (
	attrEmailVerified = "email_verified"
	attrEmail         = "email"
)

// handshakeResponse is the provider's answer to both the initiate and
// the challenge-response calls. Exactly one of IDToken / Challenge is
// populated on success.
type handshakeResponse struct {
	IDToken string `json:"id_token"`

	Challenge          string            `json:"challenge,omitempty"`
	Session            string            `json:"session,omitempty"`
	UserAttributes     map[string]string `json:"user_attributes,omitempty"`
	RequiredAttributes []string          `json:"required_attributes,omitempty"`
	CodeDelivery       map[string]string `json:"code_delivery,omitempty"`
}

type initiateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type challengeRequest struct {
	Session        string            `json:"session"`
	Username       string            `json:"username"`
	NewPassword    string            `json:"new_password"`
	UserAttributes map[string]string `json:"user_attributes,omitempty"`
}

// providerClient speaks the hosted provider's challenge-response
// protocol. It rides the service's HTTP client so handshake calls and
// profile calls share one bearer/interceptor scope.
type providerClient struct {
	client       *httpclient.Client
	initiateURL  string
	challengeURL string
}

// initiate starts the authentication handshake with username+password.
func (p *providerClient) initiate(ctx context.Context, username, password string) (*handshakeResponse, error) {
	var resp handshakeResponse
	err := p.client.Post(ctx, p.initiateURL, initiateRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// respondNewPassword answers a NEW_PASSWORD_REQUIRED challenge.
func (p *providerClient) respondNewPassword(ctx context.Context, session, username, newPassword string, attrs map[string]string) (*handshakeResponse, error) {
	var resp handshakeResponse
	err := p.client.Post(ctx, p.challengeURL, challengeRequest{
		Session:        session,
		Username:       username,
		NewPassword:    newPassword,
		UserAttributes: attrs,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// stripAttrs returns a copy of attrs with the given keys removed.
func stripAttrs(attrs map[string]string, keys ...string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
