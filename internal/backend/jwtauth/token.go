package jwtauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLooksValid performs the client-side structural check used before
// replaying a persisted token: it must parse as a JWT and, when an exp
// claim is present, must not be expired. Signature verification is the
// server's job; the point here is only to skip a round trip for tokens
// that cannot possibly work.
func TokenLooksValid(token string) bool {
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		// No expiry claim; let the server decide.
		return true
	}
	return exp.After(time.Now())
}
