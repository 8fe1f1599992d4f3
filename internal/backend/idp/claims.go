package idp

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authgate-dev/authgate/internal/models"
)

// userFromIDToken builds the normalized user from identity-token
// claims: sub becomes the uid, name and email fill the profile. The
// role is the configured default because the provider's sign-in flow
// carries no role claim.
func userFromIDToken(idToken, defaultRole string) (*models.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse identity token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("identity token has no subject claim")
	}

	return &models.User{
		UID:  sub,
		Role: defaultRole,
		Data: models.UserData{
			DisplayName: stringClaim(claims, "name"),
			Email:       stringClaim(claims, "email"),
			Shortcuts:   []models.Shortcut{},
			Settings:    map[string]any{},
		},
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
