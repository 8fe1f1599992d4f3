package jwtauth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenLooksValid(t *testing.T) {
	sign := func(claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		return token
	}

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{
			name:  "future expiry",
			token: sign(jwt.MapClaims{"exp": jwt.NewNumericDate(time.Now().Add(time.Hour))}),
			want:  true,
		},
		{
			name:  "past expiry",
			token: sign(jwt.MapClaims{"exp": jwt.NewNumericDate(time.Now().Add(-time.Hour))}),
			want:  false,
		},
		{
			name:  "no expiry claim",
			token: sign(jwt.MapClaims{"sub": "1"}),
			want:  true,
		},
		{
			name:  "not a token",
			token: "garbage",
			want:  false,
		},
		{
			name:  "empty",
			token: "",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenLooksValid(tt.token); got != tt.want {
				t.Errorf("TokenLooksValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
