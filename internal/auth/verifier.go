package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that are missing, malformed,
// expired, or signed with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// Verifier validates HS256 bearer tokens issued by the auth service and
// extracts the user identity. No session state is kept here; every request
// is verified independently.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// UserID verifies tokenString and returns the authenticated user's ID
// (the token subject). Any verification failure reports ErrInvalidToken.
func (v *Verifier) UserID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
