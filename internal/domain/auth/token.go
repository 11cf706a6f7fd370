// Package auth declares the token verification collaborator guarding
// mutating endpoints. Identity management itself lives outside this service.
package auth

import (
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	Subject string
	Email   string
	Role    string
}

// Verifier authenticates a bearer token and returns the caller's principal.
type Verifier interface {
	Verify(token string) (Principal, error)
}

// JWTVerifier verifies HMAC-signed JWTs issued by the identity provider.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for tokens signed with the given secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verify parses and validates the token signature and expiry, restricted to
// HMAC signing methods.
func (v *JWTVerifier) Verify(token string) (Principal, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		Subject: c.Subject,
		Email:   c.Email,
		Role:    c.Role,
	}, nil
}
