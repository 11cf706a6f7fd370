package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key any, c jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestVerify_ValidToken(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, testSecret, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "ops@example.com",
		Role:  "admin",
	})

	p, err := NewJWTVerifier(testSecret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.Subject)
	assert.Equal(t, "ops@example.com", p.Email)
	assert.Equal(t, "admin", p.Role)
}

func TestVerify_WrongSecret(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte("other-secret"), claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := NewJWTVerifier(testSecret).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, testSecret, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := NewJWTVerifier(testSecret).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsUnsignedToken(t *testing.T) {
	token := signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1",
		},
	})

	_, err := NewJWTVerifier(testSecret).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewJWTVerifier(testSecret).Verify("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
