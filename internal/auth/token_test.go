package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endritk/taskboard/internal/auth"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)

	tok, err := tokens.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.NotEmpty(t, claims.ID, "every token carries a jti")
}

func TestVerifyMalformed(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tokens.Verify(tok)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := auth.NewTokens("correct-secret", time.Hour)
	verifier := auth.NewTokens("wrong-secret", time.Hour)

	tok, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Millisecond)

	tok, err := tokens.Issue("user-123")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = tokens.Verify(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyWrongIssuer(t *testing.T) {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: "user-123",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tokens := auth.NewTokens("test-secret", time.Hour)
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyMissingUserID(t *testing.T) {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskboard",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tokens := auth.NewTokens("test-secret", time.Hour)
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
