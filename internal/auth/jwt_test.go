package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret-0123456789"

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	userID := primitive.NewObjectID()

	signed, err := tokens.GenerateToken(userID)
	require.NoError(t, err)

	got, err := tokens.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestValidateTokenRejects(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	userID := primitive.NewObjectID()

	expired := NewTokens(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.GenerateToken(userID)
	require.NoError(t, err)

	otherKey, err := NewTokens("another-secret-abcdefgh", time.Hour).GenerateToken(userID)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":     "not-a-token",
		"expired":     expiredToken,
		"wrong key":   otherKey,
		"alg none":    noneToken,
		"bad subject": badSubject,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.ValidateToken(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
