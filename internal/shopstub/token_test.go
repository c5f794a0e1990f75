package shopstub

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-sync/internal/shopstub/store"
)

func tokenTestUser() *store.User {
	return &store.User{ID: "user-456", Email: "ada@example.com", Role: "customer"}
}

func TestTokenService_IssuePair_RoundTrip(t *testing.T) {
	service := NewTokenService("test-secret-key-for-testing-purposes", 15*time.Minute, 7*24*time.Hour)

	pair, err := service.IssuePair(tokenTestUser())
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)
	assert.True(t, pair.ExpiresAt.After(time.Now()))
	assert.True(t, pair.ExpiresAt.Before(time.Now().Add(16*time.Minute)))

	claims, err := service.ValidateAccessToken(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "user-456", claims.Subject)

	userID, err := service.ValidateRefreshToken(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-456", userID)
}

func TestTokenService_ValidateAccessToken_Rejects(t *testing.T) {
	service := NewTokenService("test-secret-key-for-testing-purposes", 15*time.Minute, 7*24*time.Hour)

	otherSecret, err := NewTokenService("a-completely-different-secret-key", 15*time.Minute, 7*24*time.Hour).IssuePair(tokenTestUser())
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-456"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"not a jwt", "not-a-valid-token"},
		{"truncated signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
		{"wrong secret", otherSecret.Access},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestTokenService_ExpiredTokensAreDistinguished(t *testing.T) {
	// Negative expiries issue tokens that are already expired.
	service := NewTokenService("test-secret-key-for-testing-purposes", -time.Minute, -time.Minute)

	pair, err := service.IssuePair(tokenTestUser())
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(pair.Access)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)

	userID, err := service.ValidateRefreshToken(pair.Refresh)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Empty(t, userID)
}

// A refresh token parses as an access token (same key, same algorithm) but
// carries no profile claims; withIdentity would resolve it to an empty user.
func TestTokenService_RefreshTokenCarriesNoProfile(t *testing.T) {
	service := NewTokenService("test-secret-key-for-testing-purposes", 15*time.Minute, 7*24*time.Hour)

	pair, err := service.IssuePair(tokenTestUser())
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(pair.Refresh)
	require.NoError(t, err)
	assert.Empty(t, claims.UserID)
	assert.Empty(t, claims.Email)
	assert.Equal(t, "user-456", claims.Subject)
}
