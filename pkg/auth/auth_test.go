package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	v, err := NewJWTValidator(JWTConfig{SecretKey: "s3cret", Issuer: "recipegraph"})
	require.NoError(t, err)

	token, err := v.IssueToken("alice", RoleAdmin)
	require.NoError(t, err)

	claims, err := v.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.True(t, claims.HasRole(RoleAdmin))
	assert.False(t, claims.HasRole("editor"))
}

func TestJWTRejections(t *testing.T) {
	v, err := NewJWTValidator(JWTConfig{SecretKey: "s3cret", Issuer: "recipegraph", TTL: time.Minute})
	require.NoError(t, err)

	other, err := NewJWTValidator(JWTConfig{SecretKey: "different", Issuer: "recipegraph"})
	require.NoError(t, err)
	forged, err := other.IssueToken("mallory")
	require.NoError(t, err)

	foreign, err := NewJWTValidator(JWTConfig{SecretKey: "s3cret", Issuer: "elsewhere"})
	require.NoError(t, err)
	wrongIssuer, err := foreign.IssueToken("bob")
	require.NoError(t, err)

	expiredIssuer, err := NewJWTValidator(JWTConfig{SecretKey: "s3cret", Issuer: "recipegraph", TTL: time.Minute})
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredIssuer.IssueToken("carol")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "  ", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"bad signature", forged, ErrInvalidSignature},
		{"wrong issuer", wrongIssuer, ErrInvalidClaims},
		{"expired", expired, ErrExpiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewJWTValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestKeyedLimiterPerKeyBuckets(t *testing.T) {
	l := NewKeyedLimiter(1, 2)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok, "burst exhausted")

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "other key has its own bucket")

	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "refilled")

	require.NoError(t, l.Reset(ctx, "10.0.0.1"))
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
}

func TestKeyedLimiterDisabledAndCleanup(t *testing.T) {
	l := NewKeyedLimiter(0, 0)
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		ok, _ := l.Allow(context.Background(), "k")
		require.True(t, ok)
	}
	_, _ = l.Allow(context.Background(), "other")

	now = now.Add(time.Hour)
	assert.Equal(t, 2, l.Cleanup())
	assert.Equal(t, 0, l.Cleanup())
}
