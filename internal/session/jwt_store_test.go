package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinzn/dbDrive/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewJWTStore(testSecret)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	token, err := store.Create(ctx, Session{
		UserID:    9,
		Username:  "carol",
		Role:      domain.RoleAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.UserID)
	assert.Equal(t, "carol", got.Username)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestJWTStoreRevocation(t *testing.T) {
	ctx := context.Background()
	store, err := NewJWTStore(testSecret)
	require.NoError(t, err)

	token, err := store.Create(ctx, Session{UserID: 1, Username: "a", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	assert.NoError(t, store.Delete(ctx, "not-a-token"))
}

func TestJWTStoreRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	issuer, err := NewJWTStore("another-secret-of-enough-length")
	require.NoError(t, err)
	store, err := NewJWTStore(testSecret)
	require.NoError(t, err)

	token, err := issuer.Create(ctx, Session{UserID: 1, Username: "a", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestJWTStoreExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	store, err := NewJWTStore(testSecret)
	require.NoError(t, err)

	now := time.Now()
	store.now = func() time.Time { return now }

	token, err := store.Create(ctx, Session{UserID: 1, Username: "a", ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, token))
	assert.Equal(t, 0, store.PurgeExpired(ctx))

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, 1, store.PurgeExpired(ctx))
}

func TestNewJWTStoreRequiresSecret(t *testing.T) {
	_, err := NewJWTStore("short")
	assert.Error(t, err)
}
