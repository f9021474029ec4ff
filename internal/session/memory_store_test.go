package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinzn/dbDrive/internal/domain"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	token, err := store.Create(ctx, Session{
		UserID:    1,
		Username:  "alice",
		Role:      domain.RoleUser,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, token, got.Token)

	require.NoError(t, store.Delete(ctx, token))
	require.NoError(t, store.Delete(ctx, token))

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestMemoryStoreTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := Session{UserID: 1, Username: "alice", ExpiresAt: time.Now().Add(time.Hour)}

	a, err := store.Create(ctx, s)
	require.NoError(t, err)
	b, err := store.Create(ctx, s)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	live, err := store.Create(ctx, Session{UserID: 1, Username: "a", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = store.Create(ctx, Session{UserID: 2, Username: "b", ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.PurgeExpired(ctx))
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, live)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = store.Get(ctx, live)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreRejectsMissingUser(t *testing.T) {
	_, err := NewMemoryStore().Create(context.Background(), Session{ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err)
}
