package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinzn/dbDrive/internal/domain"
)

func TestRegisterHashesPassword(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestUserService(t, UserOptions{})

	user, err := svc.Register(ctx, "  alice ", "pw1", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash)

	stored, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, UserOptions{})

	_, err := svc.Register(ctx, "alice", "pw1", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other", "")
	assert.ErrorIs(t, err, domain.ErrDuplicateUser)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, UserOptions{MinPasswordLength: 4})

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "   ", "secret"},
		{"long username", strings.Repeat("a", 65), "secret"},
		{"control char", "bad\x00name", "secret"},
		{"short password", "bob", "abc"},
		{"long password", "bob", strings.Repeat("p", 73)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.password, "")
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRegisterRoleSelection(t *testing.T) {
	ctx := context.Background()

	locked, _ := newTestUserService(t, UserOptions{})
	user, err := locked.Register(ctx, "mallory", "pw1", "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)

	open, _ := newTestUserService(t, UserOptions{AllowRoleSelection: true})
	admin, err := open.Register(ctx, "root", "pw1", "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	_, err = open.Register(ctx, "eve", "pw1", "superuser")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVerifyCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, UserOptions{})

	registered, err := svc.Register(ctx, "alice", "pw1", "")
	require.NoError(t, err)

	user, err := svc.VerifyCredentials(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, wrongPassword := svc.VerifyCredentials(ctx, "alice", "nope")
	_, unknownUser := svc.VerifyCredentials(ctx, "nobody", "pw1")
	_, empty := svc.VerifyCredentials(ctx, "", "")
	for _, err := range []error{wrongPassword, unknownUser, empty} {
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, UserOptions{})

	registered, err := svc.Register(ctx, "alice", "pw1", "")
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, UserOptions{})

	admin, created, err := svc.EnsureAdmin(ctx, "admin", "changeme")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	again, created, err := svc.EnsureAdmin(ctx, "admin", "changeme")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	_, err = svc.Register(ctx, "alice", "pw1", "")
	require.NoError(t, err)
	_, _, err = svc.EnsureAdmin(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, domain.ErrDuplicateUser)
}

type brokenUserRepo struct{ err error }

func (b brokenUserRepo) Create(context.Context, *domain.User) (int64, error) { return 0, b.err }
func (b brokenUserRepo) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, b.err
}
func (b brokenUserRepo) GetByID(context.Context, int64) (*domain.User, error) { return nil, b.err }

func TestUserServiceStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("database is locked")
	svc := NewUserService(brokenUserRepo{err: boom}, UserOptions{})

	_, err := svc.Register(ctx, "alice", "pw1", "")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = svc.VerifyCredentials(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.GetByID(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
