package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sinzn/dbDrive/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db, nil))
	return db
}

func createUser(t *testing.T, repo *UserRepository, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, PasswordHash: "hash-" + username}
	_, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	return user
}
