package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sinzn/dbDrive/internal/domain"
	"github.com/sinzn/dbDrive/internal/repository"
	"github.com/sinzn/dbDrive/internal/repository/sqlite"
	"github.com/sinzn/dbDrive/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "dbdrive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db, nil))
	return db
}

func newTestUserService(t *testing.T, opts UserOptions) (UserService, repository.UserRepository) {
	t.Helper()
	repo := sqlite.NewUserRepository(openTestDB(t))
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}
	return NewUserService(repo, opts), repo
}

type fileFixture struct {
	svc   FileService
	files repository.FileRepository
	users repository.UserRepository
	blobs *storage.LocalService
	root  string
}

func newFileFixture(t *testing.T) *fileFixture {
	t.Helper()
	db := openTestDB(t)
	root := filepath.Join(t.TempDir(), "blobs")
	blobs, err := storage.NewLocalService(root)
	require.NoError(t, err)

	files := sqlite.NewFileRepository(db)
	return &fileFixture{
		svc:   NewFileService(files, blobs, nil, nil),
		files: files,
		users: sqlite.NewUserRepository(db),
		blobs: blobs,
		root:  root,
	}
}

func (f *fileFixture) user(t *testing.T, name string) domain.Snapshot {
	t.Helper()
	u := &domain.User{Username: name, PasswordHash: "x", Role: domain.RoleUser}
	_, err := f.users.Create(context.Background(), u)
	require.NoError(t, err)
	return u.Snapshot()
}

func (f *fileFixture) upload(t *testing.T, owner domain.Snapshot, name, body string) *domain.FileRecord {
	t.Helper()
	rec, err := f.svc.Upload(context.Background(), owner, strings.NewReader(body), name, "text/plain")
	require.NoError(t, err)
	return rec
}

func (f *fileFixture) blobPath(rec *domain.FileRecord) string {
	return filepath.Join(f.root, strconv.FormatInt(rec.UserID, 10), rec.StoredName)
}
