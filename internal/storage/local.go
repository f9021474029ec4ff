package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sinzn/dbDrive/internal/domain"
)

const tempPrefix = ".upload-"

// LocalService keeps blobs on the local filesystem, one directory per owner.
type LocalService struct {
	root string
}

func NewLocalService(root string) (*LocalService, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalService{root: filepath.Clean(root)}, nil
}

func (s *LocalService) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put writes to a temp file in the destination directory and renames it into
// place, so a partially written blob is never visible under its key.
func (s *LocalService) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dst, err := s.path(key)
	if err != nil {
		return 0, err
	}
	tmp, err := createTemp(filepath.Dir(dst))
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("write blob %s: %w", key, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("close blob %s: %w", key, closeErr)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("commit blob %s: %w", key, err)
	}
	return n, nil
}

// createTemp opens a temp file in dir, creating dir when it is missing. An
// empty owner directory may be pruned by a concurrent Delete at any point, so
// ENOENT is retried a few times.
func createTemp(dir string) (*os.File, error) {
	const attempts = 3

	var err error
	for i := 0; i < attempts; i++ {
		var tmp *os.File
		tmp, err = os.CreateTemp(dir, tempPrefix+"*")
		if err == nil {
			return tmp, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			break
		}
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("create blob dir: %w", mkErr)
		}
	}
	return nil, fmt.Errorf("create temp blob: %w", err)
}

func (s *LocalService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalService) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		return fmt.Errorf("remove blob %s: %w", key, err)
	}
	// drop the owner directory once it is empty; failure just means other blobs remain
	if dir := filepath.Dir(p); dir != s.root {
		_ = os.Remove(dir)
	}
	return nil
}

// List walks the whole tree. Leftover temp files from interrupted uploads are
// reported too, so the sweeper can reclaim them.
func (s *LocalService) List(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		objects = append(objects, ObjectInfo{
			Key:          filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	return objects, nil
}

var _ Service = (*LocalService)(nil)
