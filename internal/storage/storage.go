package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Service stores raw blob bytes addressed by slash separated keys.
// Missing blobs are reported with domain.ErrNotFound.
type Service interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]ObjectInfo, error)
}

// UserKey scopes a stored name under its owner's id.
func UserKey(userID int64, storedName string) string {
	return path.Join(strconv.FormatInt(userID, 10), storedName)
}

// validateKey rejects keys that could escape the storage root.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid key %q", key)
		}
	}
	return nil
}

// IsTempKey reports whether key names a partially written local upload.
func IsTempKey(key string) bool {
	return strings.HasPrefix(path.Base(key), tempPrefix)
}
