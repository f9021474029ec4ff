// Package session binds opaque tokens to an identity snapshot taken at login.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sinzn/dbDrive/internal/domain"
)

// Session is an authenticated login. It stores a copy of the user's identity
// and role, not a reference to the user row.
type Session struct {
	Token     string      `json:"-"`
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (s Session) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		UserID:   s.UserID,
		Username: s.Username,
		Role:     s.Role,
	}
}

// Store persists sessions. Get returns domain.ErrUnauthenticated for unknown,
// expired or revoked tokens. Delete is idempotent.
type Store interface {
	Create(ctx context.Context, s Session) (token string, err error)
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// Purger is implemented by stores that hold expired entries in process memory.
type Purger interface {
	PurgeExpired(ctx context.Context) int
}

// GenerateID generates a cryptographically secure session ID.
// 32 bytes = 256 bits of entropy.
func GenerateID() (string, error) {
	const size = 32

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
