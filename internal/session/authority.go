package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sinzn/dbDrive/internal/domain"
)

const DefaultTTL = 24 * time.Hour

// Authority creates, resolves and destroys sessions on top of a Store.
type Authority struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewAuthority(store Store, ttl time.Duration) *Authority {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Authority{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (a *Authority) TTL() time.Duration {
	return a.ttl
}

// Store exposes the backing store, e.g. for purging expired entries.
func (a *Authority) Store() Store {
	return a.store
}

// CreateSession binds a fresh token to the user's identity and role.
func (a *Authority) CreateSession(ctx context.Context, user domain.User) (Session, error) {
	if user.ID <= 0 || user.Username == "" {
		return Session{}, fmt.Errorf("create session: %w: incomplete user", domain.ErrInvalidInput)
	}
	now := a.now().UTC()
	s := Session{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}
	if s.Role == "" {
		s.Role = domain.RoleUser
	}

	token, err := a.store.Create(ctx, s)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w: %w", domain.ErrStoreUnavailable, err)
	}
	s.Token = token
	return s, nil
}

// DestroySession invalidates the token. Unknown tokens are ignored.
func (a *Authority) DestroySession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := a.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("destroy session: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// CurrentUser resolves the snapshot bound to token.
func (a *Authority) CurrentUser(ctx context.Context, token string) (domain.Snapshot, error) {
	if token == "" {
		return domain.Snapshot{}, domain.ErrUnauthenticated
	}
	s, err := a.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return domain.Snapshot{}, err
		}
		return domain.Snapshot{}, fmt.Errorf("resolve session: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if !a.now().Before(s.ExpiresAt) {
		_ = a.store.Delete(ctx, token)
		return domain.Snapshot{}, domain.ErrUnauthenticated
	}
	return s.Snapshot(), nil
}
