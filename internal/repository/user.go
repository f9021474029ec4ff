package repository

import (
	"context"

	"github.com/sinzn/dbDrive/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Lookups of missing users return domain.ErrNotFound; inserting an existing
// username returns domain.ErrDuplicateUser.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
