package repository

import (
	"context"

	"github.com/sinzn/dbDrive/internal/domain"
)

// FileRepository manages file metadata rows.
type FileRepository interface {
	Create(ctx context.Context, file *domain.FileRecord) (int64, error)
	Get(ctx context.Context, id int64) (*domain.FileRecord, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.FileRecord, error)
	// ListAll returns every record with OwnerUsername populated.
	ListAll(ctx context.Context) ([]domain.FileRecord, error)
	Delete(ctx context.Context, id int64) error
}
