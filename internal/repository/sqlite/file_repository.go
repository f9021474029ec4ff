package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sinzn/dbDrive/internal/domain"
	"github.com/sinzn/dbDrive/internal/repository"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) repository.FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.FileRecord) (int64, error) {
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO files (user_id, stored_name, original_name, size, content_type, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		file.UserID,
		file.StoredName,
		file.OriginalName,
		file.Size,
		file.ContentType,
		file.UploadedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("file last insert id: %w", err)
	}
	file.ID = id
	return id, nil
}

func (r *FileRepository) Get(ctx context.Context, id int64) (*domain.FileRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT f.id, f.user_id, f.stored_name, f.original_name, f.size, f.content_type, f.uploaded_at, u.username
FROM files f
JOIN users u ON u.id = f.user_id
WHERE f.id = ?`,
		id,
	)
	return scanFile(row)
}

func (r *FileRepository) ListByUser(ctx context.Context, userID int64) ([]domain.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT f.id, f.user_id, f.stored_name, f.original_name, f.size, f.content_type, f.uploaded_at, u.username
FROM files f
JOIN users u ON u.id = f.user_id
WHERE f.user_id = ?
ORDER BY f.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	return collectFiles(rows)
}

func (r *FileRepository) ListAll(ctx context.Context) ([]domain.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT f.id, f.user_id, f.stored_name, f.original_name, f.size, f.content_type, f.uploaded_at, u.username
FROM files f
JOIN users u ON u.id = f.user_id
ORDER BY f.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query all files: %w", err)
	}
	return collectFiles(rows)
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("file delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("file %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func collectFiles(rows *sql.Rows) ([]domain.FileRecord, error) {
	defer rows.Close()

	files := []domain.FileRecord{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*domain.FileRecord, error) {
	var file domain.FileRecord
	if err := scanner.Scan(
		&file.ID,
		&file.UserID,
		&file.StoredName,
		&file.OriginalName,
		&file.Size,
		&file.ContentType,
		&file.UploadedAt,
		&file.OwnerUsername,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return &file, nil
}
