package domain

import "time"

// FileRecord describes one uploaded blob and its owner.
type FileRecord struct {
	ID           int64
	UserID       int64
	StoredName   string
	OriginalName string
	Size         int64
	ContentType  string
	UploadedAt   time.Time

	// OwnerUsername is only populated by listings that join the users table.
	OwnerUsername string
}
