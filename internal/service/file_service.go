package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sinzn/dbDrive/internal/domain"
	"github.com/sinzn/dbDrive/internal/metrics"
	"github.com/sinzn/dbDrive/internal/repository"
	"github.com/sinzn/dbDrive/internal/storage"
)

const (
	fallbackFileName   = "file"
	maxDisplayNameLen  = 255
	maxStoredSuffixLen = 100
	defaultContentType = "application/octet-stream"

	// staleUploadAge is the minimum age of a leftover temp file before
	// Reconcile treats it as abandoned.
	staleUploadAge = 24 * time.Hour
)

// FileService manages uploaded files, keeping blobs and metadata in step.
type FileService interface {
	Upload(ctx context.Context, owner domain.Snapshot, r io.Reader, originalName, contentType string) (*domain.FileRecord, error)
	List(ctx context.Context, owner domain.Snapshot) ([]domain.FileRecord, error)
	ListAll(ctx context.Context) ([]domain.FileRecord, error)
	Open(ctx context.Context, owner domain.Snapshot, id int64) (*domain.FileRecord, io.ReadCloser, error)
	AdminOpen(ctx context.Context, id int64) (*domain.FileRecord, io.ReadCloser, error)
	Delete(ctx context.Context, owner domain.Snapshot, id int64) error
	AdminDelete(ctx context.Context, id int64) error
	Reconcile(ctx context.Context, grace time.Duration) (ReconcileReport, error)
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	OrphanBlobs     int
	DanglingRecords int
	Errors          []error
}

type fileService struct {
	files   repository.FileRepository
	blobs   storage.Service
	logger  logrus.FieldLogger
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewFileService(files repository.FileRepository, blobs storage.Service, logger logrus.FieldLogger, rec *metrics.Recorder) FileService {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &fileService{
		files:   files,
		blobs:   blobs,
		logger:  logger,
		metrics: rec,
		now:     time.Now,
	}
}

func (s *fileService) Upload(ctx context.Context, owner domain.Snapshot, r io.Reader, originalName, contentType string) (*domain.FileRecord, error) {
	if owner.UserID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	if r == nil {
		return nil, fmt.Errorf("%w: no file content", domain.ErrInvalidInput)
	}

	name := sanitizeFileName(originalName)
	now := s.now().UTC()
	storedName := fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString(), storedSuffix(name))
	key := storage.UserKey(owner.UserID, storedName)

	size, err := s.blobs.Put(ctx, key, r)
	if err != nil {
		return nil, storeErr("store blob", err)
	}

	record := &domain.FileRecord{
		UserID:        owner.UserID,
		StoredName:    storedName,
		OriginalName:  name,
		Size:          size,
		ContentType:   detectContentType(name, contentType),
		UploadedAt:    now,
		OwnerUsername: owner.Username,
	}
	if _, err := s.files.Create(ctx, record); err != nil {
		s.logger.WithFields(logrus.Fields{
			"op":      "upload",
			"user_id": owner.UserID,
			"key":     key,
			"error":   err,
		}).Warn("metadata insert failed, blob left for the sweeper")
		return nil, storeErr("record file", err)
	}

	s.metrics.RecordUpload(size)
	s.logger.WithFields(logrus.Fields{
		"op":      "upload",
		"user_id": owner.UserID,
		"file_id": record.ID,
		"size":    size,
	}).Info("file stored")
	return record, nil
}

func (s *fileService) List(ctx context.Context, owner domain.Snapshot) ([]domain.FileRecord, error) {
	if owner.UserID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	records, err := s.files.ListByUser(ctx, owner.UserID)
	if err != nil {
		return nil, storeErr("list files", err)
	}
	return records, nil
}

func (s *fileService) ListAll(ctx context.Context) ([]domain.FileRecord, error) {
	records, err := s.files.ListAll(ctx)
	if err != nil {
		return nil, storeErr("list all files", err)
	}
	return records, nil
}

func (s *fileService) Open(ctx context.Context, owner domain.Snapshot, id int64) (*domain.FileRecord, io.ReadCloser, error) {
	record, err := s.ownedRecord(ctx, owner, id)
	if err != nil {
		return nil, nil, err
	}
	return s.open(ctx, record)
}

func (s *fileService) AdminOpen(ctx context.Context, id int64) (*domain.FileRecord, io.ReadCloser, error) {
	record, err := s.record(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.open(ctx, record)
}

func (s *fileService) Delete(ctx context.Context, owner domain.Snapshot, id int64) error {
	record, err := s.ownedRecord(ctx, owner, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, record, metrics.ScopeOwner)
}

func (s *fileService) AdminDelete(ctx context.Context, id int64) error {
	record, err := s.record(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, record, metrics.ScopeAdmin)
}

// Reconcile removes blobs that have no record and are older than grace, and
// records whose blob is gone. Temp files of in-flight uploads are kept for at
// least staleUploadAge. Records are listed before blobs so an upload
// racing the pass shows up as a young orphan blob, never as a dangling record.
func (s *fileService) Reconcile(ctx context.Context, grace time.Duration) (ReconcileReport, error) {
	var report ReconcileReport

	records, err := s.files.ListAll(ctx)
	if err != nil {
		return report, storeErr("list records", err)
	}
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return report, storeErr("list blobs", err)
	}

	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		known[storage.UserKey(rec.UserID, rec.StoredName)] = struct{}{}
	}
	present := make(map[string]struct{}, len(blobs))
	now := s.now()
	cutoff := now.Add(-grace)
	tempCutoff := now.Add(-max(grace, staleUploadAge))

	for _, blob := range blobs {
		present[blob.Key] = struct{}{}
		if _, ok := known[blob.Key]; ok {
			continue
		}
		if blob.LastModified.After(cutoff) {
			continue
		}
		// a temp file may belong to a slow upload that is still streaming
		if storage.IsTempKey(blob.Key) && blob.LastModified.After(tempCutoff) {
			continue
		}
		if err := s.blobs.Delete(ctx, blob.Key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			report.Errors = append(report.Errors, fmt.Errorf("delete orphan blob %s: %w", blob.Key, err))
			continue
		}
		report.OrphanBlobs++
		s.logger.WithFields(logrus.Fields{"op": "reconcile", "key": blob.Key}).Info("removed orphan blob")
	}

	for _, rec := range records {
		if _, ok := present[storage.UserKey(rec.UserID, rec.StoredName)]; ok {
			continue
		}
		if err := s.files.Delete(ctx, rec.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			report.Errors = append(report.Errors, fmt.Errorf("delete dangling record %d: %w", rec.ID, err))
			continue
		}
		report.DanglingRecords++
		s.logger.WithFields(logrus.Fields{
			"op":      "reconcile",
			"file_id": rec.ID,
			"user_id": rec.UserID,
		}).Info("removed record without blob")
	}

	s.metrics.RecordSweep(metrics.SweepOrphanBlob, report.OrphanBlobs)
	s.metrics.RecordSweep(metrics.SweepDanglingRecord, report.DanglingRecords)
	return report, nil
}

func (s *fileService) record(ctx context.Context, id int64) (*domain.FileRecord, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}
	record, err := s.files.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get file", err)
	}
	return record, nil
}

func (s *fileService) ownedRecord(ctx context.Context, owner domain.Snapshot, id int64) (*domain.FileRecord, error) {
	if owner.UserID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	record, err := s.record(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.UserID != owner.UserID {
		s.logger.WithFields(logrus.Fields{
			"user_id": owner.UserID,
			"file_id": id,
		}).Warn("access to foreign file denied")
		return nil, domain.ErrForbidden
	}
	return record, nil
}

func (s *fileService) open(ctx context.Context, record *domain.FileRecord) (*domain.FileRecord, io.ReadCloser, error) {
	rc, err := s.blobs.Open(ctx, storage.UserKey(record.UserID, record.StoredName))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.WithFields(logrus.Fields{"op": "download", "file_id": record.ID}).Warn("record has no blob")
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, storeErr("open blob", err)
	}
	s.metrics.RecordDownload()
	return record, rc, nil
}

// remove deletes the blob first and drops the record only once the blob is
// confirmed gone. A blob that is already missing counts as removed.
func (s *fileService) remove(ctx context.Context, record *domain.FileRecord, scope string) error {
	fields := logrus.Fields{
		"op":      "delete",
		"scope":   scope,
		"file_id": record.ID,
		"user_id": record.UserID,
	}

	key := storage.UserKey(record.UserID, record.StoredName)
	if err := s.blobs.Delete(ctx, key); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithFields(fields).WithError(err).Error("blob removal failed, keeping record")
			return storeErr("delete blob", err)
		}
		s.logger.WithFields(fields).Warn("blob already missing")
	}

	// ErrNotFound here means a reconciliation pass dropped the record after
	// the blob went away, so the delete still completed.
	if err := s.files.Delete(ctx, record.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return storeErr("delete record", err)
	}

	s.metrics.RecordDelete(scope)
	s.logger.WithFields(fields).Info("file deleted")
	return nil
}

// sanitizeFileName reduces a client supplied name to a display-safe base name.
func sanitizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return fallbackFileName
	}
	if runes := []rune(name); len(runes) > maxDisplayNameLen {
		name = string(runes[:maxDisplayNameLen])
	}
	return name
}

// storedSuffix keeps only portable characters of the display name.
func storedSuffix(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxStoredSuffixLen {
			break
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return fallbackFileName
	}
	return out
}

func detectContentType(name, provided string) string {
	if mt, _, err := mime.ParseMediaType(provided); err == nil && mt != "" {
		return provided
	}
	if byExt := mime.TypeByExtension(path.Ext(name)); byExt != "" {
		return byExt
	}
	return defaultContentType
}
