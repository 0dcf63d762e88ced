package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"recordapi/internal/logging"
	"recordapi/internal/model"
	"recordapi/internal/repository"
	"recordapi/internal/storage"
)

var (
	ErrFileRequired     = errors.New("no file uploaded")
	ErrInvalidMediaType = errors.New("only audio files are allowed")
	ErrTooLarge         = errors.New("file too large")
	ErrNotFound         = errors.New("recording not found")
)

var tracer = otel.Tracer("recordapi/internal/service")

// Outcome describes how far a two-step file+row operation got.
type Outcome int

const (
	// OutcomeCommitted means both steps succeeded.
	OutcomeCommitted Outcome = iota + 1
	// OutcomeCompensated means the row step failed and the file written by the
	// first step was removed again.
	OutcomeCompensated
	// OutcomeOrphaned means the operation stopped with the two sides out of
	// sync: an upload left a file without a row, or a delete left a row whose
	// file is gone.
	OutcomeOrphaned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeCompensated:
		return "compensated"
	case OutcomeOrphaned:
		return "orphaned"
	default:
		return "none"
	}
}

// UploadInput is one received file.
type UploadInput struct {
	Reader       io.Reader
	OriginalName string
	ContentType  string
	// Size is the declared length; -1 when unknown.
	Size int64
}

// UploadResult reports the stored recording (on success) and the outcome.
// It is non-nil whenever the file write succeeded, even if an error is returned.
type UploadResult struct {
	Recording *model.Recording
	Outcome   Outcome
}

// DeleteResult reports the outcome of a delete that got past the lookup.
type DeleteResult struct {
	Outcome Outcome
}

// RecordingService defines the use cases for handling recordings.
type RecordingService interface {
	// Upload validates the input, writes the file, then inserts its row.
	// If the insert fails the file is deleted again (best effort).
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// List returns every recording, most recent first.
	List(ctx context.Context) ([]model.Recording, error)

	// Get returns a single recording by its ID.
	Get(ctx context.Context, id int64) (*model.Recording, error)

	// Delete removes the file and then the row for id.
	Delete(ctx context.Context, id int64) (*DeleteResult, error)

	// Open streams a stored file by its generated filename.
	Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error)
}

// recordingService is a concrete implementation of RecordingService.
type recordingService struct {
	store    storage.Storage
	repo     repository.RecordingRepository
	maxBytes int64
	log      *logging.Logger
	now      func() time.Time
}

// NewRecordingService constructs a new RecordingService.
// maxBytes <= 0 disables the size limit; a nil log discards log output.
func NewRecordingService(store storage.Storage, repo repository.RecordingRepository, maxBytes int64, log *logging.Logger) RecordingService {
	if log == nil {
		log = logging.Discard()
	}
	return &recordingService{
		store:    store,
		repo:     repo,
		maxBytes: maxBytes,
		log:      log,
		now:      time.Now,
	}
}

// IsAudio reports whether a declared media type is accepted for upload.
func IsAudio(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "audio/")
}

func (s *recordingService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	ctx, span := tracer.Start(ctx, "RecordingService.Upload", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if in.Reader == nil {
		return nil, ErrFileRequired
	}
	if !IsAudio(in.ContentType) {
		return nil, ErrInvalidMediaType
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, ErrTooLarge
	}

	name := storage.UniqueName(in.OriginalName)
	span.SetAttributes(attribute.String("recording.filename", name))

	info, err := s.store.Put(ctx, name, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		MaxSize:     s.maxBytes,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.OriginalName,
		},
	})
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, ErrTooLarge
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "write file")
		return nil, fmt.Errorf("write file: %w", err)
	}

	ts := s.now().UTC()
	rec := &model.Recording{
		Filename:     name,
		OriginalName: in.OriginalName,
		Size:         info.Size,
		Mimetype:     in.ContentType,
		Path:         info.Location,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	stored, err := s.repo.Create(ctx, rec)
	if err != nil {
		outcome := s.compensateUpload(ctx, name, err)
		span.SetAttributes(attribute.String("recording.outcome", outcome.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "save metadata")
		return &UploadResult{Outcome: outcome}, fmt.Errorf("save metadata: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("recording.id", stored.ID),
		attribute.Int64("recording.size", stored.Size),
		attribute.String("recording.outcome", OutcomeCommitted.String()),
	)
	return &UploadResult{Recording: stored, Outcome: OutcomeCommitted}, nil
}

// compensateUpload removes a file whose row could not be inserted.
// It runs even if ctx was canceled; its own failure is logged, never returned.
func (s *recordingService) compensateUpload(ctx context.Context, name string, cause error) Outcome {
	if delErr := s.store.Delete(context.WithoutCancel(ctx), name); delErr != nil {
		s.log.Error("upload_compensation_failed", map[string]any{
			"component": "service",
			"filename":  name,
			"cause":     cause.Error(),
			"error":     delErr.Error(),
		})
		return OutcomeOrphaned
	}
	s.log.Info("upload_compensated", map[string]any{
		"component": "service",
		"filename":  name,
		"cause":     cause.Error(),
	})
	return OutcomeCompensated
}

// List returns all recordings.
func (s *recordingService) List(ctx context.Context) ([]model.Recording, error) {
	return s.repo.List(ctx)
}

// Get returns a recording by ID.
func (s *recordingService) Get(ctx context.Context, id int64) (*model.Recording, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Delete removes a recording's file, then deletes its row.
// A failed file removal leaves the row in place; a failed row delete after
// the file is gone is reported as OutcomeOrphaned.
func (s *recordingService) Delete(ctx context.Context, id int64) (*DeleteResult, error) {
	ctx, span := tracer.Start(ctx, "RecordingService.Delete", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(attribute.Int64("recording.id", id))

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.store.Delete(ctx, rec.Filename); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete file")
		return nil, fmt.Errorf("delete file: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.log.Error("delete_left_dangling_row", map[string]any{
			"component": "service",
			"id":        id,
			"filename":  rec.Filename,
			"error":     err.Error(),
		})
		span.SetAttributes(attribute.String("recording.outcome", OutcomeOrphaned.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete metadata")
		return &DeleteResult{Outcome: OutcomeOrphaned}, fmt.Errorf("delete metadata: %w", err)
	}

	span.SetAttributes(attribute.String("recording.outcome", OutcomeCommitted.String()))
	return &DeleteResult{Outcome: OutcomeCommitted}, nil
}

// Open returns the stored bytes for filename.
func (s *recordingService) Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	rc, info, err := s.store.Get(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}
