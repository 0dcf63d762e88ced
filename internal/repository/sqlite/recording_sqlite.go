package sqlite

import (
	"context"
	"database/sql"

	"recordapi/internal/model"
	"recordapi/internal/repository"
)

// RecordingSQLite is a SQLite implementation of repository.RecordingRepository.
// Times are written in UTC so the text encoding used by the driver sorts chronologically.
type RecordingSQLite struct {
	db *sql.DB
}

// NewRecordingSQLite creates a new RecordingSQLite repository.
func NewRecordingSQLite(db *sql.DB) *RecordingSQLite {
	return &RecordingSQLite{db: db}
}

var _ repository.RecordingRepository = (*RecordingSQLite)(nil)

// Create inserts a new recording row and returns the stored record.
// The row is read back by its rowid so timestamps come through the driver's
// DATETIME decoding rather than a RETURNING projection.
func (r *RecordingSQLite) Create(ctx context.Context, rec *model.Recording) (*model.Recording, error) {
	const q = `
		INSERT INTO recordings (filename, original_name, size, mimetype, path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		rec.Filename,
		repository.NullString(rec.OriginalName),
		rec.Size,
		repository.NullString(rec.Mimetype),
		repository.NullString(rec.Path),
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// FindByID fetches a single recording by its ID.
func (r *RecordingSQLite) FindByID(ctx context.Context, id int64) (*model.Recording, error) {
	const q = `SELECT ` + repository.RecordingColumns + ` FROM recordings WHERE id = ?`
	return repository.ScanRecording(r.db.QueryRowContext(ctx, q, id))
}

// List returns all recordings, newest first.
func (r *RecordingSQLite) List(ctx context.Context) ([]model.Recording, error) {
	const q = `SELECT ` + repository.RecordingColumns + ` FROM recordings ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Recording, 0)
	for rows.Next() {
		rec, err := repository.ScanRecording(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a recording by ID.
func (r *RecordingSQLite) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
