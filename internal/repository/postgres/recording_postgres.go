package postgres

import (
	"context"
	"database/sql"

	"recordapi/internal/model"
	"recordapi/internal/repository"
)

// RecordingPostgres is a PostgreSQL implementation of repository.RecordingRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type RecordingPostgres struct {
	db *sql.DB
}

// NewRecordingPostgres creates a new RecordingPostgres repository.
func NewRecordingPostgres(db *sql.DB) *RecordingPostgres {
	return &RecordingPostgres{db: db}
}

var _ repository.RecordingRepository = (*RecordingPostgres)(nil)

// Create inserts a new recording row and returns the stored record.
func (r *RecordingPostgres) Create(ctx context.Context, rec *model.Recording) (*model.Recording, error) {
	const q = `
		INSERT INTO recordings (filename, original_name, size, mimetype, path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + repository.RecordingColumns
	row := r.db.QueryRowContext(ctx, q,
		rec.Filename,
		repository.NullString(rec.OriginalName),
		rec.Size,
		repository.NullString(rec.Mimetype),
		repository.NullString(rec.Path),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return repository.ScanRecording(row)
}

// FindByID fetches a single recording by its ID.
func (r *RecordingPostgres) FindByID(ctx context.Context, id int64) (*model.Recording, error) {
	const q = `SELECT ` + repository.RecordingColumns + ` FROM recordings WHERE id = $1`
	return repository.ScanRecording(r.db.QueryRowContext(ctx, q, id))
}

// List returns all recordings, newest first.
func (r *RecordingPostgres) List(ctx context.Context) ([]model.Recording, error) {
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
func (r *RecordingPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM recordings WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
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
