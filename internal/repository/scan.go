package repository

import (
	"database/sql"

	"recordapi/internal/model"
)

// RecordingColumns is the column list every SELECT/RETURNING clause uses, in scan order.
const RecordingColumns = `id, filename, original_name, size, mimetype, path, created_at, updated_at`

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanRecording reads one row laid out as RecordingColumns.
// Nullable text columns come back as empty strings.
func ScanRecording(s Scanner) (*model.Recording, error) {
	var r model.Recording
	var originalName, mime, path sql.NullString
	if err := s.Scan(
		&r.ID,
		&r.Filename,
		&originalName,
		&r.Size,
		&mime,
		&path,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.OriginalName = originalName.String
	r.Mimetype = mime.String
	r.Path = path.String
	return &r, nil
}

// NullString maps "" to SQL NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
