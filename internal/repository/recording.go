package repository

import (
	"context"

	"recordapi/internal/model"
)

// RecordingRepository defines data access for recordings using SQL queries only.
// No business logic here, persistence only.
// Implementations live in subpackages (postgres, sqlite) and must be safe for concurrent use.
type RecordingRepository interface {
	// Create inserts a new recording row. ID is assigned by the database and
	// the stored record is returned.
	Create(ctx context.Context, rec *model.Recording) (*model.Recording, error)

	// FindByID returns a recording by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id int64) (*model.Recording, error)

	// List returns every recording, most recent first.
	List(ctx context.Context) ([]model.Recording, error)

	// Delete removes a recording by ID. It returns sql.ErrNoRows if no row matched.
	Delete(ctx context.Context, id int64) error
}
