package model

import "time"

// Recording describes one uploaded audio file.
// This is a pure domain model with no database-specific dependencies or tags.
type Recording struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName,omitempty"`
	Size         int64     `json:"size"`
	Mimetype     string    `json:"mimetype"`
	Path         string    `json:"path"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
