package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Package storage holds the blob stores recordings are written to: the local
// uploads directory (default) and an S3-compatible bucket.

var (
	// ErrTooLarge is returned by Put when the content exceeds PutObjectOptions.MaxSize.
	// Nothing is left behind in the store when it is returned.
	ErrTooLarge = errors.New("object exceeds size limit")
	// ErrNotExist is returned by Get for a key with no object.
	ErrNotExist = errors.New("object does not exist")
	// ErrInvalidKey rejects keys that could escape the store's namespace.
	ErrInvalidKey = errors.New("invalid object key")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size is the declared number of bytes, or -1 when unknown.
// MaxSize caps what may be stored; zero means no cap.
type PutObjectOptions struct {
	Size        int64
	MaxSize     int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
// Location is where the object lives: an absolute file path for the disk store,
// an s3:// URL for object stores.
type ObjectInfo struct {
	Key          string
	Location     string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a blob store keyed by flat object names.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Put stores r under key. Size in the returned info is the number of bytes actually written.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get returns the object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidKey reports whether key is a single, plain path element.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`) && !strings.ContainsRune(key, 0)
}
