package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// UploadsDirName is the subdirectory of the base dir that holds recordings.
const UploadsDirName = "uploads"

// ResolveDir returns the absolute path of base/uploads, creating it and any
// missing parents first. Calling it again once the directory exists is a no-op.
func ResolveDir(base string) (string, error) {
	dir, err := filepath.Abs(filepath.Join(base, UploadsDirName))
	if err != nil {
		return "", fmt.Errorf("resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create uploads dir %s: %w", dir, err)
	}
	return dir, nil
}

// Disk stores objects as files in a single directory.
type Disk struct {
	dir string
}

var _ Storage = (*Disk)(nil)

// NewDisk creates a Disk rooted at base/uploads (see ResolveDir).
func NewDisk(base string) (*Disk, error) {
	dir, err := ResolveDir(base)
	if err != nil {
		return nil, err
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the absolute directory files are written to.
func (d *Disk) Dir() string {
	return d.dir
}

// Put streams r into a temp file next to the target, then renames it into place.
// The temp file is removed on any failure, including exceeding opt.MaxSize.
func (d *Disk) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if !ValidKey(key) {
		return ObjectInfo{}, ErrInvalidKey
	}
	if opt.MaxSize > 0 && opt.Size > opt.MaxSize {
		return ObjectInfo{}, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	fullPath := filepath.Join(d.dir, key)
	f, err := os.CreateTemp(d.dir, "."+key+".*.part")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()

	src := r
	if opt.MaxSize > 0 {
		src = io.LimitReader(r, opt.MaxSize+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("write data: %w", err)
	}
	if opt.MaxSize > 0 && n > opt.MaxSize {
		f.Close()
		os.Remove(tmpPath)
		return ObjectInfo{}, ErrTooLarge
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o640); err != nil {
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("rename into place: %w", err)
	}

	st, err := os.Stat(fullPath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return ObjectInfo{
		Key:          key,
		Location:     fullPath,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: st.ModTime(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens the file for key. The caller must close the reader.
// ContentType is left empty; callers infer it from the key's extension.
func (d *Disk) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if !ValidKey(key) {
		return nil, ObjectInfo{}, ErrInvalidKey
	}
	fullPath := filepath.Join(d.dir, key)
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ObjectInfo{}, ErrNotExist
		}
		return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, ErrNotExist
	}
	return f, ObjectInfo{
		Key:          key,
		Location:     fullPath,
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}, nil
}

// Delete removes the file for key. A file that is already gone is not an error.
func (d *Disk) Delete(_ context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(d.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
