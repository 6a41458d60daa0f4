package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/drivespace/drivespace/utils"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no object is stored under a key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are empty, absolute, or escape the store root.
	ErrInvalidKey = errors.New("invalid object key")
)

//go:generate mockgen -destination=mock_filestore/mock_backend.go github.com/drivespace/drivespace/filestore Backend

// Backend stores opaque objects under slash-separated keys.
type Backend interface {
	// Name identifies the backend type ("local", "sftp", "s3").
	Name() string

	// Put stores everything read from r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns a reader for the object stored under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object stored under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key below prefix, recursively.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases connections held by the backend.
	Close() error
}

// NewObjectKey builds the key for a new upload: users/<owner>/<uuid>/<sanitized name>.
func NewObjectKey(owner, filename string) string {
	return path.Join("users", utils.SanitizeFilename(owner), uuid.NewString(), utils.SanitizeFilename(filename))
}

// CleanKey validates key and returns its normalized form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// Object identifies a stored object together with the metadata needed to
// write it elsewhere. Size is -1 when unknown.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// Copy streams obj from src to dst.
func Copy(ctx context.Context, src, dst Backend, obj Object) error {
	reader, err := src.Open(ctx, obj.Key)
	if err != nil {
		return fmt.Errorf("open %s on %s: %w", obj.Key, src.Name(), err)
	}
	defer reader.Close()

	if err := dst.Put(ctx, obj.Key, reader, obj.Size, obj.ContentType); err != nil {
		return fmt.Errorf("write %s to %s: %w", obj.Key, dst.Name(), err)
	}
	return nil
}
