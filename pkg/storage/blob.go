package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Errors returned by blob store implementations.
var (
	ErrObjectNotFound = errors.New("storage: object not found")
	ErrUnavailable    = errors.New("storage: backend unavailable")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobStore is the narrow port to the external object store holding shared
// file bytes. The core never writes through it; uploads belong to the
// uploader-facing collaborator.
type BlobStore interface {
	// Fetch opens the object for reading. The caller must close the reader.
	Fetch(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)

	// Stat returns object metadata without fetching the body.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
}
