package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore serves file bytes from a directory on disk. Development backend;
// production deployments point at S3.
type LocalStore struct {
	baseDir string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./files"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Fetch opens the stored file for reading.
func (s *LocalStore) Fetch(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return file, s.info(key, stat.Size(), stat), nil
}

// Stat returns file metadata.
func (s *LocalStore) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.info(key, stat.Size(), stat), nil
}

func (s *LocalStore) info(key string, size int64, stat os.FileInfo) *ObjectInfo {
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &ObjectInfo{
		Size:         size,
		ContentType:  contentType,
		LastModified: stat.ModTime(),
	}
}

func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	path := filepath.Join(s.baseDir, cleaned)
	if !strings.HasPrefix(path, filepath.Clean(s.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return path, nil
}
