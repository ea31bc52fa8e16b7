package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mediastudio/internal/domain"
	"mediastudio/internal/providers/failure"
)

const fileStoreService = "filestore"

// FileStore persists objects onto the local filesystem and serves them under
// baseURL. It is intended for development and single-node deployments where an
// object storage service is not available.
type FileStore struct {
	basePath string
	baseURL  string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Upload writes data under the hinted folder. The returned ID is the
// storage key relative to the root.
func (s *FileStore) Upload(ctx context.Context, data []byte, hint Hint) (domain.StoredObject, error) {
	const op = "upload"
	if err := ctx.Err(); err != nil {
		return domain.StoredObject{}, failure.FromTransport(fileStoreService, op, err)
	}
	key, err := s.write(objectName(hint), data)
	if err != nil {
		return domain.StoredObject{}, err
	}
	return domain.StoredObject{ID: key, URL: s.URL(key)}, nil
}

// Delete removes the object; deleting a missing object is not an error.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	const op = "delete"
	if err := ctx.Err(); err != nil {
		return failure.FromTransport(fileStoreService, op, err)
	}
	key, err := sanitizeKey(id)
	if err != nil {
		return failure.Wrap(failure.KindInvalidInput, fileStoreService, op, err)
	}
	if err := os.Remove(s.fullPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return failure.Wrap(failure.KindUpstream, fileStoreService, op, err)
	}
	return nil
}

// Open streams a stored object back.
func (s *FileStore) Open(ctx context.Context, obj domain.StoredObject) (io.ReadCloser, error) {
	const op = "open"
	if err := ctx.Err(); err != nil {
		return nil, failure.FromTransport(fileStoreService, op, err)
	}
	key, err := sanitizeKey(obj.ID)
	if err != nil {
		return nil, failure.Wrap(failure.KindInvalidInput, fileStoreService, op, err)
	}
	f, err := os.Open(s.fullPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, failure.Wrap(failure.KindInvalidInput, fileStoreService, op, err)
		}
		return nil, failure.Wrap(failure.KindUpstream, fileStoreService, op, err)
	}
	return f, nil
}

// URL returns the public URL of a key.
func (s *FileStore) URL(key string) string {
	if s.baseURL == "" {
		return "/" + key
	}
	return s.baseURL + "/" + key
}

func (s *FileStore) write(key string, data []byte) (string, error) {
	const op = "upload"
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", failure.Wrap(failure.KindInvalidInput, fileStoreService, op, err)
	}
	fullPath := s.fullPath(cleanKey)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", failure.Wrap(failure.KindUpstream, fileStoreService, op, fmt.Errorf("ensure directory: %w", err))
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", failure.Wrap(failure.KindUpstream, fileStoreService, op, fmt.Errorf("write file: %w", err))
	}
	return cleanKey, nil
}

func (s *FileStore) fullPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

var _ Store = (*FileStore)(nil)
