// Package imagestore persists task image blobs out-of-band from the
// database, keyed by task identity. The default implementation writes files
// named <taskID>.<ext> under a single directory.
package imagestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"taskpool/internal/apperrors"

	"github.com/gabriel-vasile/mimetype"
)

// allowedTypes lists the image extensions the API accepts.
var allowedTypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
}

// Store defines the interface for blob persistence.
type Store interface {
	Save(taskID, ext string, data []byte) error
	Open(taskID, ext string) (io.ReadCloser, error)
	Remove(taskID, ext string) error
}

// DetectImageType sniffs the image format from raw bytes and returns its
// extension (without the dot). Fails with a Validation error if the bytes
// are not a recognized, allowed image format.
func DetectImageType(data []byte) (string, error) {
	mime := mimetype.Detect(data)
	ext := strings.TrimPrefix(mime.Extension(), ".")
	if !allowedTypes[ext] {
		return "", apperrors.New(apperrors.KindValidation, "image type %q not allowed", mime.String())
	}
	return ext, nil
}

// ContentType returns the MIME type to serve for a stored extension.
func ContentType(ext string) string {
	if ext == "jpg" || ext == "jpeg" {
		return "image/jpeg"
	}
	return "image/" + ext
}

// FileStore is a filesystem implementation of Store.
type FileStore struct {
	dir string
}

// NewFileStore creates the storage directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(taskID, ext string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s", taskID, ext))
}

// Save writes the blob for a task.
func (s *FileStore) Save(taskID, ext string, data []byte) error {
	if err := os.WriteFile(s.path(taskID, ext), data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.KindStorage, err, "failed to save image for task %s", taskID)
	}
	return nil
}

// Open returns a reader over the task's blob, or a NotFound error.
func (s *FileStore) Open(taskID, ext string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(taskID, ext))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.KindNotFound, "image for task %s not found", taskID)
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, err, "failed to open image for task %s", taskID)
	}
	return f, nil
}

// Remove deletes the task's blob. Removing an absent blob is not an error.
func (s *FileStore) Remove(taskID, ext string) error {
	if err := os.Remove(s.path(taskID, ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.KindStorage, err, "failed to remove image for task %s", taskID)
	}
	return nil
}
