package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStorage is the narrow contract the catalog core uses to persist
// extracted images and floorplan backgrounds. Paths returned and accepted are
// relative to the storage root so they can be stored directly on records.
type FileStorage interface {
	SaveFile(data []byte, originalName, subdir string) (string, error)
	DeleteFile(relativePath string) error
}

// LocalStorage stores files under a media root on the local filesystem.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates the media root if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// SaveFile writes data under root/subdir with a unique name derived from the
// original filename, and returns the relative path.
func (s *LocalStorage) SaveFile(data []byte, originalName, subdir string) (string, error) {
	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s", uuid.New().String()[:8], sanitizeName(originalName))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filepath.ToSlash(filepath.Join(subdir, name)), nil
}

// DeleteFile removes a previously saved file. Deleting a missing file is not
// an error.
func (s *LocalStorage) DeleteFile(relativePath string) error {
	full := filepath.Join(s.root, filepath.FromSlash(relativePath))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." {
		name = "file"
	}
	return name
}
