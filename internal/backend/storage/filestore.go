package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// FileStore is durable app-private storage for captured artifacts.
type FileStore interface {
	// WriteFile stores data under the relative path and returns its locator.
	WriteFile(ctx context.Context, path string, data []byte) (string, error)
	// ReadFile accepts either a locator returned by WriteFile or a relative path.
	ReadFile(ctx context.Context, locator string) ([]byte, error)
	// DeleteFile removes the artifact. A missing file is not an error.
	DeleteFile(ctx context.Context, locator string) error
}

// FilesystemStore maps relative paths to files below a root directory.
// Locators are file:// URIs of the absolute file path.
type FilesystemStore struct {
	root string
}

func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %s: %w", root, err)
	}
	if err := os.MkdirAll(absRoot, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", absRoot, err)
	}
	return &FilesystemStore{root: absRoot}, nil
}

// Root returns the absolute storage root.
func (s *FilesystemStore) Root() string {
	return s.root
}

// sanitizeKey rejects empty, absolute and traversing keys.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

// resolve turns a locator or relative path into an absolute path inside root.
func (s *FilesystemStore) resolve(locator string) (string, error) {
	if strings.HasPrefix(locator, fileScheme) {
		abs := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(locator, fileScheme)))
		rel, err := filepath.Rel(s.root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("locator %s is outside of storage root", locator)
		}
		return abs, nil
	}
	key, err := sanitizeKey(locator)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FilesystemStore) locatorFor(absPath string) string {
	return fileScheme + filepath.ToSlash(absPath)
}

func (s *FilesystemStore) WriteFile(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := sanitizeKey(path)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return s.locatorFor(target), nil
}

func (s *FilesystemStore) ReadFile(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", locator, err)
	}
	return data, nil
}

func (s *FilesystemStore) DeleteFile(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", locator, err)
	}
	return nil
}
