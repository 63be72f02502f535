// Package storage keeps uploaded files under a media root.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore persists uploaded blobs and returns their media-relative path.
type FileStore interface {
	Save(ctx context.Context, dir, ext string, data []byte) (string, error)
	Remove(ctx context.Context, path string) error
}

// LocalStore writes files beneath Root.
type LocalStore struct {
	Root string
}

// NewLocalStore returns a store rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

// Save writes data to <Root>/<dir>/<uuid><ext> and returns "<dir>/<uuid><ext>".
func (s *LocalStore) Save(ctx context.Context, dir, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(dir, "..") {
		return "", fmt.Errorf("storage: invalid directory %q", dir)
	}
	if err := os.MkdirAll(filepath.Join(s.Root, dir), 0o755); err != nil {
		return "", fmt.Errorf("storage: create %s: %w", dir, err)
	}
	rel := filepath.ToSlash(filepath.Join(dir, uuid.NewString()+ext))
	if err := os.WriteFile(filepath.Join(s.Root, filepath.FromSlash(rel)), data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", rel, err)
	}
	return rel, nil
}

// Remove deletes a file previously returned by Save. Missing files are ignored.
func (s *LocalStore) Remove(_ context.Context, path string) error {
	if path == "" || strings.Contains(path, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(path)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
