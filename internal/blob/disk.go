// Package blob stores rendered export bytes. Keys are opaque and issued by
// the store itself.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("blob not found")

// DiskStore keeps blobs as flat files under a root directory, one file per
// uuid key.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}

	return &DiskStore{root: root}, nil
}

// Save writes the blob and returns its key.
func (s *DiskStore) Save(r io.Reader) (string, error) {
	key := uuid.NewString()

	f, err := os.Create(filepath.Join(s.root, key))
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write blob file: %w", err)
	}

	return key, nil
}

// Open returns a reader for the blob. Keys that are not uuids are reported
// as absent without touching the filesystem.
func (s *DiskStore) Open(key string) (io.ReadCloser, error) {
	if _, err := uuid.Parse(key); err != nil {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("open blob file: %w", err)
	}

	return f, nil
}
