package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskStore keeps one file per entry under Root/<namespace>/<key>. The file
// modification time is the freshness marker.
type DiskStore struct {
	Root string
	Now  func() time.Time
}

// NewDiskStore returns a DiskStore rooted at root. The directory tree is
// created lazily on the first write.
func NewDiskStore(root string) *DiskStore {
	return &DiskStore{Root: root, Now: time.Now}
}

func (s *DiskStore) path(namespace, key string) string {
	return filepath.Join(s.Root, namespace, key)
}

// Get reads the entry when its mtime is younger than maxAge.
func (s *DiskStore) Get(_ context.Context, namespace, key string, maxAge time.Duration) ([]byte, bool, error) {
	p := s.path(namespace, key)
	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("stat cache entry: %w", err)
	}
	if !fresh(s.Now(), fi.ModTime(), maxAge) {
		return nil, false, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	return data, true, nil
}

// Put writes the entry through a temporary file and a rename so that a
// reader never sees a half-written payload.
func (s *DiskStore) Put(_ context.Context, namespace, key string, payload []byte) error {
	dir := filepath.Join(s.Root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache namespace: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(namespace, key)); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}
