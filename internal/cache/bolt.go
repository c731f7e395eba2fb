package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// stampLen is the size of the write-time prefix on every bolt value.
const stampLen = 8

// BoltStore keeps entries in a single bbolt file with one bucket per
// namespace. Each value is the big-endian UnixNano write time followed by
// the payload.
type BoltStore struct {
	db  *bolt.DB
	Now func() time.Time
}

// OpenBoltStore opens (or creates) <dir>/cache.db.
func OpenBoltStore(dir string) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, "cache.db"), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return &BoltStore{db: db, Now: time.Now}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns the payload when its stamp is younger than maxAge. A value too
// short to hold a stamp is reported as ErrCorrupt.
func (s *BoltStore) Get(_ context.Context, namespace, key string, maxAge time.Duration) ([]byte, bool, error) {
	var (
		out []byte
		hit bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		if len(v) < stampLen {
			return fmt.Errorf("%w: %s/%s", ErrCorrupt, namespace, key)
		}
		written := time.Unix(0, int64(binary.BigEndian.Uint64(v[:stampLen])))
		if !fresh(s.Now(), written, maxAge) {
			return nil
		}
		// v is only valid inside the transaction.
		out = append([]byte(nil), v[stampLen:]...)
		hit = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, hit, nil
}

// Put stores payload under key, creating the namespace bucket on demand.
func (s *BoltStore) Put(_ context.Context, namespace, key string, payload []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", namespace, err)
		}
		v := make([]byte, stampLen+len(payload))
		binary.BigEndian.PutUint64(v[:stampLen], uint64(s.Now().UnixNano()))
		copy(v[stampLen:], payload)
		return b.Put([]byte(key), v)
	})
}
