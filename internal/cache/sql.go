package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/repo"
)

// SQLStore keeps entries in the cache_entries table of the application
// database, so a run and the login server share one file.
type SQLStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewSQLStore returns a SQLStore over db. The schema must be migrated.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{DB: db, Now: time.Now}
}

// Get returns the payload when its updated_at is younger than maxAge.
func (s *SQLStore) Get(ctx context.Context, namespace, key string, maxAge time.Duration) ([]byte, bool, error) {
	notBefore := s.Now().UTC().Add(-maxAge)
	rec, err := repo.GetCacheEntry(ctx, s.DB, namespace, key, notBefore)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec.Payload, true, nil
}

// Put upserts the entry with the current clock.
func (s *SQLStore) Put(ctx context.Context, namespace, key string, payload []byte) error {
	return repo.PutCacheEntry(ctx, s.DB, namespace, key, payload, s.Now())
}
