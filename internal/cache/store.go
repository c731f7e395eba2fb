// Package cache stores raw upstream response bodies keyed by a hash of the
// request URL and grouped into namespaces.
//
// Freshness is a parameter of every read rather than a property of the
// store, so the same entry can be fresh for one caller and stale for
// another. Entries are never invalidated explicitly; they age out.
//
// Backends:
//   - DiskStore:   <root>/<namespace>/<key> files, file mtime as freshness
//   - MemoryStore: in-process map with an injectable clock (tests)
//   - SQLStore:    cache_entries table through GORM
//   - BoltStore:   one bbolt bucket per namespace
//   - Nop:         never hits, discards writes (cache disabled)
//
// None of the backends lock across processes; a single run is expected to
// own the cache at a time.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"time"
)

// ErrCorrupt is returned by backends that can detect a damaged entry
// (for example a truncated bolt value). Callers treat it as a miss.
var ErrCorrupt = errors.New("cache entry corrupt")

// Store is the cache abstraction used by the fetcher.
//
// Get returns the payload stored under (namespace, key) when it was written
// less than maxAge ago. A missing or stale entry is reported as ok=false
// with a nil error.
type Store interface {
	Get(ctx context.Context, namespace, key string, maxAge time.Duration) (payload []byte, ok bool, err error)
	Put(ctx context.Context, namespace, key string, payload []byte) error
}

// Key derives the cache key of a fully qualified request URL. Only
// collision avoidance matters here, not resistance to attack.
func Key(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// fresh reports whether an entry written at written is younger than maxAge.
func fresh(now, written time.Time, maxAge time.Duration) bool {
	return now.Sub(written) < maxAge
}

// Nop is a Store that never hits and drops every write.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, string, string, time.Duration) ([]byte, bool, error) {
	return nil, false, nil
}

// Put discards the payload.
func (Nop) Put(context.Context, string, string, []byte) error { return nil }
