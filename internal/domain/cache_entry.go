package domain

import "time"

// CacheEntry is a cached upstream response body stored in the database
// cache backend, keyed by (namespace, key). UpdatedAt is the freshness
// marker; entries are replaced on write and never explicitly invalidated.
type CacheEntry struct {
	Namespace string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Payload   []byte    `gorm:"type:BLOB NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (CacheEntry) TableName() string { return "cache_entries" }
