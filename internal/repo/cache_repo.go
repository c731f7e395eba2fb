package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/checkin-badges/internal/domain"
)

// GetCacheEntry returns the entry for (namespace, key) written after
// notBefore, or ErrNotFound when it is missing or older.
func GetCacheEntry(ctx context.Context, db *gorm.DB, namespace, key string, notBefore time.Time) (*domain.CacheEntry, error) {
	var rec domain.CacheEntry
	err := db.WithContext(ctx).
		Where("namespace = ? AND key = ? AND updated_at > ?", namespace, key, notBefore).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutCacheEntry stores payload under (namespace, key), replacing any
// previous entry and refreshing its timestamp.
func PutCacheEntry(ctx context.Context, db *gorm.DB, namespace, key string, payload []byte, now time.Time) error {
	rec := &domain.CacheEntry{
		Namespace: namespace,
		Key:       key,
		Payload:   payload,
		UpdatedAt: now.UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(rec).Error
}
