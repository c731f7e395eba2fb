// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/domain"
)

// AccountsStats returns the number of linked accounts and the greatest
// UpdatedAt among them. When there are no accounts, count is 0 and
// maxUpdatedAt is nil.
func AccountsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	return latest(db.WithContext(ctx).Model(&domain.Account{}), "updated_at")
}

// AwardRecordsStats returns the number of audit rows and the greatest
// CreatedAt among them. Audit rows are append-only, so CreatedAt is the
// change marker.
func AwardRecordsStats(ctx context.Context, db *gorm.DB) (count int64, maxCreatedAt *time.Time, err error) {
	return latest(db.WithContext(ctx).Model(&domain.AwardRecord{}), "created_at")
}

// latest counts q and reads the greatest value of column.
func latest(q *gorm.DB, column string) (int64, *time.Time, error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Order+Limit instead of MAX(): SQLite returns MAX() of a time as TEXT.
	var row struct {
		TS time.Time
	}
	err := q.Session(&gorm.Session{}).
		Select(column + " AS ts").
		Order(column + " DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &row.TS, nil
}
