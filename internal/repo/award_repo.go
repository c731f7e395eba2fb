package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/domain"
)

// CreateAwardRecord appends one award outcome to the audit log.
func CreateAwardRecord(ctx context.Context, db *gorm.DB, runID string, badgeID int, res domain.AwardResult) (*domain.AwardRecord, error) {
	rec := &domain.AwardRecord{
		ID:        uuid.NewString(),
		RunID:     runID,
		Identity:  res.Identity,
		BadgeID:   badgeID,
		Outcome:   res.Outcome,
		Reason:    res.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// CountAwardRecords returns the total number of audit rows.
func CountAwardRecords(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.AwardRecord{}).Count(&total).Error
	return total, err
}

// ListAwardRecordsPage returns a page of audit rows, newest first.
func ListAwardRecordsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.AwardRecord, error) {
	var out []domain.AwardRecord
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListAwardRecordsByRun returns the rows written by one run in insert order.
func ListAwardRecordsByRun(ctx context.Context, db *gorm.DB, runID string) ([]domain.AwardRecord, error) {
	var out []domain.AwardRecord
	err := db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
