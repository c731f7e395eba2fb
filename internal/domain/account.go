package domain

import (
	"time"

	"gorm.io/gorm"
)

// ProviderUntappd is the provider id stored on accounts linked through the
// Untappd login flow.
const ProviderUntappd = "untappd"

// Account is a social account linked through the OAuth login flow. Award
// runs read these rows to learn which check-in users to evaluate and where
// to deliver the badge.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Provider / UID: the upstream identity; unique together.
//   - Username: check-in service login used in API paths.
//   - Email: badge recipient identity.
//   - Name, ProfileURL, AvatarURL: display data from the profile lookup.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Account struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	Provider   string         `json:"provider"    gorm:"type:varchar(32);not null;uniqueIndex:ux_account_provider_uid,priority:1"`
	UID        string         `json:"uid"         gorm:"type:varchar(64);not null;uniqueIndex:ux_account_provider_uid,priority:2"`
	Username   string         `json:"username"    gorm:"type:varchar(255);not null;index"`
	Email      string         `json:"email"       gorm:"type:varchar(255)"`
	Name       string         `json:"name"        gorm:"type:varchar(255)"`
	ProfileURL string         `json:"profile_url" gorm:"type:varchar(512)"`
	AvatarURL  string         `json:"avatar_url"  gorm:"type:varchar(512)"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// AwardRecord is one row of the award audit log: the outcome of a single
// award request made during a run.
type AwardRecord struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	RunID     string    `json:"run_id"    gorm:"type:char(36);not null;index"`
	Identity  string    `json:"identity"  gorm:"type:varchar(255);not null;index"`
	BadgeID   int       `json:"badge_id"  gorm:"not null"`
	Outcome   Outcome   `json:"outcome"   gorm:"type:varchar(32);not null;check:outcome IN ('awarded','already_awarded','failed')"`
	Reason    string    `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for AwardRecord.
func (AwardRecord) TableName() string { return "award_records" }
