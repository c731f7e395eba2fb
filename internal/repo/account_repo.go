// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for linked social
// accounts.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When an account is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertAccount inserts the account or, when (provider, uid) already exists,
// refreshes its profile fields. The stored row is returned.
func UpsertAccount(ctx context.Context, db *gorm.DB, in domain.Account) (*domain.Account, error) {
	var out domain.Account
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("provider = ? AND uid = ?", in.Provider, in.UID).First(&out).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = in
			out.ID = uuid.NewString()
			out.CreatedAt = time.Now().UTC()
			return tx.Create(&out).Error
		case err != nil:
			return err
		}
		out.Username = in.Username
		out.Email = in.Email
		out.Name = in.Name
		out.ProfileURL = in.ProfileURL
		out.AvatarURL = in.AvatarURL
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccount fetches an account by provider and upstream uid.
func GetAccount(ctx context.Context, db *gorm.DB, provider, uid string) (*domain.Account, error) {
	var a domain.Account
	err := db.WithContext(ctx).
		Where("provider = ? AND uid = ?", provider, uid).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns every account for provider, oldest first so that a
// run evaluates users in link order.
func ListAccounts(ctx context.Context, db *gorm.DB, provider string) ([]domain.Account, error) {
	var out []domain.Account
	err := db.WithContext(ctx).
		Where("provider = ?", provider).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountAccounts returns the total number of linked accounts.
func CountAccounts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Account{}).Count(&total).Error
	return total, err
}

// ListAccountsPage returns a page of accounts, most recently linked first.
func ListAccountsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Account, error) {
	var out []domain.Account
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
