// Package services – AccountService
//
// This file implements the login side of the application. A user signs in
// through the check-in service, the authorization code is exchanged for an
// access token, the token owner's profile is read and the account is
// linked (created or refreshed). Linked accounts are later picked up by
// award runs as users to evaluate and as badge recipients.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/domain"
	"github.com/tbourn/checkin-badges/internal/repo"
	"github.com/tbourn/checkin-badges/internal/untappd"
)

// OAuthProvider builds login URLs and exchanges codes, normally an
// *oauth.Provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// ProfileSource reads the profile of an access token's owner, normally an
// *untappd.Client.
type ProfileSource interface {
	UserInfo(ctx context.Context, accessToken string) (*untappd.UserInfo, error)
}

// AccountService links accounts through the OAuth login flow.
type AccountService struct {
	DB       *gorm.DB
	Provider OAuthProvider
	Profiles ProfileSource
}

// NewAccountService wires an AccountService.
func NewAccountService(db *gorm.DB, p OAuthProvider, ps ProfileSource) *AccountService {
	return &AccountService{DB: db, Provider: p, Profiles: ps}
}

// LoginURL returns the provider URL that starts a login carrying state.
func (s *AccountService) LoginURL(state string) string {
	return s.Provider.AuthCodeURL(state)
}

// CompleteLogin exchanges code, reads the profile and links the account.
func (s *AccountService) CompleteLogin(ctx context.Context, code string) (*domain.Account, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "CompleteLogin",
		trace.WithAttributes(attribute.String("account.provider", domain.ProviderUntappd)),
	)
	defer span.End()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	tok, err := s.Provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	info, err := s.Profiles.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	acct, err := repo.UpsertAccount(ctx, s.DB, domain.Account{
		Provider:   domain.ProviderUntappd,
		UID:        info.UID,
		Username:   info.Username,
		Email:      info.Email,
		Name:       info.Name(),
		ProfileURL: info.ProfileURL,
		AvatarURL:  info.AvatarURL,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("account.id", acct.ID))
	return acct, nil
}

// ListPage returns a page of linked accounts, newest first.
func (s *AccountService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Account, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountAccounts(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Account{}, 0, nil
	}
	items, err := repo.ListAccountsPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// ListAll returns every linked account in link order.
func (s *AccountService) ListAll(ctx context.Context) ([]domain.Account, error) {
	return repo.ListAccounts(ctx, s.DB, domain.ProviderUntappd)
}
