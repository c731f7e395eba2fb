// Package handlers – wiring and shared helpers.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. This file declares
// the service contracts the handlers depend on, the Handlers aggregate and
// the pagination helpers shared by the list endpoints.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/checkin-badges/internal/domain"
	"github.com/tbourn/checkin-badges/internal/utils"
)

//
// Service contracts (context-aware)
//

// AccountService links and lists accounts.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// LoginURL returns the provider URL that starts a login carrying state.
	LoginURL(state string) string
	// CompleteLogin exchanges an authorization code and links the account.
	CompleteLogin(ctx context.Context, code string) (*domain.Account, error)
	// ListPage returns a page of linked accounts and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Account, int64, error)
}

// AwardLog reads the award audit log.
type AwardLog interface {
	// ListRecordsPage returns a page of award records and the total count.
	ListRecordsPage(ctx context.Context, page, pageSize int) ([]domain.AwardRecord, int64, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for login, accounts and awards.
type Handlers struct {
	acctSvc  AccountService
	awardLog AwardLog

	// SecureCookies marks the login state cookie Secure.
	SecureCookies bool
}

// New constructs and returns a Handlers instance bound to the given services.
func New(acctSvc AccountService, awardLog AwardLog) *Handlers {
	return &Handlers{acctSvc: acctSvc, awardLog: awardLog}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// newPagination computes the metadata of one page.
func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
