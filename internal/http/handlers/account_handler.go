// Account and award log HTTP handlers.
//
// This file exposes the read-only API:
//   - GET /accounts   (linked accounts, paginated, ETag support)
//   - GET /awards     (award audit log, paginated, ETag support)
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/domain"
	"github.com/tbourn/checkin-badges/internal/repo"
	"github.com/tbourn/checkin-badges/internal/services"
)

// ListAccountsResponse wraps a page of accounts and pagination information.
type ListAccountsResponse struct {
	Accounts   []domain.Account `json:"accounts"`
	Pagination Pagination       `json:"pagination"`
}

// ListAwardsResponse wraps a page of award records and pagination information.
type ListAwardsResponse struct {
	Awards     []domain.AwardRecord `json:"awards"`
	Pagination Pagination           `json:"pagination"`
}

// statsFunc is the shape of the repo aggregate queries used for ETags.
type statsFunc func(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)

// etagFor builds a weak ETag from a row count and the latest change time.
// It returns "" when no database is reachable or the query fails.
func etagFor(ctx context.Context, db *gorm.DB, kind string, stats statsFunc) string {
	if db == nil {
		return ""
	}
	count, latest, err := stats(ctx, db)
	if err != nil {
		return ""
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%d:%d"`, kind, count, ts)
}

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List linked accounts (paginated)
// @Description Returns a page of accounts linked through the login flow, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Accounts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"accounts:3:1700000000\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListAccountsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	var db *gorm.DB
	if svc, ok := h.acctSvc.(*services.AccountService); ok {
		db = svc.DB
	}
	if etag := etagFor(ctx, db, "accounts", repo.AccountsStats); etag != "" && notModified(c, etag) {
		return
	}

	items, total, err := h.acctSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListAccountsResponse{
		Accounts:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// ListAwards godoc
// @ID          listAwards
// @Summary     List award outcomes (paginated)
// @Description Returns a page of the award audit log, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Awards
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListAwardsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /awards [get]
func (h *Handlers) ListAwards(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	var db *gorm.DB
	if svc, ok := h.awardLog.(*services.AwardService); ok {
		db = svc.DB
	}
	if etag := etagFor(ctx, db, "awards", repo.AwardRecordsStats); etag != "" && notModified(c, etag) {
		return
	}

	items, total, err := h.awardLog.ListRecordsPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListAwardsResponse{
		Awards:     items,
		Pagination: newPagination(page, pageSize, total),
	})
}
