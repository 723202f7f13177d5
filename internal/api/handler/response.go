package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/evetabi/auction/internal/domain"
	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Domain error mapping
// ──────────────────────────────────────────────────────────────────────────────

type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	{domain.ErrAuctionNotFound, http.StatusNotFound, "ERR_AUCTION_NOT_FOUND"},
	{domain.ErrInvalidBid, http.StatusBadRequest, "ERR_INVALID_BID"},
	{domain.ErrInvalidAuction, http.StatusBadRequest, "ERR_INVALID_AUCTION"},
	{domain.ErrBidTooLow, http.StatusConflict, "ERR_BID_TOO_LOW"},
	{domain.ErrAuctionExpired, http.StatusConflict, "ERR_AUCTION_EXPIRED"},
	{domain.ErrAuctionNotActive, http.StatusConflict, "ERR_AUCTION_NOT_ACTIVE"},
	{domain.ErrAlreadyCompleted, http.StatusConflict, "ERR_ALREADY_COMPLETED"},
	{domain.ErrAuctionNotCompleted, http.StatusConflict, "ERR_AUCTION_NOT_COMPLETED"},
	{domain.ErrConcurrentModification, http.StatusServiceUnavailable, "ERR_CONCURRENT_MODIFICATION"},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE"},
	{domain.ErrForbidden, http.StatusForbidden, "ERR_FORBIDDEN"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
	{domain.ErrTokenInvalid, http.StatusUnauthorized, "ERR_TOKEN_INVALID"},
}

// StatusFor maps a service error to its HTTP status and envelope code.
// Unrecognised errors map to 500.
func StatusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "ERR_INTERNAL"
}

// RespondDomainError writes the envelope for a service error. Internal errors
// are reported as fallback so driver details never reach the client.
func RespondDomainError(c *gin.Context, err error, fallback string) {
	status, code := StatusFor(err)
	msg := fallback
	switch {
	case status == http.StatusInternalServerError:
		_ = c.Error(err)
	case errors.Is(err, domain.ErrStoreUnavailable):
		_ = c.Error(err)
		msg = domain.ErrStoreUnavailable.Error()
	case errors.Is(err, domain.ErrConcurrentModification):
		c.Header("Retry-After", "1")
		msg = domain.ErrConcurrentModification.Error()
	default:
		msg = err.Error()
	}
	respondError(c, status, code, msg)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}
