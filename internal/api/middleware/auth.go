package middleware

import (
	"net/http"
	"strings"

	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKey constants for gin.Context values set by middleware.
const (
	CtxPrincipal = "principal"
)

// ──────────────────────────────────────────────────────────────────────────────
// JWTMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// JWTMiddleware validates the Bearer token in the Authorization header.
// On success it stores the domain.Principal in the gin context.
func JWTMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   domain.ErrUnauthorized.Error(),
				"code":    "ERR_UNAUTHORIZED",
			})
			return
		}

		p, err := verifier.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   domain.ErrTokenInvalid.Error(),
				"code":    "ERR_TOKEN_INVALID",
			})
			return
		}

		c.Set(CtxPrincipal, p)
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// RoleMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// RoleMiddleware ensures the authenticated caller has one of the allowed roles.
// Must be placed after JWTMiddleware in the chain.
func RoleMiddleware(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[GetPrincipal(c).Role] {
			forbid(c)
			return
		}
		c.Next()
	}
}

// BidderMiddleware allows only callers whose principal may place bids.
// Must be placed after JWTMiddleware in the chain.
func BidderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetPrincipal(c).CanBid() {
			forbid(c)
			return
		}
		c.Next()
	}
}

func forbid(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error":   domain.ErrForbidden.Error(),
		"code":    "ERR_FORBIDDEN",
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers: extract the caller from context (for use in handlers)
// ──────────────────────────────────────────────────────────────────────────────

// GetPrincipal retrieves the authenticated caller from the gin context.
// Returns the zero Principal if the middleware was not applied.
func GetPrincipal(c *gin.Context) domain.Principal {
	v, _ := c.Get(CtxPrincipal)
	p, _ := v.(domain.Principal)
	return p
}

// GetUserID retrieves the authenticated caller's UUID from the gin context.
// Returns uuid.Nil if the middleware was not applied or the value is missing.
func GetUserID(c *gin.Context) uuid.UUID {
	return GetPrincipal(c).UserID
}
