package backoffice

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/backoffice/handler"
	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/service"
	"github.com/evetabi/auction/internal/ws"
	"github.com/gin-gonic/gin"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuctionSvc *service.AuctionService
	Verifier   *auth.Verifier
	Hub        *ws.Hub // optional
	EventSinks int
	Cfg        *config.Config
	Logger     *slog.Logger
}

// SetupBackofficeRouter creates the admin Gin engine served on ADMIN_PORT.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(auditLogger(logger))
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.AdminAllowedIPs))

	dashH := handler.NewDashboardHandler(deps.AuctionSvc, deps.Hub, deps.EventSinks)
	auctionH := handler.NewAuctionAdminHandler(deps.AuctionSvc)

	admin := r.Group("/admin")
	admin.Use(adminJWTMiddleware(deps.Verifier))
	{
		admin.GET("/dashboard", dashH.Dashboard)
		admin.POST("/sweep", auctionH.Sweep)

		// Auctions
		a := admin.Group("/auctions")
		{
			a.GET("", auctionH.List)
			a.POST("", auctionH.Create)
			a.GET("/:id", auctionH.Detail)
			a.POST("/:id/activate", auctionH.Activate)
			a.POST("/:id/cancel", auctionH.Cancel)
			a.POST("/:id/end", auctionH.End)
		}
	}

	return r
}

// ── Audit log ─────────────────────────────────────────────────────────────────

// auditLogger records every admin request with the operator behind it.
func auditLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
		}
		if v, ok := c.Get(ctxOperator); ok {
			attrs = append(attrs, "operator", v.(domain.Principal).UserID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "err", c.Errors.String())
			logger.Error("admin request", attrs...)
			return
		}
		logger.Info("admin request", attrs...)
	}
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// An empty list means allow all.
func ipWhitelistMiddleware(allowedIPs []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedIPs))
	for _, ip := range allowedIPs {
		if ip = strings.TrimSpace(ip); ip != "" {
			allowed[ip] = true
		}
	}
	if len(allowed) == 0 {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	return func(c *gin.Context) {
		if !allowed[c.ClientIP()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "access denied: your IP is not whitelisted",
				"code":    "ERR_IP_NOT_ALLOWED",
			})
			return
		}
		c.Next()
	}
}

// ── Admin JWT middleware ──────────────────────────────────────────────────────

const ctxOperator = "operator"

// adminJWTMiddleware validates a JWT and requires the caller to be an admin.
func adminJWTMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": domain.ErrUnauthorized.Error(), "code": "ERR_UNAUTHORIZED",
			})
			return
		}

		p, err := verifier.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": domain.ErrTokenInvalid.Error(), "code": "ERR_TOKEN_INVALID",
			})
			return
		}
		if p.Role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false, "error": domain.ErrForbidden.Error(), "code": "ERR_FORBIDDEN",
			})
			return
		}

		c.Set(ctxOperator, p)
		c.Next()
	}
}
