package api

import (
	"log/slog"
	"net/http"

	"github.com/evetabi/auction/internal/api/handler"
	"github.com/evetabi/auction/internal/api/middleware"
	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/service"
	"github.com/evetabi/auction/internal/ws"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuctionSvc *service.AuctionService
	Verifier   *auth.Verifier
	Hub        *ws.Hub
	Cfg        *config.Config
	Logger     *slog.Logger
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestLogger(deps.Logger))
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	auctionH := handler.NewAuctionHandler(deps.AuctionSvc)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.Verifier)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	bidRL := middleware.RateLimitMiddleware(10) // 10 bids/s per caller

	api := r.Group("/api")
	{
		// ── Auctions (public reads) ──────────────────────────────────────────
		auctions := api.Group("/auctions")
		{
			auctions.GET("", auctionH.List)
			auctions.GET("/:id", auctionH.GetByID)
			auctions.GET("/:id/bids", auctionH.ListBids)
			auctions.GET("/:id/winner", auctionH.Winner)

			auctions.POST("/:id/bids", jwtMW,
				middleware.BidderMiddleware(),
				bidRL,
				auctionH.PlaceBid)
			auctions.POST("/:id/end", jwtMW,
				middleware.RoleMiddleware(domain.RoleSeller, domain.RoleAdmin),
				auctionH.End)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		me := api.Group("/me")
		me.Use(jwtMW)
		{
			me.GET("/bids", auctionH.MyBids)
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── Request logging ───────────────────────────────────────────────────────────

// requestLogger logs one structured line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "err", c.Errors.String())
			logger.Error("http request", attrs...)
			return
		}
		logger.Debug("http request", attrs...)
	}
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// Outside production all origins are allowed; in production only the
// configured WS/HTTP origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Server.WSAllowedOrigins))
	for _, o := range cfg.Server.WSAllowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
