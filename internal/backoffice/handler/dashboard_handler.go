package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/service"
	"github.com/evetabi/auction/internal/ws"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	auctionSvc *service.AuctionService
	hub        *ws.Hub
	eventSinks int
}

// NewDashboardHandler creates a DashboardHandler. hub may be nil when the
// backoffice runs without a live feed.
func NewDashboardHandler(auctionSvc *service.AuctionService, hub *ws.Hub, eventSinks int) *DashboardHandler {
	return &DashboardHandler{auctionSvc: auctionSvc, hub: hub, eventSinks: eventSinks}
}

var dashboardStatuses = []domain.AuctionStatus{
	domain.StatusPending,
	domain.StatusActive,
	domain.StatusCompleted,
	domain.StatusCancelled,
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// ── Auction counts per status ───────────────────────────────────────────
	counts := make(gin.H, len(dashboardStatuses))
	for _, st := range dashboardStatuses {
		_, total, err := h.auctionSvc.ListAuctions(ctx, string(st), "", 1, 0)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		counts[string(st)] = total
	}

	// ── Auctions closing soonest ────────────────────────────────────────────
	active, _, err := h.auctionSvc.ListAuctions(ctx, string(domain.StatusActive), "", 100, 0)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	now := time.Now().UTC()
	var endingSoon []domain.AuctionSummary
	for _, a := range active {
		if a.TimeLeft(now) <= 5*time.Minute {
			endingSoon = append(endingSoon, a.ToSummary(now))
		}
	}

	// ── WS connections ──────────────────────────────────────────────────────
	var wsConnections int
	if h.hub != nil {
		wsConnections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp":      now,
		"auctions":       counts,
		"ending_soon":    endingSoon,
		"ws_connections": wsConnections,
		"event_sinks":    h.eventSinks,
	})
}
