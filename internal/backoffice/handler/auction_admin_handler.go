package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// detailBidLimit caps the bid history returned with an auction detail.
const detailBidLimit = 200

// AuctionAdminHandler serves /admin/auctions endpoints.
type AuctionAdminHandler struct {
	auctionSvc *service.AuctionService
}

// NewAuctionAdminHandler creates an AuctionAdminHandler.
func NewAuctionAdminHandler(auctionSvc *service.AuctionService) *AuctionAdminHandler {
	return &AuctionAdminHandler{auctionSvc: auctionSvc}
}

// List godoc
// GET /admin/auctions?status=pending&seller_id=<uuid>&page=1&limit=50
func (h *AuctionAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	auctions, total, err := h.auctionSvc.ListAuctions(c.Request.Context(),
		c.Query("status"), c.Query("seller_id"), limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, auctions, total, page, limit)
}

// Detail godoc
// GET /admin/auctions/:id
func (h *AuctionAdminHandler) Detail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	a, err := h.auctionSvc.GetAuction(ctx, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	bids, err := h.auctionSvc.ListBids(ctx, id, detailBidLimit, 0)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"auction": a,
		"summary": a.ToSummary(time.Now().UTC()),
		"bids":    bids,
	})
}

// Create godoc
// POST /admin/auctions
// Body: {"product_id":"uuid","seller_id":"uuid","starting_price":"10.00","duration_minutes":60}
// start_time (RFC 3339) is optional; a future value schedules the auction.
func (h *AuctionAdminHandler) Create(c *gin.Context) {
	var body struct {
		ProductID       string     `json:"product_id"     binding:"required"`
		SellerID        string     `json:"seller_id"      binding:"required"`
		StartingPrice   string     `json:"starting_price" binding:"required"`
		StartTime       *time.Time `json:"start_time"`
		DurationMinutes int64      `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	productID, err := uuid.Parse(body.ProductID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid product_id")
		return
	}
	sellerID, err := uuid.Parse(body.SellerID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid seller_id")
		return
	}
	price, err := decimal.NewFromString(body.StartingPrice)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", "starting_price must be a decimal string")
		return
	}

	a, err := h.auctionSvc.CreateAuction(c.Request.Context(), domain.CreateAuctionRequest{
		ProductID:       productID,
		SellerID:        sellerID,
		StartingPrice:   price,
		StartTime:       body.StartTime,
		DurationMinutes: body.DurationMinutes,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, a)
}

// Activate godoc
// POST /admin/auctions/:id/activate
func (h *AuctionAdminHandler) Activate(c *gin.Context) {
	h.transition(c, h.auctionSvc.ActivateAuction)
}

// Cancel godoc
// POST /admin/auctions/:id/cancel
func (h *AuctionAdminHandler) Cancel(c *gin.Context) {
	h.transition(c, h.auctionSvc.CancelAuction)
}

// End godoc
// POST /admin/auctions/:id/end
func (h *AuctionAdminHandler) End(c *gin.Context) {
	h.transition(c, h.auctionSvc.EndAuction)
}

func (h *AuctionAdminHandler) transition(c *gin.Context, step func(context.Context, uuid.UUID) (*domain.Auction, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := step(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, a)
}

// Sweep godoc
// POST /admin/sweep
// Runs one expiry sweep now and returns the auctions it completed.
func (h *AuctionAdminHandler) Sweep(c *gin.Context) {
	completed, err := h.auctionSvc.SweepAndAnnounce(c.Request.Context())
	if err != nil && len(completed) == 0 {
		respondDomainError(c, err)
		return
	}
	data := gin.H{"completed": completed, "count": len(completed)}
	if err != nil {
		// Partial sweep: report what closed along with what failed.
		_ = c.Error(err)
		data["error"] = err.Error()
	}
	respondSuccess(c, http.StatusOK, data)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid auction id")
		return uuid.Nil, false
	}
	return id, true
}
