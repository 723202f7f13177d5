package handler

import (
	"net/http"

	"github.com/evetabi/auction/internal/api/middleware"
	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionHandler serves the public auction and bidding endpoints.
type AuctionHandler struct {
	auctionSvc *service.AuctionService
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(auctionSvc *service.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionSvc: auctionSvc}
}

// List godoc
// GET /api/auctions?status=active&seller_id=<uuid>&page=1&limit=20
func (h *AuctionHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	auctions, total, err := h.auctionSvc.ListAuctions(c.Request.Context(),
		c.Query("status"), c.Query("seller_id"), limit, offset)
	if err != nil {
		RespondDomainError(c, err, "could not list auctions")
		return
	}
	respondList(c, auctions, total, page, limit)
}

// GetByID godoc
// GET /api/auctions/:id
func (h *AuctionHandler) GetByID(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	a, err := h.auctionSvc.GetAuction(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err, "could not fetch auction")
		return
	}
	respondSuccess(c, http.StatusOK, a)
}

// ListBids godoc
// GET /api/auctions/:id/bids?page=1&limit=20
func (h *AuctionHandler) ListBids(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	bids, err := h.auctionSvc.ListBids(c.Request.Context(), id, limit, offset)
	if err != nil {
		RespondDomainError(c, err, "could not fetch bids")
		return
	}
	respondList(c, bids, len(bids), page, limit)
}

// Winner godoc
// GET /api/auctions/:id/winner
func (h *AuctionHandler) Winner(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	w, err := h.auctionSvc.Winner(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err, "could not resolve winner")
		return
	}
	respondSuccess(c, http.StatusOK, w)
}

// PlaceBid godoc
// POST /api/auctions/:id/bids [JWT buyer|admin]
// Body: {"amount":"15.00"}
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	caller := middleware.GetPrincipal(c)

	var body struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil || !amount.IsPositive() || !domain.IsMoney(amount) {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT",
			"amount must be a positive decimal string with at most two decimal places")
		return
	}

	res, err := h.auctionSvc.PlaceBid(c.Request.Context(), domain.PlaceBidRequest{
		AuctionID:  id,
		BidderID:   caller.UserID,
		BidderName: caller.DisplayName,
		Amount:     amount,
	})
	if err != nil {
		RespondDomainError(c, err, "could not place bid")
		return
	}
	respondSuccess(c, http.StatusCreated, res)
}

// End godoc
// POST /api/auctions/:id/end [JWT seller owning the auction | admin]
func (h *AuctionHandler) End(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	a, err := h.auctionSvc.GetAuction(ctx, id)
	if err != nil {
		RespondDomainError(c, err, "could not fetch auction")
		return
	}
	if !middleware.GetPrincipal(c).CanManage(a) {
		respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "only the seller or an admin may end this auction")
		return
	}

	ended, err := h.auctionSvc.EndAuction(ctx, id)
	if err != nil {
		RespondDomainError(c, err, "could not end auction")
		return
	}
	respondSuccess(c, http.StatusOK, ended)
}

// MyBids godoc
// GET /api/me/bids?page=1&limit=20 [JWT]
func (h *AuctionHandler) MyBids(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	bids, err := h.auctionSvc.ListBidsByBidder(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		RespondDomainError(c, err, "could not fetch bids")
		return
	}
	respondList(c, bids, len(bids), page, limit)
}

// auctionID parses the :id path parameter, writing a 400 on failure.
func auctionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AUCTION_ID", "invalid auction id")
		return uuid.Nil, false
	}
	return id, true
}
