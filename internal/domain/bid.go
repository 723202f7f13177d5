package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Bid
// ──────────────────────────────────────────────────────────────────────────────

// Bid is an accepted offer on an auction. Bids are append-only; only the
// IsWinning flag changes after insert, and at most one bid per auction has it
// set: the most recently accepted one.
type Bid struct {
	ID         uuid.UUID       `json:"id"          db:"id"`
	AuctionID  uuid.UUID       `json:"auction_id"  db:"auction_id"`
	BidderID   uuid.UUID       `json:"bidder_id"   db:"bidder_id"`
	BidderName string          `json:"bidder_name" db:"bidder_name"`
	Amount     decimal.Decimal `json:"amount"      db:"amount"`
	PlacedAt   time.Time       `json:"placed_at"   db:"placed_at"`
	IsWinning  bool            `json:"is_winning"  db:"is_winning"`
}

// NewWinningBid creates the bid record written by an accepted placement.
func NewWinningBid(req PlaceBidRequest, now time.Time) *Bid {
	return &Bid{
		ID:         uuid.New(),
		AuctionID:  req.AuctionID,
		BidderID:   req.BidderID,
		BidderName: req.BidderName,
		Amount:     req.Amount,
		PlacedAt:   now.UTC(),
		IsWinning:  true,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBidRequest / BidResult: value objects used by AuctionService
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBidRequest carries the caller-supplied inputs for placing a bid. The
// bidder identity and display name come from the account subsystem.
type PlaceBidRequest struct {
	AuctionID  uuid.UUID
	BidderID   uuid.UUID
	BidderName string
	Amount     decimal.Decimal
}

// Validate checks the request shape. Business rules live in ValidateBid.
func (r PlaceBidRequest) Validate() error {
	if r.AuctionID == uuid.Nil || r.BidderID == uuid.Nil {
		return ErrInvalidBid
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidBid
	}
	if !IsMoney(r.Amount) {
		return fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidBid, MoneyScale)
	}
	return nil
}

// BidResult is returned for an accepted bid.
type BidResult struct {
	BidID      uuid.UUID       `json:"bid_id"`
	AuctionID  uuid.UUID       `json:"auction_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewEndTime time.Time       `json:"new_end_time"`
	TotalBids  int             `json:"total_bids"`
	Attempts   int             `json:"-"`
}

// Winner is the read model returned for a completed auction.
type Winner struct {
	AuctionID  uuid.UUID       `json:"auction_id"`
	HasWinner  bool            `json:"has_winner"`
	WinnerID   *uuid.UUID      `json:"winner_id,omitempty"`
	WinningBid *Bid            `json:"winning_bid,omitempty"`
	FinalPrice decimal.Decimal `json:"final_price"`
	TotalBids  int             `json:"total_bids"`
}
