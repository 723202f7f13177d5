// Package domain defines the core business entities and rules of the auction
// bidding engine: auctions, bids, the bid validator, the anti-sniping time
// extension policy and the winner resolver.
package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// AuctionStatus represents the lifecycle state of an auction.
type AuctionStatus string

const (
	StatusPending   AuctionStatus = "pending"   // created, not yet accepting bids
	StatusActive    AuctionStatus = "active"    // accepting bids
	StatusCompleted AuctionStatus = "completed" // closed by endAuction or the sweep, terminal
	StatusCancelled AuctionStatus = "cancelled" // voided, terminal
)

// ParseAuctionStatus maps a stored or user-supplied tag to an AuctionStatus.
// Unknown tags are a data-integrity error.
func ParseAuctionStatus(s string) (AuctionStatus, error) {
	switch st := AuctionStatus(s); st {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown auction status %q", ErrDataIntegrity, s)
	}
}

// IsTerminal returns true for statuses no transition leaves.
func (s AuctionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Scan implements sql.Scanner. The status is decoded once here, at the
// persistence boundary.
func (s *AuctionStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("%w: auction status is NULL", ErrDataIntegrity)
	default:
		return fmt.Errorf("%w: auction status has type %T", ErrDataIntegrity, src)
	}
	parsed, err := ParseAuctionStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s AuctionStatus) Value() (driver.Value, error) {
	if _, err := ParseAuctionStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Auction
// ──────────────────────────────────────────────────────────────────────────────

// Auction is a timed sale of one product. Version is the optimistic
// concurrency sequence: every persisted mutation is conditioned on it and
// bumps it by one.
type Auction struct {
	ID                     uuid.UUID       `json:"id"                         db:"id"`
	ProductID              uuid.UUID       `json:"product_id"                 db:"product_id"`
	SellerID               uuid.UUID       `json:"seller_id"                  db:"seller_id"`
	StartingPrice          decimal.Decimal `json:"starting_price"             db:"starting_price"`
	CurrentHighestBid      decimal.Decimal `json:"current_highest_bid"        db:"current_highest_bid"`
	CurrentHighestBidderID *uuid.UUID      `json:"current_highest_bidder_id"  db:"current_highest_bidder_id"`
	StartTime              time.Time       `json:"start_time"                 db:"start_time"`
	EndTime                time.Time       `json:"end_time"                   db:"end_time"`
	DurationMinutes        int64           `json:"duration_minutes"           db:"duration_minutes"`
	Status                 AuctionStatus   `json:"status"                     db:"status"`
	IsActive               bool            `json:"is_active"                  db:"is_active"`
	IsCompleted            bool            `json:"is_completed"               db:"is_completed"`
	TotalBids              int             `json:"total_bids"                 db:"total_bids"`
	Version                int64           `json:"version"                    db:"version"`
	CreatedAt              time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"                 db:"updated_at"`
}

// NewAuction builds an auction with currentHighestBid initialised to the
// starting price and no bidder. The caller decides the initial status.
func NewAuction(productID, sellerID uuid.UUID, startingPrice decimal.Decimal, start time.Time, durationMinutes int64, now time.Time) *Auction {
	return &Auction{
		ID:                uuid.New(),
		ProductID:         productID,
		SellerID:          sellerID,
		StartingPrice:     startingPrice,
		CurrentHighestBid: startingPrice,
		StartTime:         start.UTC(),
		EndTime:           ExtendEndTime(start, durationMinutes),
		DurationMinutes:   durationMinutes,
		Status:            StatusPending,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
}

// AuctionFilter narrows an auction listing. Zero fields match everything.
type AuctionFilter struct {
	Status   AuctionStatus
	SellerID uuid.UUID
}

// CreateAuctionRequest carries the inputs for listing a product. A nil or
// past StartTime starts the auction immediately; DurationMinutes 0 means the
// configured default.
type CreateAuctionRequest struct {
	ProductID       uuid.UUID       `json:"product_id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	StartingPrice   decimal.Decimal `json:"starting_price"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	DurationMinutes int64           `json:"duration_minutes"`
}

// Validate checks the request shape.
func (r CreateAuctionRequest) Validate() error {
	switch {
	case r.ProductID == uuid.Nil:
		return fmt.Errorf("%w: product_id is required", ErrInvalidAuction)
	case r.SellerID == uuid.Nil:
		return fmt.Errorf("%w: seller_id is required", ErrInvalidAuction)
	case !r.StartingPrice.IsPositive():
		return fmt.Errorf("%w: starting price must be positive", ErrInvalidAuction)
	case !IsMoney(r.StartingPrice):
		return fmt.Errorf("%w: starting price has more than %d decimal places", ErrInvalidAuction, MoneyScale)
	case r.DurationMinutes < 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidAuction)
	}
	return nil
}

// HasExpired reports whether now is at or past the deadline.
func (a *Auction) HasExpired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// TimeLeft returns the duration remaining until the auction ends, or 0.
func (a *Auction) TimeLeft(now time.Time) time.Duration {
	remaining := a.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasBids reports whether any bid has been accepted.
func (a *Auction) HasBids() bool {
	return a.TotalBids > 0
}

// setStatus keeps the legacy is_active/is_completed flags in step with status.
func (a *Auction) setStatus(st AuctionStatus, now time.Time) {
	a.Status = st
	a.IsActive = st == StatusActive
	a.IsCompleted = st == StatusCompleted
	a.UpdatedAt = now.UTC()
}

// ApplyBid records an accepted bid on the in-memory auction: new highest bid
// and bidder, one more bid, and the deadline reset by ExtendEndTime.
func (a *Auction) ApplyBid(b *Bid, now time.Time) {
	bidder := b.BidderID
	a.CurrentHighestBid = b.Amount
	a.CurrentHighestBidderID = &bidder
	a.TotalBids++
	a.EndTime = ExtendEndTime(now, a.DurationMinutes)
	a.UpdatedAt = now.UTC()
}

// Activate moves a pending auction to active. The bidding window starts now
// and lasts one full configured duration.
func (a *Auction) Activate(now time.Time) error {
	if a.Status != StatusPending {
		return fmt.Errorf("activate auction in status %s: %w", a.Status, ErrAuctionNotActive)
	}
	a.StartTime = now.UTC()
	a.EndTime = ExtendEndTime(now, a.DurationMinutes)
	a.setStatus(StatusActive, now)
	return nil
}

// Complete closes a pending or active auction.
func (a *Auction) Complete(now time.Time) error {
	switch a.Status {
	case StatusCompleted:
		return ErrAlreadyCompleted
	case StatusCancelled:
		return fmt.Errorf("complete cancelled auction: %w", ErrAuctionNotActive)
	}
	a.setStatus(StatusCompleted, now)
	return nil
}

// Cancel voids a pending or active auction.
func (a *Auction) Cancel(now time.Time) error {
	switch a.Status {
	case StatusCompleted:
		return ErrAlreadyCompleted
	case StatusCancelled:
		return fmt.Errorf("cancel cancelled auction: %w", ErrAuctionNotActive)
	}
	a.setStatus(StatusCancelled, now)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// AuctionSummary: lightweight read model for list endpoints and WS pushes
// ──────────────────────────────────────────────────────────────────────────────

// AuctionSummary is a derived, read-only view of an Auction.
type AuctionSummary struct {
	ID                     uuid.UUID       `json:"id"`
	ProductID              uuid.UUID       `json:"product_id"`
	Status                 AuctionStatus   `json:"status"`
	StartingPrice          decimal.Decimal `json:"starting_price"`
	CurrentHighestBid      decimal.Decimal `json:"current_highest_bid"`
	CurrentHighestBidderID *uuid.UUID      `json:"current_highest_bidder_id,omitempty"`
	TotalBids              int             `json:"total_bids"`
	EndTime                time.Time       `json:"end_time"`
	TimeLeftSec            int64           `json:"time_left_sec"`
}

// ToSummary builds an AuctionSummary as seen at now.
func (a *Auction) ToSummary(now time.Time) AuctionSummary {
	return AuctionSummary{
		ID:                     a.ID,
		ProductID:              a.ProductID,
		Status:                 a.Status,
		StartingPrice:          a.StartingPrice,
		CurrentHighestBid:      a.CurrentHighestBid,
		CurrentHighestBidderID: a.CurrentHighestBidderID,
		TotalBids:              a.TotalBids,
		EndTime:                a.EndTime,
		TimeLeftSec:            int64(a.TimeLeft(now).Seconds()),
	}
}
