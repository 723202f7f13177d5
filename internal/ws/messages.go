// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs pushed to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeBidPlaced        MsgType = "bid_placed"
	MsgTypeAuctionCompleted MsgType = "auction_completed"
	MsgTypeError            MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// BidPlacedMessage: pushed after a bid commits so every viewer refreshes.
// ──────────────────────────────────────────────────────────────────────────────

// BidPlacedMessage carries the new highest bid and the extended deadline.
type BidPlacedMessage struct {
	Type            MsgType         `json:"type"`
	AuctionID       uuid.UUID       `json:"auction_id"`
	BidID           uuid.UUID       `json:"bid_id"`
	BidderID        uuid.UUID       `json:"bidder_id"`
	BidderName      string          `json:"bidder_name"`
	Amount          decimal.Decimal `json:"amount"`
	TotalBids       int             `json:"total_bids"`
	EndTime         time.Time       `json:"end_time"`
	TimeLeftSeconds int64           `json:"time_left_seconds"`
	Timestamp       time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// AuctionCompletedMessage: pushed when an auction closes.
// ──────────────────────────────────────────────────────────────────────────────

// AuctionCompletedMessage tells clients the final price and the winner, if any.
type AuctionCompletedMessage struct {
	Type       MsgType         `json:"type"`
	AuctionID  uuid.UUID       `json:"auction_id"`
	HasWinner  bool            `json:"has_winner"`
	WinnerID   *uuid.UUID      `json:"winner_id,omitempty"`
	FinalPrice decimal.Decimal `json:"final_price"`
	TotalBids  int             `json:"total_bids"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage: sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
