// Package events publishes committed auction events to external brokers:
// NATS JetStream for durable consumers and Redis Pub/Sub for live fan-out.
package events

import (
	"fmt"
	"time"

	"github.com/evetabi/auction/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type names an event on the wire.
type Type string

const (
	TypeBidPlaced        Type = "bid_placed"
	TypeAuctionCompleted Type = "auction_completed"
)

// Event is the JSON payload published to every sink.
type Event struct {
	ID                uuid.UUID        `json:"event_id"`
	Type              Type             `json:"type"`
	AuctionID         uuid.UUID        `json:"auction_id"`
	Status            string           `json:"status"`
	CurrentHighestBid decimal.Decimal  `json:"current_highest_bid"`
	TotalBids         int              `json:"total_bids"`
	EndTime           time.Time        `json:"end_time"`
	BidID             *uuid.UUID       `json:"bid_id,omitempty"`
	BidderID          *uuid.UUID       `json:"bidder_id,omitempty"`
	BidderName        string           `json:"bidder_name,omitempty"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	WinnerID          *uuid.UUID       `json:"winner_id,omitempty"`
	OccurredAt        time.Time        `json:"occurred_at"`
}

func newEvent(t Type, a *domain.Auction, now time.Time) Event {
	return Event{
		ID:                uuid.New(),
		Type:              t,
		AuctionID:         a.ID,
		Status:            string(a.Status),
		CurrentHighestBid: a.CurrentHighestBid,
		TotalBids:         a.TotalBids,
		EndTime:           a.EndTime,
		OccurredAt:        now.UTC(),
	}
}

// BidPlacedEvent describes an accepted bid.
func BidPlacedEvent(a *domain.Auction, b *domain.Bid, now time.Time) Event {
	e := newEvent(TypeBidPlaced, a, now)
	bidID, bidder, amount := b.ID, b.BidderID, b.Amount
	e.BidID = &bidID
	e.BidderID = &bidder
	e.BidderName = b.BidderName
	e.Amount = &amount
	return e
}

// AuctionCompletedEvent describes a closed auction and its winner, if any.
func AuctionCompletedEvent(a *domain.Auction, winnerID *uuid.UUID, now time.Time) Event {
	e := newEvent(TypeAuctionCompleted, a, now)
	e.WinnerID = winnerID
	return e
}

// Subject is the JetStream subject for e: auction.events.<auction>.<type>.
func Subject(e Event) string {
	return fmt.Sprintf("auction.events.%s.%s", e.AuctionID, e.Type)
}

// Channel is the Redis Pub/Sub channel for e: auction_events:<auction>.
func Channel(e Event) string {
	return fmt.Sprintf("auction_events:%s", e.AuctionID)
}
