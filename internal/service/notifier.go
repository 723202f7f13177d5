package service

import (
	"context"

	"github.com/evetabi/auction/internal/domain"
	"github.com/google/uuid"
)

// Notifier receives auction events after they are committed. Implementations
// must not block for long and must never fail the operation that produced
// the event. Implemented by ws.Hub and events.Bus.
type Notifier interface {
	BidPlaced(ctx context.Context, a *domain.Auction, b *domain.Bid)
	AuctionCompleted(ctx context.Context, a *domain.Auction, winnerID *uuid.UUID)
}

// Notifiers fans every event out to each notifier in order.
type Notifiers []Notifier

// BidPlaced implements Notifier.
func (ns Notifiers) BidPlaced(ctx context.Context, a *domain.Auction, b *domain.Bid) {
	for _, n := range ns {
		if n != nil {
			n.BidPlaced(ctx, a, b)
		}
	}
}

// AuctionCompleted implements Notifier.
func (ns Notifiers) AuctionCompleted(ctx context.Context, a *domain.Auction, winnerID *uuid.UUID) {
	for _, n := range ns {
		if n != nil {
			n.AuctionCompleted(ctx, a, winnerID)
		}
	}
}
