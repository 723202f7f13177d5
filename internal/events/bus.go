package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/evetabi/auction/internal/domain"
	"github.com/google/uuid"
)

// Sink delivers events to one broker.
type Sink interface {
	Name() string
	Publish(ctx context.Context, e Event) error
}

// Bus turns service notifications into Events and hands them to every sink.
// A failing sink is logged and skipped; it never fails the bid or sweep that
// produced the event.
type Bus struct {
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewBus creates a Bus over sinks.
func NewBus(logger *slog.Logger, sinks ...Sink) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		sinks:  sinks,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Len returns the number of configured sinks.
func (b *Bus) Len() int { return len(b.sinks) }

// BidPlaced implements service.Notifier.
func (b *Bus) BidPlaced(ctx context.Context, a *domain.Auction, bid *domain.Bid) {
	b.Publish(ctx, BidPlacedEvent(a, bid, b.now()))
}

// AuctionCompleted implements service.Notifier.
func (b *Bus) AuctionCompleted(ctx context.Context, a *domain.Auction, winnerID *uuid.UUID) {
	b.Publish(ctx, AuctionCompletedEvent(a, winnerID, b.now()))
}

// Publish sends e to every sink and returns how many accepted it.
func (b *Bus) Publish(ctx context.Context, e Event) int {
	ok := 0
	for _, s := range b.sinks {
		if err := s.Publish(ctx, e); err != nil {
			b.logger.Warn("event publish failed",
				"sink", s.Name(), "type", e.Type, "auction_id", e.AuctionID, "err", err)
			continue
		}
		ok++
	}
	return ok
}
