package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/evetabi/auction/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// SweepExpired: called by the Scheduler every tick
// ──────────────────────────────────────────────────────────────────────────────

// SweepExpired completes every active auction whose end time has passed and
// returns the ones this call completed. Each close is a conditional replace on
// the version that was observed expired, so an auction extended by a
// concurrent bid, or closed by another sweeper, is skipped rather than
// overwritten. A single failing auction does not abort the others; their
// errors are joined into the returned error.
func (s *AuctionService) SweepExpired(ctx context.Context) ([]*domain.Auction, error) {
	now := s.now()
	candidates, err := s.auctionRepo.ListExpiredActive(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("auction_service.SweepExpired: fetch: %w", err)
	}

	completed := make([]*domain.Auction, 0, len(candidates))
	var errs []error
	for _, a := range candidates {
		if err := a.Complete(now); err != nil {
			continue
		}
		err := s.auctionRepo.Replace(ctx, s.db, a)
		switch {
		case err == nil:
			completed = append(completed, a)
		case errors.Is(err, domain.ErrConcurrentModification):
			s.logger.Debug("sweep: auction changed since read, skipping", "auction_id", a.ID)
		default:
			errs = append(errs, fmt.Errorf("auction %s: %w", a.ID, err))
		}
	}

	if len(completed) > 0 {
		s.logger.Info("sweep completed auctions", "count", len(completed))
	}
	if len(errs) > 0 {
		return completed, fmt.Errorf("auction_service.SweepExpired: %w", errors.Join(errs...))
	}
	return completed, nil
}

// SweepAndAnnounce runs SweepExpired and announces every completed auction
// with its resolved winner.
func (s *AuctionService) SweepAndAnnounce(ctx context.Context) ([]*domain.Auction, error) {
	completed, err := s.SweepExpired(ctx)
	for _, a := range completed {
		s.announceCompleted(ctx, a)
	}
	return completed, err
}

// ──────────────────────────────────────────────────────────────────────────────
// ActivateDue
// ──────────────────────────────────────────────────────────────────────────────

// ActivateDue opens every pending auction whose start time has been reached.
// Conflicts are skipped; the next tick sees the fresh row.
func (s *AuctionService) ActivateDue(ctx context.Context) ([]*domain.Auction, error) {
	now := s.now()
	due, err := s.auctionRepo.ListDuePending(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("auction_service.ActivateDue: fetch: %w", err)
	}

	activated := make([]*domain.Auction, 0, len(due))
	var errs []error
	for _, a := range due {
		if err := a.Activate(now); err != nil {
			continue
		}
		err := s.auctionRepo.Replace(ctx, s.db, a)
		switch {
		case err == nil:
			activated = append(activated, a)
			s.logger.Info("auction activated", "auction_id", a.ID, "end_time", a.EndTime)
		case errors.Is(err, domain.ErrConcurrentModification):
		default:
			errs = append(errs, fmt.Errorf("auction %s: %w", a.ID, err))
		}
	}
	if len(errs) > 0 {
		return activated, fmt.Errorf("auction_service.ActivateDue: %w", errors.Join(errs...))
	}
	return activated, nil
}
