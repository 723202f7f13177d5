package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// notifyTimeout bounds each post-commit notification fan-out.
const notifyTimeout = 5 * time.Second

// ──────────────────────────────────────────────────────────────────────────────
// AuctionService
// ──────────────────────────────────────────────────────────────────────────────

// AuctionService is the auction state machine. Every mutation of an auction
// row is a conditional replace on its version; a lost race surfaces as
// ErrConcurrentModification, which the service retries a bounded number of
// times with a fresh read before giving up.
type AuctionService struct {
	db          *sqlx.DB
	auctionRepo *repository.AuctionRepository
	bidRepo     *repository.BidRepository
	cfg         *config.Config
	logger      *slog.Logger
	notifier    Notifier // injected after the WS hub and event bus are built
	now         func() time.Time
}

// NewAuctionService creates an AuctionService.
func NewAuctionService(
	db *sqlx.DB,
	auctionRepo *repository.AuctionRepository,
	bidRepo *repository.BidRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *AuctionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuctionService{
		db:          db,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		cfg:         cfg,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier injects the event fan-out post-construction.
func (s *AuctionService) SetNotifier(n Notifier) { s.notifier = n }

// SetClock replaces the time source. Intended for tests.
func (s *AuctionService) SetClock(now func() time.Time) { s.now = now }

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBid
// ──────────────────────────────────────────────────────────────────────────────

type placedBid struct {
	auction *domain.Auction
	bid     *domain.Bid
}

// PlaceBid validates the bid against a fresh snapshot of the auction and, if
// accepted, commits in one transaction: the version-checked auction update
// (new highest bid, bidder, count and extended deadline), the demotion of the
// previous winning bid and the insert of the new one.
//
// Rejections (not found, not active, expired, too low) are returned as-is and
// never retried.
func (s *AuctionService) PlaceBid(ctx context.Context, req domain.PlaceBidRequest) (*domain.BidResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	attempts := 0
	placed, err := retryOnConflict(ctx, s, "PlaceBid", req.AuctionID, func() (placedBid, error) {
		attempts++
		return s.tryPlaceBid(ctx, req)
	})
	if err != nil {
		if domain.IsRejection(err) || domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auction_service.PlaceBid: %w", err)
	}

	s.logger.Info("bid accepted",
		"auction_id", placed.auction.ID,
		"bid_id", placed.bid.ID,
		"amount", placed.bid.Amount.String(),
		"end_time", placed.auction.EndTime,
		"attempts", attempts)

	go s.postBidAsync(*placed.auction, *placed.bid)

	return &domain.BidResult{
		BidID:      placed.bid.ID,
		AuctionID:  placed.auction.ID,
		Amount:     placed.bid.Amount,
		NewEndTime: placed.auction.EndTime,
		TotalBids:  placed.auction.TotalBids,
		Attempts:   attempts,
	}, nil
}

// tryPlaceBid is one optimistic attempt.
func (s *AuctionService) tryPlaceBid(ctx context.Context, req domain.PlaceBidRequest) (placedBid, error) {
	// ── 1. Snapshot, read outside the transaction ───────────────────────────
	a, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		return placedBid{}, err
	}

	// ── 2. Validate ──────────────────────────────────────────────────────────
	now := s.now()
	if err := domain.ValidateBid(a, req.Amount, now); err != nil {
		return placedBid{}, err
	}

	// ── 3. Apply in memory ───────────────────────────────────────────────────
	bid := domain.NewWinningBid(req, now)
	a.ApplyBid(bid, now)

	// ── 4. Commit atomically ─────────────────────────────────────────────────
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return placedBid{}, fmt.Errorf("begin tx: %w: %w", domain.ErrStoreUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.auctionRepo.Replace(ctx, tx, a); err != nil {
		return placedBid{}, err
	}
	if _, err = s.bidRepo.DemoteOthers(ctx, tx, a.ID, bid.ID); err != nil {
		return placedBid{}, err
	}
	if err = s.bidRepo.Create(ctx, tx, bid); err != nil {
		return placedBid{}, err
	}
	if err = tx.Commit(); err != nil {
		return placedBid{}, fmt.Errorf("commit: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return placedBid{auction: a, bid: bid}, nil
}

// postBidAsync publishes a committed bid. Runs in a goroutine.
func (s *AuctionService) postBidAsync(a domain.Auction, b domain.Bid) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	s.notifier.BidPlaced(ctx, &a, &b)
}

// ──────────────────────────────────────────────────────────────────────────────
// EndAuction
// ──────────────────────────────────────────────────────────────────────────────

// EndAuction force-closes a pending or active auction. A second call returns
// ErrAlreadyCompleted; a cancelled auction returns ErrAuctionNotActive.
func (s *AuctionService) EndAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, err := s.transition(ctx, "EndAuction", id, (*domain.Auction).Complete)
	if err != nil {
		return nil, err
	}
	s.logger.Info("auction ended", "auction_id", a.ID, "total_bids", a.TotalBids)
	go s.postCompletedAsync(*a)
	return a, nil
}

// ActivateAuction opens a pending auction for bidding now.
func (s *AuctionService) ActivateAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, err := s.transition(ctx, "ActivateAuction", id, (*domain.Auction).Activate)
	if err != nil {
		return nil, err
	}
	s.logger.Info("auction activated", "auction_id", a.ID, "end_time", a.EndTime)
	return a, nil
}

// CancelAuction voids a pending or active auction.
func (s *AuctionService) CancelAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, err := s.transition(ctx, "CancelAuction", id, (*domain.Auction).Cancel)
	if err != nil {
		return nil, err
	}
	s.logger.Info("auction cancelled", "auction_id", a.ID)
	return a, nil
}

// transition reads the auction, applies step and writes it back
// conditionally, retrying on conflict.
func (s *AuctionService) transition(ctx context.Context, op string, id uuid.UUID, step func(*domain.Auction, time.Time) error) (*domain.Auction, error) {
	a, err := retryOnConflict(ctx, s, op, id, func() (*domain.Auction, error) {
		a, err := s.auctionRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := step(a, s.now()); err != nil {
			return nil, err
		}
		if err := s.auctionRepo.Replace(ctx, s.db, a); err != nil {
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		if domain.IsRejection(err) || domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auction_service.%s: %w", op, err)
	}
	return a, nil
}

// postCompletedAsync announces a completed auction with its resolved winner.
func (s *AuctionService) postCompletedAsync(a domain.Auction) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	s.announceCompleted(ctx, &a)
}

func (s *AuctionService) announceCompleted(ctx context.Context, a *domain.Auction) {
	if s.notifier == nil {
		return
	}
	var winner *uuid.UUID
	if id, ok := domain.ResolveWinner(a); ok {
		winner = &id
	}
	s.notifier.AuctionCompleted(ctx, a, winner)
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateAuction
// ──────────────────────────────────────────────────────────────────────────────

// CreateAuction lists a product. An auction whose start time is absent or
// already reached is active immediately; a future start leaves it pending
// until ActivateDue picks it up.
func (s *AuctionService) CreateAuction(ctx context.Context, req domain.CreateAuctionRequest) (*domain.Auction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = s.cfg.Auction.DefaultDurationMinutes
	}

	now := s.now()
	start := now
	if req.StartTime != nil && req.StartTime.After(now) {
		start = req.StartTime.UTC()
	}

	a := domain.NewAuction(req.ProductID, req.SellerID, req.StartingPrice, start, duration, now)
	if !start.After(now) {
		if err := a.Activate(now); err != nil {
			return nil, err
		}
	}

	if err := s.auctionRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("auction_service.CreateAuction: %w", err)
	}
	s.logger.Info("auction created",
		"auction_id", a.ID, "status", a.Status,
		"starting_price", a.StartingPrice.String(), "end_time", a.EndTime)
	return a, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// GetAuction returns one auction.
func (s *AuctionService) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return s.auctionRepo.GetByID(ctx, id)
}

// ListAuctions returns a page of auctions filtered by an optional status tag
// and an optional seller id.
func (s *AuctionService) ListAuctions(ctx context.Context, status, sellerID string, limit, offset int) ([]*domain.Auction, int, error) {
	var f domain.AuctionFilter
	if status != "" {
		parsed, err := domain.ParseAuctionStatus(status)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidAuction, status)
		}
		f.Status = parsed
	}
	if sellerID != "" {
		id, err := uuid.Parse(sellerID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: malformed seller_id %q", domain.ErrInvalidAuction, sellerID)
		}
		f.SellerID = id
	}
	return s.auctionRepo.List(ctx, f, limit, offset)
}

// ListBids returns the bids on an auction, newest first.
func (s *AuctionService) ListBids(ctx context.Context, auctionID uuid.UUID, limit, offset int) ([]*domain.Bid, error) {
	if _, err := s.auctionRepo.GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.bidRepo.ListByAuction(ctx, auctionID, limit, offset)
}

// ListBidsByBidder returns a bidder's history across auctions.
func (s *AuctionService) ListBidsByBidder(ctx context.Context, bidderID uuid.UUID, limit, offset int) ([]*domain.Bid, error) {
	return s.bidRepo.ListByBidder(ctx, bidderID, limit, offset)
}

// Winner reports the outcome of a completed auction.
func (s *AuctionService) Winner(ctx context.Context, id uuid.UUID) (*domain.Winner, error) {
	a, err := s.auctionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusCompleted {
		return nil, domain.ErrAuctionNotCompleted
	}

	w := &domain.Winner{
		AuctionID:  a.ID,
		FinalPrice: a.CurrentHighestBid,
		TotalBids:  a.TotalBids,
	}
	winnerID, ok := domain.ResolveWinner(a)
	if !ok {
		return w, nil
	}
	w.HasWinner = true
	w.WinnerID = &winnerID

	bid, err := s.bidRepo.GetWinning(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("auction_service.Winner: %w", err)
	}
	w.WinningBid = bid
	return w, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Retry
// ──────────────────────────────────────────────────────────────────────────────

// retryOnConflict runs op until it succeeds, fails with anything other than
// ErrConcurrentModification, or exhausts the configured attempts. Waits grow
// exponentially from RetryBaseDelay with jitter.
func retryOnConflict[T any](ctx context.Context, s *AuctionService, op string, id uuid.UUID, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.Auction.RetryBaseDelay
	b.MaxInterval = 50 * s.cfg.Auction.RetryBaseDelay
	b.Reset()

	attempts := s.cfg.Auction.MaxBidAttempts
	if attempts < 1 {
		attempts = 1
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !domain.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.Debug("optimistic conflict, retrying",
				"op", op, "auction_id", id, "wait", wait, "err", err)
		}),
	)
}
