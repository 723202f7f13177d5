// Package scheduler runs the background goroutines that drive the auction
// lifecycle:
//  1. sweepLoop      – completes active auctions whose end time has passed.
//  2. activationLoop – opens pending auctions whose start time has arrived.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle interface
// ──────────────────────────────────────────────────────────────────────────────

// Lifecycle is the part of service.AuctionService the scheduler drives.
type Lifecycle interface {
	SweepAndAnnounce(ctx context.Context) ([]*domain.Auction, error)
	ActivateDue(ctx context.Context) ([]*domain.Auction, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the lifecycle loops. Call Start(ctx) once from main();
// cancel the context and call Wait to shut it down gracefully.
type Scheduler struct {
	svc    Lifecycle
	cfg    config.AuctionConfig
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(svc Lifecycle, cfg config.AuctionConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{svc: svc, cfg: cfg, logger: logger}
}

// Start launches the background goroutines. It returns immediately; all loops
// run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.sweepLoop(ctx)
	go s.activationLoop(ctx)
	s.logger.Info("scheduler started",
		"sweep_interval", s.cfg.SweepInterval,
		"activation_interval", s.cfg.ActivationInterval)
}

// Wait blocks until every loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// ──────────────────────────────────────────────────────────────────────────────
// sweepLoop
// ──────────────────────────────────────────────────────────────────────────────

// sweepLoop completes expired auctions every SweepInterval.
func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	s.every(ctx, "sweepLoop", s.cfg.SweepInterval, s.sweep)
}

func (s *Scheduler) sweep(ctx context.Context) {
	completed, err := s.svc.SweepAndAnnounce(ctx)
	if err != nil {
		s.logger.Error("sweepLoop: SweepAndAnnounce", "err", err)
	}
	for _, a := range completed {
		s.logger.Info("auction completed",
			"auction_id", a.ID,
			"final_price", a.CurrentHighestBid,
			"total_bids", a.TotalBids)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// activationLoop
// ──────────────────────────────────────────────────────────────────────────────

// activationLoop opens scheduled auctions every ActivationInterval.
func (s *Scheduler) activationLoop(ctx context.Context) {
	defer s.wg.Done()
	s.every(ctx, "activationLoop", s.cfg.ActivationInterval, s.activate)
}

func (s *Scheduler) activate(ctx context.Context) {
	if _, err := s.svc.ActivateDue(ctx); err != nil {
		s.logger.Error("activationLoop: ActivateDue", "err", err)
	}
}

// every calls tick on each interval until ctx is done. A panic inside tick is
// recovered and logged, and the loop keeps running.
func (s *Scheduler) every(ctx context.Context, loop string, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(loop + ": shutting down")
			return
		case <-ticker.C:
			func() {
				defer s.recoverAndLog(loop)
				tick(ctx)
			}()
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred around each tick to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
