// Package main is the entry point for the auction bidding API server. It
// wires together all services and starts the HTTP server alongside the
// WebSocket hub and the lifecycle scheduler.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evetabi/auction/internal/api"
	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/events"
	"github.com/evetabi/auction/internal/repository"
	"github.com/evetabi/auction/internal/scheduler"
	"github.com/evetabi/auction/internal/service"
	"github.com/evetabi/auction/internal/ws"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting auction server", "env", cfg.Server.Env, "port", cfg.Server.Port, "db", cfg.DB.Driver)

	// ── 2. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Database + migrations ──────────────────────────────────────────────
	db, err := repository.Open(ctx, cfg.DB)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err = repository.Migrate(ctx, db); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories + service ─────────────────────────────────────────────
	auctionRepo := repository.NewAuctionRepository(db)
	bidRepo := repository.NewBidRepository(db)
	auctionSvc := service.NewAuctionService(db, auctionRepo, bidRepo, cfg, logger)

	// ── 5. Notifications: WebSocket hub + event brokers ───────────────────────
	verifier := auth.NewVerifier(cfg.JWT.AccessSecret, cfg.JWT.AccessTTL)
	hub := ws.NewHub(verifier, cfg.Server.WSAllowedOrigins, logger)

	bus, closeBus := events.Open(ctx, cfg.Events, logger)
	defer closeBus()

	auctionSvc.SetNotifier(service.Notifiers{hub, bus})

	// ── 6. HTTP Router ────────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuctionSvc: auctionSvc,
		Verifier:   verifier,
		Hub:        hub,
		Cfg:        cfg,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 7. Run hub, scheduler and server until a signal arrives ──────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	logger.Info("websocket hub started")

	sched := scheduler.NewScheduler(auctionSvc, cfg.Auction, logger)
	sched.Start(gctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ── 8. Graceful shutdown ──────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, draining connections…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
	sched.Wait()
	logger.Info("server stopped cleanly")
}
