// Package main is the entry point for the auction back-office admin server.
// Runs on ADMIN_PORT and exposes admin-only endpoints behind an IP allowlist.
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

	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/backoffice"
	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/events"
	"github.com/evetabi/auction/internal/repository"
	"github.com/evetabi/auction/internal/service"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting auction backoffice server",
		"env", cfg.Server.Env, "port", cfg.Server.AdminPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	db, err := repository.Open(ctx, cfg.DB)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err = repository.Migrate(ctx, db); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	// ── Service ───────────────────────────────────────────────────────────────
	auctionSvc := service.NewAuctionService(db,
		repository.NewAuctionRepository(db), repository.NewBidRepository(db), cfg, logger)

	// Admin closes still reach live viewers through the brokers.
	bus, closeBus := events.Open(ctx, cfg.Events, logger)
	defer closeBus()
	auctionSvc.SetNotifier(bus)

	// ── Router ────────────────────────────────────────────────────────────────
	router := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		AuctionSvc: auctionSvc,
		Verifier:   auth.NewVerifier(cfg.JWT.AccessSecret, cfg.JWT.AccessTTL),
		EventSinks: bus.Len(),
		Cfg:        cfg,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.AdminPort,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("backoffice listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("backoffice server error", "err", err)
			stop()
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("backoffice shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("backoffice shutdown error", "err", err)
	}
	logger.Info("backoffice stopped")
}
