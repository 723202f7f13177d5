// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// NewDB opens a migrated SQLite store in a temp dir, closed on cleanup.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "auction.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := repository.Open(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repository.Migrate(context.Background(), db))
	return db
}

// SeedAuction stores an active auction that started at start.
func SeedAuction(t testing.TB, db *sqlx.DB, startingPrice string, durationMinutes int64, start time.Time) *domain.Auction {
	t.Helper()

	a := domain.NewAuction(uuid.New(), uuid.New(), decimal.RequireFromString(startingPrice), start, durationMinutes, start)
	require.NoError(t, a.Activate(start))
	require.NoError(t, repository.NewAuctionRepository(db).Create(context.Background(), a))
	return a
}

// Clock is a settable time source for services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at t.
func NewClock(t time.Time) *Clock { return &Clock{now: t.UTC()} }

// Now returns the current frozen time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
