package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/repository"
	"github.com/evetabi/auction/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAuctionRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAuctionRepository(db)
	ctx := context.Background()

	a := testutil.SeedAuction(t, db, "10.00", 2, t0)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.SellerID, got.SellerID)
	assert.True(t, got.StartingPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, got.CurrentHighestBid.Equal(got.StartingPrice))
	assert.Nil(t, got.CurrentHighestBidderID)
	assert.True(t, got.EndTime.Equal(t0.Add(2*time.Minute)), "end_time = %v", got.EndTime)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.True(t, got.IsActive)
	assert.EqualValues(t, 2, got.DurationMinutes)
	assert.EqualValues(t, 0, got.Version)
}

func TestAuctionRepository_GetMissing(t *testing.T) {
	repo := repository.NewAuctionRepository(testutil.NewDB(t))
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestAuctionRepository_ReplaceBumpsVersion(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAuctionRepository(db)
	ctx := context.Background()
	a := testutil.SeedAuction(t, db, "10", 2, t0)

	bidder := uuid.New()
	a.ApplyBid(&domain.Bid{BidderID: bidder, Amount: decimal.NewFromInt(15)}, t0.Add(time.Minute))
	require.NoError(t, repo.Replace(ctx, db, a))
	assert.EqualValues(t, 1, a.Version)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Version)
	assert.Equal(t, 1, got.TotalBids)
	require.NotNil(t, got.CurrentHighestBidderID)
	assert.Equal(t, bidder, *got.CurrentHighestBidderID)
	assert.True(t, got.CurrentHighestBid.Equal(decimal.NewFromInt(15)))
	assert.True(t, got.EndTime.Equal(t0.Add(3*time.Minute)))
}

func TestAuctionRepository_ReplaceStaleVersion(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAuctionRepository(db)
	ctx := context.Background()
	seeded := testutil.SeedAuction(t, db, "10", 2, t0)

	first, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	first.ApplyBid(&domain.Bid{BidderID: uuid.New(), Amount: decimal.NewFromInt(50)}, t0)
	require.NoError(t, repo.Replace(ctx, db, first))

	second.ApplyBid(&domain.Bid{BidderID: uuid.New(), Amount: decimal.NewFromInt(51)}, t0)
	err = repo.Replace(ctx, db, second)
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.EqualValues(t, 0, second.Version, "failed replace must not bump the version")

	got, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentHighestBid.Equal(decimal.NewFromInt(50)))
}

func TestAuctionRepository_ListExpiredActive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAuctionRepository(db)
	ctx := context.Background()

	expired := testutil.SeedAuction(t, db, "10", 1, t0)
	live := testutil.SeedAuction(t, db, "10", 10, t0)
	closed := testutil.SeedAuction(t, db, "10", 1, t0)
	require.NoError(t, closed.Complete(t0))
	require.NoError(t, repo.Replace(ctx, db, closed))

	now := t0.Add(5 * time.Minute)
	got, err := repo.ListExpiredActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)

	// end_time == now is not yet swept.
	got, err = repo.ListExpiredActive(ctx, expired.EndTime)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.ListExpiredActive(ctx, live.EndTime.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAuctionRepository_ListDuePending(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAuctionRepository(db)
	ctx := context.Background()

	future := domain.NewAuction(uuid.New(), uuid.New(), decimal.NewFromInt(5), t0.Add(time.Hour), 30, t0)
	require.NoError(t, repo.Create(ctx, future))

	got, err := repo.ListDuePending(ctx, t0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.ListDuePending(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.StatusPending, got[0].Status)
}

func TestAuctionRepository_List(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAuctionRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		testutil.SeedAuction(t, db, "10", 5, t0.Add(time.Duration(i)*time.Minute))
	}
	pending := domain.NewAuction(uuid.New(), uuid.New(), decimal.NewFromInt(5), t0.Add(time.Hour), 30, t0)
	require.NoError(t, repo.Create(ctx, pending))

	all, total, err := repo.List(ctx, domain.AuctionFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, all, 2)

	active, total, err := repo.List(ctx, domain.AuctionFilter{Status: domain.StatusActive}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, active, 3)

	bySeller, total, err := repo.List(ctx, domain.AuctionFilter{SellerID: pending.SellerID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, bySeller, 1)
	assert.Equal(t, pending.ID, bySeller[0].ID)

	none, total, err := repo.List(ctx, domain.AuctionFilter{Status: domain.StatusActive, SellerID: pending.SellerID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, none)
}

func TestAuctionRepository_UnknownStatusIsIntegrityError(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAuctionRepository(db)
	ctx := context.Background()
	a := testutil.SeedAuction(t, db, "10", 5, t0)

	// Bypass the CHECK constraint the way a foreign writer might.
	_, err := db.ExecContext(ctx, `PRAGMA ignore_check_constraints = ON`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE auctions SET status = 'archived' WHERE id = ?`, a.ID)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, a.ID)
	require.ErrorIs(t, err, domain.ErrDataIntegrity)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
}
