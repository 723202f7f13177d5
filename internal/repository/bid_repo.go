package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/evetabi/auction/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const bidColumns = `id, auction_id, bidder_id, bidder_name, amount, placed_at, is_winning`

// BidRepository handles all database operations for Bids. Bids are
// append-only apart from the is_winning flag.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository creates a new BidRepository.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create inserts a bid inside an existing transaction.
func (r *BidRepository) Create(ctx context.Context, tx *sqlx.Tx, b *domain.Bid) error {
	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES (:id, :auction_id, :bidder_id, :bidder_name, :amount, :placed_at, :is_winning)`
	if _, err := tx.NamedExecContext(ctx, query, b); err != nil {
		return storeErr("bid_repo.Create", err)
	}
	return nil
}

// DemoteOthers clears is_winning on every bid of the auction except keepID.
// Must run in the same transaction as the insert of the new winning bid.
func (r *BidRepository) DemoteOthers(ctx context.Context, tx *sqlx.Tx, auctionID, keepID uuid.UUID) (int64, error) {
	res, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE bids SET is_winning = ? WHERE auction_id = ? AND id <> ? AND is_winning = ?`),
		false, auctionID, keepID, true)
	if err != nil {
		return 0, storeErr("bid_repo.DemoteOthers", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("bid_repo.DemoteOthers rows", err)
	}
	return n, nil
}

// ListByAuction returns the bids on an auction, newest first.
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID, limit, offset int) ([]*domain.Bid, error) {
	bids := []*domain.Bid{}
	err := r.db.SelectContext(ctx, &bids,
		r.db.Rebind(`SELECT `+bidColumns+` FROM bids
		 WHERE auction_id = ?
		 ORDER BY placed_at DESC, id
		 LIMIT ? OFFSET ?`),
		auctionID, limit, offset)
	if err != nil {
		return nil, storeErr("bid_repo.ListByAuction", err)
	}
	return bids, nil
}

// ListByBidder returns a bidder's bids across all auctions, newest first.
func (r *BidRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID, limit, offset int) ([]*domain.Bid, error) {
	bids := []*domain.Bid{}
	err := r.db.SelectContext(ctx, &bids,
		r.db.Rebind(`SELECT `+bidColumns+` FROM bids
		 WHERE bidder_id = ?
		 ORDER BY placed_at DESC
		 LIMIT ? OFFSET ?`),
		bidderID, limit, offset)
	if err != nil {
		return nil, storeErr("bid_repo.ListByBidder", err)
	}
	return bids, nil
}

// GetWinning returns the auction's current winning bid, or nil when nobody
// has bid.
func (r *BidRepository) GetWinning(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	var b domain.Bid
	err := r.db.GetContext(ctx, &b,
		r.db.Rebind(`SELECT `+bidColumns+` FROM bids WHERE auction_id = ? AND is_winning = ?`),
		auctionID, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("bid_repo.GetWinning", err)
	}
	return &b, nil
}

// CountWinning returns how many bids on the auction carry is_winning.
func (r *BidRepository) CountWinning(ctx context.Context, auctionID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		r.db.Rebind(`SELECT COUNT(*) FROM bids WHERE auction_id = ? AND is_winning = ?`),
		auctionID, true)
	if err != nil {
		return 0, storeErr("bid_repo.CountWinning", err)
	}
	return n, nil
}
