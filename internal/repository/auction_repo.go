package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evetabi/auction/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const auctionColumns = `id, product_id, seller_id, starting_price, current_highest_bid,
	current_highest_bidder_id, start_time, end_time, duration_minutes, status,
	is_active, is_completed, total_bids, version, created_at, updated_at`

// AuctionRepository handles all database operations for Auctions.
type AuctionRepository struct {
	db *sqlx.DB
}

// NewAuctionRepository creates a new AuctionRepository.
func NewAuctionRepository(db *sqlx.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

// Create inserts a new auction row.
func (r *AuctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES
			(:id, :product_id, :seller_id, :starting_price, :current_highest_bid,
			 :current_highest_bidder_id, :start_time, :end_time, :duration_minutes, :status,
			 :is_active, :is_completed, :total_bids, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return storeErr("auction_repo.Create", err)
	}
	return nil
}

// GetByID fetches an auction by its primary key.
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return r.get(ctx, r.db, id)
}

func (r *AuctionRepository) get(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*domain.Auction, error) {
	var a domain.Auction
	err := sqlx.GetContext(ctx, q, &a,
		q.Rebind(`SELECT `+auctionColumns+` FROM auctions WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, storeErr("auction_repo.GetByID", err)
	}
	return &a, nil
}

// List returns a paginated slice of auctions, newest first, narrowed by f.
// Returns (auctions, totalCount, error).
func (r *AuctionRepository) List(ctx context.Context, f domain.AuctionFilter, limit, offset int) ([]*domain.Auction, int, error) {
	var conds []string
	args := []interface{}{}
	if f.Status != "" {
		conds, args = append(conds, `status = ?`), append(args, f.Status)
	}
	if f.SellerID != uuid.Nil {
		conds, args = append(conds, `seller_id = ?`), append(args, f.SellerID)
	}
	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		r.db.Rebind(`SELECT COUNT(*) FROM auctions`+where), args...); err != nil {
		return nil, 0, storeErr("auction_repo.List count", err)
	}

	auctions := []*domain.Auction{}
	err := r.db.SelectContext(ctx, &auctions,
		r.db.Rebind(`SELECT `+auctionColumns+` FROM auctions`+where+
			` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, storeErr("auction_repo.List select", err)
	}
	return auctions, total, nil
}

// ListExpiredActive returns active auctions whose end time is strictly before
// now, oldest deadline first.
func (r *AuctionRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	auctions := []*domain.Auction{}
	err := r.db.SelectContext(ctx, &auctions,
		r.db.Rebind(`SELECT `+auctionColumns+` FROM auctions
		 WHERE status = ? AND end_time < ?
		 ORDER BY end_time ASC`),
		domain.StatusActive, now.UTC())
	if err != nil {
		return nil, storeErr("auction_repo.ListExpiredActive", err)
	}
	return auctions, nil
}

// ListDuePending returns pending auctions whose start time has been reached.
func (r *AuctionRepository) ListDuePending(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	auctions := []*domain.Auction{}
	err := r.db.SelectContext(ctx, &auctions,
		r.db.Rebind(`SELECT `+auctionColumns+` FROM auctions
		 WHERE status = ? AND start_time <= ?
		 ORDER BY start_time ASC`),
		domain.StatusPending, now.UTC())
	if err != nil {
		return nil, storeErr("auction_repo.ListDuePending", err)
	}
	return auctions, nil
}

// Replace writes every mutable column of a, conditioned on the stored version
// still equalling a.Version. When another writer got there first no row
// matches and ErrConcurrentModification is returned. On success a.Version is
// bumped to match the stored row. q may be the DB or an open transaction.
func (r *AuctionRepository) Replace(ctx context.Context, q sqlx.ExtContext, a *domain.Auction) error {
	query := `
		UPDATE auctions
		SET current_highest_bid       = :current_highest_bid,
		    current_highest_bidder_id = :current_highest_bidder_id,
		    start_time                = :start_time,
		    end_time                  = :end_time,
		    status                    = :status,
		    is_active                 = :is_active,
		    is_completed              = :is_completed,
		    total_bids                = :total_bids,
		    updated_at                = :updated_at,
		    version                   = version + 1
		WHERE id = :id AND version = :version`
	res, err := sqlx.NamedExecContext(ctx, q, query, a)
	if err != nil {
		return storeErr("auction_repo.Replace", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("auction_repo.Replace rows", err)
	}
	if n == 0 {
		return fmt.Errorf("auction_repo.Replace %s@%d: %w", a.ID, a.Version, domain.ErrConcurrentModification)
	}
	a.Version++
	return nil
}
