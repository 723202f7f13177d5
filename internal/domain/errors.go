package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors: compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Auction errors
var (
	// ErrAuctionNotFound is returned when no auction matches the given id.
	ErrAuctionNotFound = errors.New("auction not found")

	// ErrAuctionNotActive is returned when a bid is placed on an auction that
	// is pending, completed or cancelled.
	ErrAuctionNotActive = errors.New("auction is not active")

	// ErrAuctionExpired is returned when a bid arrives at or after the auction
	// end time, even if the expiry sweep has not closed it yet.
	ErrAuctionExpired = errors.New("auction has ended")

	// ErrAlreadyCompleted is returned when ending an auction that is already
	// completed.
	ErrAlreadyCompleted = errors.New("auction is already completed")

	// ErrAuctionNotCompleted is returned when the winner of a live auction is
	// requested.
	ErrAuctionNotCompleted = errors.New("auction is not completed yet")

	// ErrInvalidAuction is returned when auction creation input is malformed
	// (non-positive starting price or duration).
	ErrInvalidAuction = errors.New("invalid auction parameters")
)

// Bid errors
var (
	// ErrBidTooLow is returned when the bid does not exceed the current
	// highest bid.
	ErrBidTooLow = errors.New("bid amount must be higher than current highest bid")

	// ErrInvalidBid is returned for malformed bid input (missing bidder,
	// non-positive amount).
	ErrInvalidBid = errors.New("invalid bid")
)

// Store errors
var (
	// ErrConcurrentModification is returned when a conditional replace finds
	// the auction changed since it was read. Callers may retry with a fresh read.
	ErrConcurrentModification = errors.New("auction was modified concurrently")

	// ErrStoreUnavailable wraps transport/persistence failures. The outcome of
	// the failed write is unknown.
	ErrStoreUnavailable = errors.New("auction store unavailable")

	// ErrDataIntegrity is returned when a stored record carries a tag the
	// engine does not recognise.
	ErrDataIntegrity = errors.New("stored record failed integrity check")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller's role does not allow the action.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenInvalid is returned when a token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true when err (or any error in its chain) is a "not
// found" error.
func IsNotFound(err error) bool {
	return isAny(err, ErrAuctionNotFound)
}

// IsRejection returns true for expected business outcomes of a bid or end
// request. These are returned to the caller and never retried.
func IsRejection(err error) bool {
	return isAny(err,
		ErrAuctionNotActive,
		ErrAuctionExpired,
		ErrBidTooLow,
		ErrAlreadyCompleted,
		ErrAuctionNotCompleted,
	)
}

// IsRetryable returns true only for transient optimistic-concurrency failures.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
