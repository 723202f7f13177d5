package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places the store keeps for prices.
const MoneyScale = 2

// IsMoney reports whether d fits MoneyScale exactly. Anything finer would be
// rounded on write and compared unrounded on read.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// ValidateBid checks a candidate amount against an auction snapshot. Rules
// are applied in order: the auction exists, it is active, now is strictly
// before the deadline, and the amount strictly exceeds the current highest
// bid. A nil return means the bid is accepted. No side effects.
func ValidateBid(a *Auction, amount decimal.Decimal, now time.Time) error {
	if a == nil {
		return ErrAuctionNotFound
	}
	if a.Status != StatusActive {
		return ErrAuctionNotActive
	}
	if !now.Before(a.EndTime) {
		return ErrAuctionExpired
	}
	if amount.LessThanOrEqual(a.CurrentHighestBid) {
		return ErrBidTooLow
	}
	return nil
}

// ExtendEndTime is the anti-sniping policy: every accepted bid resets the
// deadline to one full configured duration after acceptance, whatever time
// was left before.
func ExtendEndTime(now time.Time, durationMinutes int64) time.Time {
	return now.UTC().Add(time.Duration(durationMinutes) * time.Minute)
}

// ResolveWinner returns the highest bidder of a closed auction. There is no
// winner when nobody bid or the final price never rose above the starting
// price.
func ResolveWinner(a *Auction) (uuid.UUID, bool) {
	if a == nil || a.CurrentHighestBidderID == nil {
		return uuid.Nil, false
	}
	if !a.CurrentHighestBid.GreaterThan(a.StartingPrice) {
		return uuid.Nil, false
	}
	return *a.CurrentHighestBidderID, true
}
