package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Role
// ──────────────────────────────────────────────────────────────────────────────

// Role tags a caller with its marketplace capabilities.
type Role string

const (
	RoleAdmin  Role = "admin"  // creates, activates, cancels and ends any auction
	RoleSeller Role = "seller" // owns auctions and may end their own
	RoleBuyer  Role = "buyer"  // places bids
)

// ParseRole validates a role tag read from a token.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleSeller, RoleBuyer:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, s)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Principal
// ──────────────────────────────────────────────────────────────────────────────

// Principal is the authenticated caller as asserted by the account subsystem.
type Principal struct {
	UserID      uuid.UUID `json:"user_id"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name"`
}

// CanBid reports whether the principal may place bids.
func (p Principal) CanBid() bool {
	switch p.Role {
	case RoleBuyer, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanManage reports whether the principal may force-close the auction.
func (p Principal) CanManage(a *Auction) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleSeller:
		return a != nil && a.SellerID == p.UserID
	default:
		return false
	}
}
