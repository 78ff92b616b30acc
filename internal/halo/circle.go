package halo

import (
	"fmt"
	"strings"
	"time"
)

// Protocol bounds for circle configuration.
const (
	MaxMembers     = 20
	MaxDuration    = 24 // months
	MaxPenaltyRate = 10000
	// MonthSeconds is the fixed 30-day month used for all schedule math.
	MonthSeconds = 30 * 24 * 60 * 60
)

// CircleStatus is the lifecycle state of a circle. Active is the only state
// that accepts value-moving operations; Completed and Terminated are terminal.
type CircleStatus string

const (
	CircleActive     CircleStatus = "active"
	CircleCompleted  CircleStatus = "completed"
	CircleTerminated CircleStatus = "terminated"
)

// MemberStatus is the lifecycle state of one membership.
type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberDefaulted MemberStatus = "defaulted"
	MemberExited    MemberStatus = "exited"
)

// Circle is one rotating-savings group.
type Circle struct {
	// ID is derived from the creation time.
	ID      uint64
	Creator string
	// ContributionAmount is the fixed monthly contribution in token units.
	ContributionAmount uint64
	DurationMonths     int
	MaxMembers         int
	CurrentMembers     int
	// CurrentMonth is the last month index observed by a contribution.
	CurrentMonth int
	// PenaltyRate is in basis points (10000 = 100%).
	PenaltyRate int
	Status      CircleStatus
	CreatedAt   int64
	// Members is the roster in join order.
	Members []string
	// TotalPot is the sum of all recorded contributions minus distributions.
	TotalPot uint64
}

// MonthIndex returns the month slot the given instant falls into:
// min((now-created_at)/30 days, duration-1). The original protocol drives
// every month-sensitive operation off this same coarse formula, so the
// approximation stays self-consistent even when real calendar months drift.
func (c *Circle) MonthIndex(now time.Time) int {
	elapsed := now.Unix() - c.CreatedAt
	if elapsed < 0 {
		return 0
	}
	month := int(elapsed / MonthSeconds)
	if month > c.DurationMonths-1 {
		month = c.DurationMonths - 1
	}
	return month
}

// HasMember reports whether identity is on the circle's roster.
func (c *Circle) HasMember(identity string) bool {
	for _, m := range c.Members {
		if m == identity {
			return true
		}
	}
	return false
}

// Member is one participant's stake in one circle.
type Member struct {
	CircleID uint64
	Identity string
	// StakeAmount is the collateral posted at join, held in escrow.
	StakeAmount uint64
	// ContributionHistory holds the amount paid per month, zero = unpaid.
	// Length equals the circle duration.
	ContributionHistory []uint64
	Status              MemberStatus
	HasReceivedPot      bool
	// Penalties is the accrued, unclaimed penalty balance.
	Penalties uint64
	JoinedAt  int64
	// TrustScore and TrustTier are cached from the identity's trust record
	// at join/contribution time.
	TrustScore int
	TrustTier  Tier
	// ContributionsMissed counts unpaid elapsed months in this circle.
	ContributionsMissed int
}

// MemberContribution is one entry in a month's roll-up.
type MemberContribution struct {
	Member    string
	Amount    uint64
	Timestamp int64
}

// MonthlyContribution is the per-month roll-up inside a circle.
type MonthlyContribution struct {
	Month          int
	Contributions  []MemberContribution
	TotalCollected uint64
	// DistributedTo is set at most once, when the month's pot is paid out.
	DistributedTo string
}

// Escrow is the custodial record shadowing a circle's pooled funds.
type Escrow struct {
	CircleID uint64
	// TotalAmount equals all stakes and contributions held minus all
	// distributions, refunds, and penalty claims paid out.
	TotalAmount uint64
	// MonthlyPots holds the per-month contribution subtotal, length equals
	// the circle duration.
	MonthlyPots []uint64
}

// EscrowAccountID is the ledger account that holds a circle's pooled funds.
func EscrowAccountID(circleID uint64) string {
	return fmt.Sprintf("escrow:%d", circleID)
}

// EscrowAuthority is the derived signing authority for a circle's escrow
// account. It has no credential of its own; the circle services present it
// when paying out of escrow, mirroring a program-derived signer.
func EscrowAuthority(circleID uint64) string {
	return fmt.Sprintf("escrow-authority:%d", circleID)
}

// AuctionAccountID is the ledger account that buffers bids for one auction.
func AuctionAccountID(auctionID uint64) string {
	return fmt.Sprintf("auction:%d", auctionID)
}

// AuctionAuthority is the derived signing authority for an auction's escrow
// account.
func AuctionAuthority(auctionID uint64) string {
	return fmt.Sprintf("auction-authority:%d", auctionID)
}

// ReservedIdentity reports whether identity names a derived account or
// signing authority. Reserved identities never authenticate: a token issued
// for one would let its holder sign as an escrow, auction, or treasury
// authority.
func ReservedIdentity(identity string) bool {
	if identity == TreasuryAccountID || identity == TreasuryAuthority {
		return true
	}
	for _, prefix := range []string{"escrow:", "escrow-authority:", "auction:", "auction-authority:"} {
		if strings.HasPrefix(identity, prefix) {
			return true
		}
	}
	return false
}
