package halo

import "github.com/kunal-drall/halo/internal/safemath"

// MinYieldDeposit is the smallest amount of escrow that can be moved into the
// external yield venue.
const MinYieldDeposit = 100_000_000

// MemberYieldShare tracks one member's accrued and claimed yield.
type MemberYieldShare struct {
	Member  string
	Earned  uint64
	Claimed uint64
}

// YieldPosition tracks the portion of a circle's escrow deployed to an
// external lending venue. VenueBalance is the principal plus accrued yield as
// last reported by the venue; the difference against the previous report is
// split equally across the member shares.
type YieldPosition struct {
	CircleID         uint64
	DepositedBalance uint64
	VenueBalance     uint64
	TotalYieldEarned uint64
	LastCalculation  int64
	Shares           []MemberYieldShare
}

// Deposit moves amount into the venue. Deposits below the minimum are
// rejected before any balance changes.
func (p *YieldPosition) Deposit(amount uint64) error {
	if amount < MinYieldDeposit {
		return ErrBelowMinimumDeposit
	}
	deposited, ok := safemath.Add(p.DepositedBalance, amount)
	if !ok {
		return ErrArithmeticOverflow
	}
	venue, ok := safemath.Add(p.VenueBalance, amount)
	if !ok {
		return ErrArithmeticOverflow
	}
	p.DepositedBalance = deposited
	p.VenueBalance = venue
	return nil
}

// Withdraw pulls amount back out of the venue. Withdrawals beyond the venue
// balance fail; principal is reduced first and accrued yield absorbs the rest.
func (p *YieldPosition) Withdraw(amount uint64) error {
	venue, ok := safemath.Sub(p.VenueBalance, amount)
	if !ok {
		return ErrInsufficientYield
	}
	p.VenueBalance = venue
	if deposited, ok := safemath.Sub(p.DepositedBalance, amount); ok {
		p.DepositedBalance = deposited
	} else {
		p.DepositedBalance = 0
	}
	return nil
}

// Accrue folds a fresh venue balance report into the position, splitting the
// gain since the last report equally across the member shares. A report below
// the tracked balance is rejected.
func (p *YieldPosition) Accrue(venueBalance uint64, now int64) error {
	gain, ok := safemath.Sub(venueBalance, p.VenueBalance)
	if !ok {
		return ErrInsufficientYield
	}
	if len(p.Shares) > 0 {
		per, _ := safemath.Div(gain, uint64(len(p.Shares)))
		for i := range p.Shares {
			earned, ok := safemath.Add(p.Shares[i].Earned, per)
			if !ok {
				return ErrArithmeticOverflow
			}
			p.Shares[i].Earned = earned
		}
	}
	total, ok := safemath.Add(p.TotalYieldEarned, gain)
	if !ok {
		return ErrArithmeticOverflow
	}
	p.TotalYieldEarned = total
	p.VenueBalance = venueBalance
	p.LastCalculation = now
	return nil
}

// Claim pays out a member's unclaimed yield and returns the amount. Members
// may only claim their own share.
func (p *YieldPosition) Claim(caller, member string) (uint64, error) {
	if caller != member {
		return 0, ErrUnauthorized
	}
	var share *MemberYieldShare
	for i := range p.Shares {
		if p.Shares[i].Member == member {
			share = &p.Shares[i]
			break
		}
	}
	if share == nil {
		return 0, ErrMemberNotFound
	}
	due, _ := safemath.Sub(share.Earned, share.Claimed)
	if due == 0 {
		return 0, ErrNoClaimableYield
	}
	share.Claimed = share.Earned
	return due, nil
}
