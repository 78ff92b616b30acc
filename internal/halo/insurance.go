package halo

import "github.com/kunal-drall/halo/internal/safemath"

// Insurance stake bounds, as a percentage of the circle's contribution
// amount, and the bonus paid when a clean stake is returned.
const (
	MinInsurancePercent   = 10
	MaxInsurancePercent   = 20
	InsuranceBonusPercent = 5
)

// MemberInsuranceStake is one member's position in a circle's insurance pool.
type MemberInsuranceStake struct {
	Member       string
	AmountStaked uint64
	// CanClaim is cleared when the member defaults; a slashed member keeps
	// their roster entry but loses the right to claim.
	CanClaim bool
}

// InsurancePool is the mutual-coverage fund attached to one circle. Members
// stake between 10% and 20% of the contribution amount; when a member
// defaults, their entire stake is forfeited to coverage and the remaining
// members claim shares of it in proportion to their own stakes.
type InsurancePool struct {
	CircleID          uint64
	TotalStaked       uint64
	AvailableCoverage uint64
	ClaimsPaid        uint64
	Stakes            []MemberInsuranceStake
}

// InsuranceStakeBounds returns the smallest and largest stake accepted for a
// circle with the given contribution amount.
func InsuranceStakeBounds(contributionAmount uint64) (min, max uint64, err error) {
	min, err = percentOf(contributionAmount, MinInsurancePercent)
	if err != nil {
		return 0, 0, err
	}
	max, err = percentOf(contributionAmount, MaxInsurancePercent)
	if err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

// ValidateInsuranceStake checks a proposed stake against the circle's bounds.
func ValidateInsuranceStake(amount, contributionAmount uint64) error {
	min, max, err := InsuranceStakeBounds(contributionAmount)
	if err != nil {
		return err
	}
	if amount < min {
		return ErrInsufficientInsurance
	}
	if amount > max {
		return ErrExcessiveInsurance
	}
	return nil
}

// InsuranceReturnAmount is the payout when a clean member withdraws their
// stake: the stake plus the completion bonus.
func InsuranceReturnAmount(stake uint64) (uint64, error) {
	bonus, err := percentOf(stake, InsuranceBonusPercent)
	if err != nil {
		return 0, err
	}
	total, ok := safemath.Add(stake, bonus)
	if !ok {
		return 0, ErrArithmeticOverflow
	}
	return total, nil
}

// Claimable returns the share of a defaulted member's forfeited stake owed to
// claimant: defaulted stake times claimant stake over the pool total.
func (p *InsurancePool) Claimable(claimant, defaulted string) (uint64, error) {
	ci := p.findStake(claimant)
	if ci < 0 {
		return 0, ErrMemberNotFound
	}
	if !p.Stakes[ci].CanClaim {
		return 0, ErrNoClaimableInsurance
	}
	di := p.findStake(defaulted)
	if di < 0 {
		return 0, ErrMemberNotFound
	}
	if p.TotalStaked == 0 {
		return 0, ErrNoClaimableInsurance
	}
	scaled, ok := safemath.Mul(p.Stakes[di].AmountStaked, p.Stakes[ci].AmountStaked)
	if !ok {
		return 0, ErrArithmeticOverflow
	}
	share, _ := safemath.Div(scaled, p.TotalStaked)
	if share == 0 {
		return 0, ErrNoClaimableInsurance
	}
	if share > p.AvailableCoverage {
		return 0, ErrInsufficientCoverage
	}
	return share, nil
}

// Slash forfeits a defaulting member's entire stake into the pool's coverage
// and revokes their claim right. It returns the forfeited amount.
func (p *InsurancePool) Slash(member string) (uint64, error) {
	i := p.findStake(member)
	if i < 0 {
		return 0, ErrMemberNotFound
	}
	forfeited := p.Stakes[i].AmountStaked
	coverage, ok := safemath.Add(p.AvailableCoverage, forfeited)
	if !ok {
		return 0, ErrArithmeticOverflow
	}
	p.AvailableCoverage = coverage
	p.Stakes[i].CanClaim = false
	return forfeited, nil
}

func (p *InsurancePool) findStake(member string) int {
	for i := range p.Stakes {
		if p.Stakes[i].Member == member {
			return i
		}
	}
	return -1
}

func percentOf(amount, pct uint64) (uint64, error) {
	scaled, ok := safemath.Mul(amount, pct)
	if !ok {
		return 0, ErrArithmeticOverflow
	}
	v, _ := safemath.Div(scaled, 100)
	return v, nil
}
