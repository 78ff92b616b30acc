package halo

import "github.com/kunal-drall/halo/internal/safemath"

// Revenue parameter defaults and bounds, in basis points.
const (
	DefaultDistributionFeeRate = 50  // 0.5%
	DefaultYieldFeeRate        = 25  // 0.25%
	DefaultManagementFeeRate   = 200 // 2% annual
	MaxRevenueFeeRate          = 1000
	// DefaultManagementFeeInterval is the minimum spacing between management
	// fee collections.
	DefaultManagementFeeInterval = 30 * 24 * 60 * 60
	MinManagementFeeInterval     = 24 * 60 * 60
	secondsPerYear               = 365 * 24 * 60 * 60
)

// TreasuryAccountID is the ledger account holding collected protocol fees.
const TreasuryAccountID = "treasury"

// TreasuryAuthority is the derived signing authority of the treasury account.
const TreasuryAuthority = "treasury-authority"

// Treasury is the protocol-wide fee sink, a singleton record.
type Treasury struct {
	Authority                string
	TotalFeesCollected       uint64
	DistributionFees         uint64
	YieldFees                uint64
	ManagementFees           uint64
	LastManagementCollection int64
}

// RevenueParams holds the governance-adjustable fee schedule, a singleton
// record.
type RevenueParams struct {
	Authority             string
	DistributionFeeRate   int
	YieldFeeRate          int
	ManagementFeeRate     int
	ManagementFeeInterval int64
	LastUpdated           int64
}

// DefaultRevenueParams returns the fee schedule a fresh deployment starts
// with.
func DefaultRevenueParams(authority string, now int64) *RevenueParams {
	return &RevenueParams{
		Authority:             authority,
		DistributionFeeRate:   DefaultDistributionFeeRate,
		YieldFeeRate:          DefaultYieldFeeRate,
		ManagementFeeRate:     DefaultManagementFeeRate,
		ManagementFeeInterval: DefaultManagementFeeInterval,
		LastUpdated:           now,
	}
}

// DistributionFee returns the fee owed on a pot distribution of amount.
func (p *RevenueParams) DistributionFee(amount uint64) (uint64, error) {
	return bpsOf(amount, uint64(p.DistributionFeeRate))
}

// YieldFee returns the fee owed on a yield payout of amount.
func (p *RevenueParams) YieldFee(amount uint64) (uint64, error) {
	return bpsOf(amount, uint64(p.YieldFeeRate))
}

// ManagementFee returns the pro-rated annual management fee on a staked
// amount over elapsed seconds.
func (p *RevenueParams) ManagementFee(stake uint64, elapsedSeconds int64) (uint64, error) {
	if elapsedSeconds < 0 {
		return 0, nil
	}
	annual, err := bpsOf(stake, uint64(p.ManagementFeeRate))
	if err != nil {
		return 0, err
	}
	scaled, ok := safemath.Mul(annual, uint64(elapsedSeconds))
	if !ok {
		return 0, ErrArithmeticOverflow
	}
	fee, _ := safemath.Div(scaled, secondsPerYear)
	return fee, nil
}

func bpsOf(amount, rate uint64) (uint64, error) {
	scaled, ok := safemath.Mul(amount, rate)
	if !ok {
		return 0, ErrArithmeticOverflow
	}
	fee, _ := safemath.Div(scaled, 10000)
	return fee, nil
}
