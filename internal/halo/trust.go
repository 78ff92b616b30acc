package halo

// Tier is a reputation bracket gating collateral requirements.
type Tier string

const (
	TierNewcomer Tier = "newcomer"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Sub-score and proof caps.
const (
	MaxScore                 = 1000
	MaxPaymentHistoryScore   = 400
	MaxCompletionScore       = 300
	MaxExternalActivityScore = 200
	MaxSocialProofScore      = 100
	MaxSocialProofs          = 5
	MaxSocialProofLen        = 32
	// scorePerVerifiedProof is the social-proof sub-score granted per
	// verified attestation.
	scorePerVerifiedProof = 20
	// assumedMonthsPerCircle is the fixed payment-history assumption: every
	// joined circle is treated as twelve expected contributions regardless
	// of its actual duration.
	assumedMonthsPerCircle = 12
)

// TierForScore maps an overall score to its tier. Breakpoints are fixed at
// 250, 500, and 750.
func TierForScore(score int) Tier {
	switch {
	case score >= 750:
		return TierPlatinum
	case score >= 500:
		return TierGold
	case score >= 250:
		return TierSilver
	default:
		return TierNewcomer
	}
}

// StakeMultiplier returns the minimum-stake multiplier for a stored tier, in
// percent of the circle's contribution amount.
func (t Tier) StakeMultiplier() uint64 {
	switch t {
	case TierPlatinum:
		return 75
	case TierGold:
		return 100
	case TierSilver:
		return 150
	default:
		return 200
	}
}

// AbsentRecordStakeFactor is the flat multiplier applied when an identity has
// no trust record at all. It happens to equal the stored Newcomer policy
// (200/100) but is a deliberately separate policy; do not fold the two
// together.
const AbsentRecordStakeFactor = 2

// SocialProof is one attestation attached to a trust record.
type SocialProof struct {
	ProofType  string
	Identifier string
	Verified   bool
	Timestamp  int64
}

// TrustScore is the reputation record of one identity.
type TrustScore struct {
	Identity string
	// Score is always the sum of the four sub-scores, at most 1000.
	Score int
	Tier  Tier
	// Sub-scores, capped at 400/300/200/100 respectively.
	PaymentHistoryScore   int
	CompletionScore       int
	ExternalActivityScore int
	SocialProofScore      int
	CirclesCompleted      int
	CirclesJoined         int
	TotalContributions    uint64
	MissedContributions   int
	SocialProofs          []SocialProof
	LastUpdated           int64
}

// FindProof returns the index of the proof with the given (type, identifier)
// pair, or -1.
func (t *TrustScore) FindProof(proofType, identifier string) int {
	for i, p := range t.SocialProofs {
		if p.ProofType == proofType && p.Identifier == identifier {
			return i
		}
	}
	return -1
}

// Recalculate recomputes the four sub-scores, the total, and the tier from
// the record's raw counters. It is a pure function of the receiver; the caps
// guarantee the total never exceeds 1000, so no runtime overflow check is
// needed here.
func (t *TrustScore) Recalculate() {
	// Payment history: share of expected contributions made, out of a fixed
	// twelve expected months per joined circle.
	paymentRatio := 0
	if t.CirclesJoined > 0 {
		expected := t.CirclesJoined * assumedMonthsPerCircle
		if expected > t.MissedContributions {
			paymentRatio = (expected - t.MissedContributions) * 100 / expected
		}
		if paymentRatio > 100 {
			paymentRatio = 100
		}
	}
	t.PaymentHistoryScore = min(paymentRatio*MaxPaymentHistoryScore/100, MaxPaymentHistoryScore)

	// Completion: share of joined circles carried to completion.
	completionRatio := 0
	if t.CirclesJoined > 0 {
		completionRatio = t.CirclesCompleted * 100 / t.CirclesJoined
	}
	t.CompletionScore = min(completionRatio*MaxCompletionScore/100, MaxCompletionScore)

	t.ExternalActivityScore = min(t.ExternalActivityScore, MaxExternalActivityScore)

	verified := 0
	for _, p := range t.SocialProofs {
		if p.Verified {
			verified++
		}
	}
	t.SocialProofScore = min(verified*scorePerVerifiedProof, MaxSocialProofScore)

	t.Score = t.PaymentHistoryScore + t.CompletionScore + t.ExternalActivityScore + t.SocialProofScore
	t.Tier = TierForScore(t.Score)
}
