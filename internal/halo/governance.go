package halo

// Governance limits.
const (
	MaxProposalTitleLen       = 200
	MaxProposalDescriptionLen = 1000
	MaxVotingDurationHours    = 7 * 24
)

// ProposalType selects what an executed proposal changes.
type ProposalType string

const (
	ProposalInterestRateChange ProposalType = "interest_rate_change"
	ProposalCircleParameter    ProposalType = "circle_parameter"
	ProposalEmergency          ProposalType = "emergency"
)

// ProposalStatus is the lifecycle state of a proposal. A proposal that is
// never executed simply goes stale after its voting window.
type ProposalStatus string

const (
	ProposalActive   ProposalStatus = "active"
	ProposalExecuted ProposalStatus = "executed"
)

// Proposal is one governance proposal scoped to a circle.
type Proposal struct {
	ID          uint64
	CircleID    uint64
	Proposer    string
	Title       string
	Description string
	Type        ProposalType
	Status      ProposalStatus
	VotingStart int64
	VotingEnd   int64
	// ExecutionThreshold is the minimum raw voting power required.
	ExecutionThreshold uint64
	TotalVotingPower   uint64
	VotesFor           uint64
	VotesAgainst       uint64
	QuadraticFor       uint64
	QuadraticAgainst   uint64
	Executed           bool
	ExecutedAt         int64
	// NewInterestRate holds the replacement penalty rate in basis points for
	// interest-rate proposals; nil otherwise.
	NewInterestRate *int
}

// HasPassed reports whether the proposal clears both the quadratic majority
// and the raw-power threshold.
func (p *Proposal) HasPassed() bool {
	return p.QuadraticFor > p.QuadraticAgainst && p.TotalVotingPower >= p.ExecutionThreshold
}

// VotingEnded reports whether the voting window has closed at the given time.
func (p *Proposal) VotingEnded(now int64) bool { return now >= p.VotingEnd }

// Vote is one voter's record on one proposal; unique per (proposal, voter).
type Vote struct {
	ID          string
	ProposalID  uint64
	Voter       string
	VotingPower uint64
	// QuadraticWeight is floor(sqrt(VotingPower)).
	QuadraticWeight uint64
	Support         bool
	Timestamp       int64
}
