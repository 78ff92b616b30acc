package halo

import "fmt"

// Error is a protocol error with a stable machine-readable code. Every state
// transition that rejects a request returns one of the values below, and the
// whole request aborts with no partial mutation.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func protoErr(code, message string) *Error { return &Error{Code: code, Message: message} }

// Validation errors: rejected before any state is touched.
var (
	ErrInvalidContributionAmount = protoErr("InvalidContributionAmount", "invalid contribution amount")
	ErrInvalidDuration           = protoErr("InvalidDuration", "invalid duration")
	ErrInvalidMaxMembers         = protoErr("InvalidMaxMembers", "invalid max members")
	ErrInvalidPenaltyRate        = protoErr("InvalidPenaltyRate", "invalid penalty rate")
	ErrInvalidSocialProof        = protoErr("InvalidSocialProof", "invalid social proof")
	ErrInvalidProposalType       = protoErr("InvalidProposalType", "invalid proposal type")
	ErrProposalTitleTooLong      = protoErr("TitleTooLong", "proposal title too long or empty")
	ErrDescriptionTooLong        = protoErr("DescriptionTooLong", "proposal description too long")
	ErrInvalidVotingPeriod       = protoErr("InvalidVotingPeriod", "invalid voting period")
	ErrInvalidAuctionDuration    = protoErr("InvalidAuctionDuration", "invalid auction duration")
	ErrInvalidFeeRate            = protoErr("InvalidFeeRate", "invalid fee rate")
	ErrSelfTransfer              = protoErr("SelfTransfer", "transfer source and destination are the same account")
	ErrInsufficientInsurance     = protoErr("InsufficientInsurance", "insurance stake below minimum")
	ErrExcessiveInsurance        = protoErr("ExcessiveInsurance", "insurance stake above maximum")
	ErrBelowMinimumDeposit       = protoErr("BelowMinimumDeposit", "yield deposit below minimum")
)

// State-precondition errors: the record exists but is in the wrong state for
// the requested transition.
var (
	ErrCircleNotActive        = protoErr("CircleNotActive", "circle is not active")
	ErrCircleEnded            = protoErr("CircleEnded", "circle has already ended")
	ErrMemberInDefault        = protoErr("MemberInDefault", "member is in default")
	ErrMemberNotDefaulted     = protoErr("MemberNotDefaulted", "member is not in default")
	ErrCannotLeaveActive      = protoErr("CannotLeaveActivePeriod", "cannot leave circle during active period")
	ErrMemberReceivedPot      = protoErr("MemberAlreadyReceivedPot", "member has already received pot")
	ErrNothingToDistribute    = protoErr("NoContributionsToDistribute", "no contributions to distribute")
	ErrProposalNotActive      = protoErr("ProposalNotActive", "proposal not active")
	ErrVotingPeriodEnded      = protoErr("VotingPeriodEnded", "voting period has ended")
	ErrVotingNotEnded         = protoErr("VotingPeriodNotEnded", "voting period has not ended")
	ErrThresholdNotMet        = protoErr("ExecutionThresholdNotMet", "proposal execution threshold not met")
	ErrProposalExecuted       = protoErr("ProposalAlreadyExecuted", "proposal already executed")
	ErrAuctionNotActive       = protoErr("AuctionNotActive", "auction not active")
	ErrAuctionHasEnded        = protoErr("AuctionHasEnded", "auction has ended")
	ErrAuctionNotEnded        = protoErr("AuctionNotEnded", "auction not ended")
	ErrAuctionSettled         = protoErr("AuctionAlreadySettled", "auction already settled")
	ErrNoPotForAuction        = protoErr("NoPotAvailableForAuction", "no pot available for auction")
	ErrTreasuryExists         = protoErr("TreasuryAlreadyInitialized", "treasury already initialized")
	ErrTreasuryNotInitialized = protoErr("TreasuryNotInitialized", "treasury not initialized")
	ErrCollectionTooFrequent  = protoErr("RevenueCollectionTooFrequent", "revenue collection too frequent")
	ErrCompletionNotReached   = protoErr("CircleNotCompleted", "circle is not completed")
	ErrNoPenaltyToClaim       = protoErr("NoPenaltyToClaim", "member has no accrued penalty")
	ErrNoMissedContribution   = protoErr("NoMissedContribution", "no unpaid elapsed month to mark")
	ErrNoClaimableInsurance   = protoErr("NoClaimableInsurance", "no claimable insurance for member")
	ErrNoClaimableYield       = protoErr("NoClaimableYield", "no claimable yield for member")
)

// Duplicate / uniqueness errors.
var (
	ErrMemberAlreadyExists      = protoErr("MemberAlreadyExists", "member already exists in circle")
	ErrContributionAlreadyMade  = protoErr("ContributionAlreadyMade", "contribution already made for this month")
	ErrPotAlreadyDistributed    = protoErr("PotAlreadyDistributed", "pot already distributed for this month")
	ErrSocialProofExists        = protoErr("SocialProofAlreadyExists", "social proof already exists")
	ErrAlreadyVoted             = protoErr("AlreadyVoted", "already voted on this proposal")
	ErrCompletionCreditClaimed  = protoErr("CompletionCreditAlreadyClaimed", "completion credit already claimed")
	ErrTrustScoreAlreadyExists  = protoErr("TrustScoreAlreadyExists", "trust score already initialized")
	ErrRevenueParamsAlreadySet  = protoErr("RevenueParamsAlreadyInitialized", "revenue params already initialized")
)

// Authorization errors.
var (
	ErrUnauthorizedRevenue = protoErr("UnauthorizedRevenueOperation", "unauthorized revenue operation")
	ErrCannotBidOwnAuction = protoErr("CannotBidOnOwnAuction", "cannot bid on own auction")
	ErrUnauthorized        = protoErr("Unauthorized", "caller is not authorized for this operation")
)

// Arithmetic errors.
var (
	ErrArithmeticOverflow = protoErr("ArithmeticOverflow", "arithmetic overflow")
)

// Resource-exhaustion errors.
var (
	ErrCircleFull           = protoErr("CircleFull", "circle is full")
	ErrInsufficientStake    = protoErr("InsufficientStake", "insufficient stake amount")
	ErrInsufficientStakeBid = protoErr("InsufficientStakeForBid", "insufficient stake for bid")
	ErrBidTooLow            = protoErr("BidTooLow", "bid too low")
	ErrInsufficientVotes    = protoErr("InsufficientVotingPower", "insufficient voting power")
	ErrInsufficientFunds    = protoErr("InsufficientFunds", "insufficient ledger balance")
	ErrInsufficientCoverage = protoErr("InsufficientCoverage", "insufficient insurance coverage")
	ErrInsufficientYield    = protoErr("InsufficientYieldBalance", "insufficient deposited yield balance")
)

// Not-found errors.
var (
	ErrCircleNotFound     = protoErr("CircleNotFound", "circle not found")
	ErrMemberNotFound     = protoErr("MemberNotFound", "member not found in circle")
	ErrTrustScoreNotFound = protoErr("TrustScoreNotFound", "trust score account not found")
	ErrProposalNotFound   = protoErr("ProposalNotFound", "proposal not found")
	ErrAuctionNotFound    = protoErr("AuctionNotFound", "auction not found")
	ErrAccountNotFound    = protoErr("AccountNotFound", "ledger account not found")
)
