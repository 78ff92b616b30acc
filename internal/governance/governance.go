// Package governance implements circle-scoped proposals with quadratic vote
// tallying.
package governance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/safemath"
	"github.com/kunal-drall/halo/internal/storage"
)

// Service exposes the proposal lifecycle.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a governance service backed by the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateProposalParams carries the caller-supplied proposal fields.
type CreateProposalParams struct {
	CircleID           uint64
	Proposer           string
	Title              string
	Description        string
	Type               halo.ProposalType
	VotingDuration     time.Duration
	ExecutionThreshold uint64
	// NewInterestRate is required for interest-rate proposals, in basis
	// points.
	NewInterestRate *int
}

// CreateProposal opens a proposal on a circle. The proposer must be on the
// circle's roster and the voting window is capped at seven days.
func (s *Service) CreateProposal(ctx context.Context, p CreateProposalParams) (*halo.Proposal, error) {
	if p.Title == "" || len(p.Title) > halo.MaxProposalTitleLen {
		return nil, halo.ErrProposalTitleTooLong
	}
	if len(p.Description) > halo.MaxProposalDescriptionLen {
		return nil, halo.ErrDescriptionTooLong
	}
	switch p.Type {
	case halo.ProposalInterestRateChange:
		if p.NewInterestRate == nil || *p.NewInterestRate < 0 || *p.NewInterestRate > halo.MaxPenaltyRate {
			return nil, halo.ErrInvalidProposalType
		}
	case halo.ProposalCircleParameter, halo.ProposalEmergency:
	default:
		return nil, halo.ErrInvalidProposalType
	}
	if p.VotingDuration <= 0 || p.VotingDuration > halo.MaxVotingDurationHours*time.Hour {
		return nil, halo.ErrInvalidVotingPeriod
	}

	now := s.now()
	proposal := &halo.Proposal{
		ID:                 uint64(now.UnixNano()),
		CircleID:           p.CircleID,
		Proposer:           p.Proposer,
		Title:              p.Title,
		Description:        p.Description,
		Type:               p.Type,
		Status:             halo.ProposalActive,
		VotingStart:        now.Unix(),
		VotingEnd:          now.Add(p.VotingDuration).Unix(),
		ExecutionThreshold: p.ExecutionThreshold,
		NewInterestRate:    p.NewInterestRate,
	}
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, p.CircleID)
		if err != nil {
			return err
		}
		if !c.HasMember(p.Proposer) {
			return halo.ErrMemberNotFound
		}
		return tx.CreateProposal(ctx, proposal)
	})
	if err != nil {
		slog.Error("CreateProposal failed", "circle_id", p.CircleID, "proposer", p.Proposer, "error", err)
		return nil, err
	}
	slog.Info("proposal created", "proposal_id", proposal.ID, "circle_id", p.CircleID, "type", p.Type)
	return proposal, nil
}

// CastVote records one voter's choice, weighting it by floor(sqrt(power)).
// Each voter gets one vote per proposal.
func (s *Service) CastVote(ctx context.Context, proposalID uint64, voter string, votingPower uint64, support bool) (*halo.Vote, error) {
	if votingPower == 0 {
		return nil, halo.ErrInsufficientVotes
	}
	weight := safemath.Sqrt(votingPower)
	vote := &halo.Vote{
		ID:              uuid.New().String(),
		ProposalID:      proposalID,
		Voter:           voter,
		VotingPower:     votingPower,
		QuadraticWeight: weight,
		Support:         support,
		Timestamp:       s.now().Unix(),
	}
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		p, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.Status != halo.ProposalActive {
			return halo.ErrProposalNotActive
		}
		if p.VotingEnded(s.now().Unix()) {
			return halo.ErrVotingPeriodEnded
		}
		voted, err := tx.HasVote(ctx, proposalID, voter)
		if err != nil {
			return err
		}
		if voted {
			return halo.ErrAlreadyVoted
		}
		if err := tx.CreateVote(ctx, vote); err != nil {
			return err
		}

		p.TotalVotingPower, err = addU64(p.TotalVotingPower, votingPower)
		if err != nil {
			return err
		}
		if support {
			if p.VotesFor, err = addU64(p.VotesFor, votingPower); err != nil {
				return err
			}
			if p.QuadraticFor, err = addU64(p.QuadraticFor, weight); err != nil {
				return err
			}
		} else {
			if p.VotesAgainst, err = addU64(p.VotesAgainst, votingPower); err != nil {
				return err
			}
			if p.QuadraticAgainst, err = addU64(p.QuadraticAgainst, weight); err != nil {
				return err
			}
		}
		return tx.UpdateProposal(ctx, p)
	})
	if err != nil {
		slog.Error("CastVote failed", "proposal_id", proposalID, "voter", voter, "error", err)
		return nil, err
	}
	slog.Info("vote cast", "proposal_id", proposalID, "voter", voter, "weight", weight, "support", support)
	return vote, nil
}

// ExecuteProposal applies a passed proposal after its voting window closes.
// Interest-rate proposals overwrite the circle's penalty rate; the other
// types only mark execution.
func (s *Service) ExecuteProposal(ctx context.Context, proposalID uint64) error {
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		p, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.Executed {
			return halo.ErrProposalExecuted
		}
		now := s.now().Unix()
		if !p.VotingEnded(now) {
			return halo.ErrVotingNotEnded
		}
		if !p.HasPassed() {
			return halo.ErrThresholdNotMet
		}

		if p.Type == halo.ProposalInterestRateChange {
			c, err := tx.GetCircle(ctx, p.CircleID)
			if err != nil {
				return err
			}
			c.PenaltyRate = *p.NewInterestRate
			if err := tx.UpdateCircle(ctx, c); err != nil {
				return err
			}
		}

		p.Executed = true
		p.ExecutedAt = now
		p.Status = halo.ProposalExecuted
		return tx.UpdateProposal(ctx, p)
	})
	if err != nil {
		slog.Error("ExecuteProposal failed", "proposal_id", proposalID, "error", err)
		return err
	}
	slog.Info("proposal executed", "proposal_id", proposalID)
	return nil
}

// GetProposal returns one proposal.
func (s *Service) GetProposal(ctx context.Context, proposalID uint64) (*halo.Proposal, error) {
	var p *halo.Proposal
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		p, err = tx.GetProposal(ctx, proposalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func addU64(a, b uint64) (uint64, error) {
	sum, ok := safemath.Add(a, b)
	if !ok {
		return 0, halo.ErrArithmeticOverflow
	}
	return sum, nil
}
