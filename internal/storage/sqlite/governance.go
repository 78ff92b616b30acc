package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kunal-drall/halo/internal/halo"
)

// CreateProposal inserts a proposal row.
func (t *sqlTx) CreateProposal(ctx context.Context, p *halo.Proposal) error {
	var rate any
	if p.NewInterestRate != nil {
		rate = *p.NewInterestRate
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO proposals (id, circle_id, proposer, title, description, proposal_type,
			status, voting_start, voting_end, execution_threshold, total_voting_power,
			votes_for, votes_against, quadratic_for, quadratic_against, executed, executed_at,
			new_interest_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(p.ID), int64(p.CircleID), p.Proposer, p.Title, p.Description, string(p.Type),
		string(p.Status), p.VotingStart, p.VotingEnd, int64(p.ExecutionThreshold), int64(p.TotalVotingPower),
		int64(p.VotesFor), int64(p.VotesAgainst), int64(p.QuadraticFor), int64(p.QuadraticAgainst),
		p.Executed, p.ExecutedAt, rate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", err)
	}
	return nil
}

// GetProposal retrieves a proposal by ID.
func (t *sqlTx) GetProposal(ctx context.Context, id uint64) (*halo.Proposal, error) {
	p := &halo.Proposal{}
	var pid, cid, threshold, totalPower, votesFor, votesAgainst, qFor, qAgainst int64
	var ptype, status string
	var rate sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, circle_id, proposer, title, description, proposal_type, status,
			voting_start, voting_end, execution_threshold, total_voting_power,
			votes_for, votes_against, quadratic_for, quadratic_against, executed, executed_at,
			new_interest_rate
		FROM proposals WHERE id = ?`, int64(id),
	).Scan(&pid, &cid, &p.Proposer, &p.Title, &p.Description, &ptype, &status,
		&p.VotingStart, &p.VotingEnd, &threshold, &totalPower,
		&votesFor, &votesAgainst, &qFor, &qAgainst, &p.Executed, &p.ExecutedAt, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	p.ID = uint64(pid)
	p.CircleID = uint64(cid)
	p.Type = halo.ProposalType(ptype)
	p.Status = halo.ProposalStatus(status)
	p.ExecutionThreshold = uint64(threshold)
	p.TotalVotingPower = uint64(totalPower)
	p.VotesFor = uint64(votesFor)
	p.VotesAgainst = uint64(votesAgainst)
	p.QuadraticFor = uint64(qFor)
	p.QuadraticAgainst = uint64(qAgainst)
	if rate.Valid {
		r := int(rate.Int64)
		p.NewInterestRate = &r
	}
	return p, nil
}

// UpdateProposal persists tallies and execution state.
func (t *sqlTx) UpdateProposal(ctx context.Context, p *halo.Proposal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE proposals SET status = ?, total_voting_power = ?, votes_for = ?, votes_against = ?,
			quadratic_for = ?, quadratic_against = ?, executed = ?, executed_at = ?
		WHERE id = ?`,
		string(p.Status), int64(p.TotalVotingPower), int64(p.VotesFor), int64(p.VotesAgainst),
		int64(p.QuadraticFor), int64(p.QuadraticAgainst), p.Executed, p.ExecutedAt,
		int64(p.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}
	return requireRow(res, halo.ErrProposalNotFound)
}

// HasVote reports whether voter already has a vote row on the proposal.
func (t *sqlTx) HasVote(ctx context.Context, proposalID uint64, voter string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM votes WHERE proposal_id = ? AND voter = ?",
		int64(proposalID), voter).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return n > 0, nil
}

// CreateVote inserts a vote row; the (proposal, voter) unique key backstops
// the service-level AlreadyVoted check.
func (t *sqlTx) CreateVote(ctx context.Context, v *halo.Vote) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO votes (id, proposal_id, voter, voting_power, quadratic_weight, support, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, int64(v.ProposalID), v.Voter, int64(v.VotingPower), int64(v.QuadraticWeight),
		v.Support, v.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}
