// Package storage provides abstractions for persistent protocol state.
package storage

import (
	"context"

	"github.com/kunal-drall/halo/internal/halo"
)

// Store opens transactions against the protocol's persisted records.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Every public protocol operation runs inside exactly one Transact call: the
// callback either commits as a whole or leaves no trace, which supplies the
// all-or-nothing request boundary the protocol requires. Ledger movements
// share the same transaction, so a failed transfer rolls back every record
// mutation made alongside it.
type Store interface {
	// Transact runs fn inside a single transaction, committing if fn returns
	// nil and rolling back otherwise.
	Transact(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Tx is one open transaction over the record set.
//
// Not-found results are reported with the matching halo sentinel
// (halo.ErrCircleNotFound, halo.ErrTrustScoreNotFound, ...), so services can
// turn them into protocol errors without inspecting driver errors.
type Tx interface {
	// Circles. GetCircle loads the roster in join order.
	CreateCircle(ctx context.Context, c *halo.Circle) error
	GetCircle(ctx context.Context, id uint64) (*halo.Circle, error)
	UpdateCircle(ctx context.Context, c *halo.Circle) error
	AddCircleMember(ctx context.Context, circleID uint64, identity string) error
	RemoveCircleMember(ctx context.Context, circleID uint64, identity string) error

	// Members. GetMember loads the per-month contribution history vector.
	CreateMember(ctx context.Context, m *halo.Member) error
	GetMember(ctx context.Context, circleID uint64, identity string) (*halo.Member, error)
	UpdateMember(ctx context.Context, m *halo.Member) error

	// Monthly contribution roll-ups. GetMonthly returns (nil, nil) when the
	// month has no roll-up record yet.
	GetMonthly(ctx context.Context, circleID uint64, month int) (*halo.MonthlyContribution, error)
	PutMonthly(ctx context.Context, circleID uint64, month int, totalCollected uint64, distributedTo string) error
	InsertContribution(ctx context.Context, circleID uint64, month int, mc halo.MemberContribution) error

	// Escrows.
	CreateEscrow(ctx context.Context, e *halo.Escrow) error
	GetEscrow(ctx context.Context, circleID uint64) (*halo.Escrow, error)
	UpdateEscrow(ctx context.Context, e *halo.Escrow) error

	// Trust scores, including social proofs.
	CreateTrustScore(ctx context.Context, t *halo.TrustScore) error
	GetTrustScore(ctx context.Context, identity string) (*halo.TrustScore, error)
	UpdateTrustScore(ctx context.Context, t *halo.TrustScore) error

	// Completion credits: one row per (circle, identity), used to make the
	// post-completion trust credit idempotent. Returns
	// halo.ErrCompletionCreditClaimed on a duplicate.
	InsertCompletionCredit(ctx context.Context, circleID uint64, identity string) error

	// Governance.
	CreateProposal(ctx context.Context, p *halo.Proposal) error
	GetProposal(ctx context.Context, id uint64) (*halo.Proposal, error)
	UpdateProposal(ctx context.Context, p *halo.Proposal) error
	HasVote(ctx context.Context, proposalID uint64, voter string) (bool, error)
	CreateVote(ctx context.Context, v *halo.Vote) error

	// Auctions.
	CreateAuction(ctx context.Context, a *halo.Auction) error
	GetAuction(ctx context.Context, id uint64) (*halo.Auction, error)
	UpdateAuction(ctx context.Context, a *halo.Auction) error
	CreateBid(ctx context.Context, b *halo.Bid) error
	ClearHighestBid(ctx context.Context, auctionID uint64) error

	// Revenue singletons.
	CreateTreasury(ctx context.Context, t *halo.Treasury) error
	GetTreasury(ctx context.Context) (*halo.Treasury, error)
	UpdateTreasury(ctx context.Context, t *halo.Treasury) error
	CreateRevenueParams(ctx context.Context, p *halo.RevenueParams) error
	GetRevenueParams(ctx context.Context) (*halo.RevenueParams, error)
	UpdateRevenueParams(ctx context.Context, p *halo.RevenueParams) error

	// External-ledger mirror.
	CreateLedgerAccount(ctx context.Context, a *halo.LedgerAccount) error
	GetLedgerAccount(ctx context.Context, id string) (*halo.LedgerAccount, error)
	UpdateLedgerBalance(ctx context.Context, id string, balance uint64) error
	InsertLedgerTransfer(ctx context.Context, t *halo.LedgerTransfer) error
}
