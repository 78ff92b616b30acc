package governance

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/storage"
	"github.com/kunal-drall/halo/internal/storage/sqlite"
)

type fixture struct {
	store storage.Store
	svc   *Service
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store, now: time.Unix(1_700_000_000, 0)}
	f.svc = NewService(store)
	f.svc.now = func() time.Time { return f.now }
	return f
}

// seedCircle stores a minimal active circle with the given roster.
func (f *fixture) seedCircle(t *testing.T, id uint64, members ...string) {
	t.Helper()
	err := f.store.Transact(context.Background(), func(tx storage.Tx) error {
		c := &halo.Circle{
			ID:                 id,
			Creator:            members[0],
			ContributionAmount: 100,
			DurationMonths:     12,
			MaxMembers:         len(members),
			PenaltyRate:        500,
			Status:             halo.CircleActive,
			CreatedAt:          f.now.Unix(),
		}
		if err := tx.CreateCircle(context.Background(), c); err != nil {
			return err
		}
		for _, m := range members {
			if err := tx.AddCircleMember(context.Background(), id, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seedCircle: %v", err)
	}
}

func (f *fixture) params(circleID uint64) CreateProposalParams {
	return CreateProposalParams{
		CircleID:           circleID,
		Proposer:           "alice",
		Title:              "Lower the penalty rate",
		Description:        "Half the current rate is plenty.",
		Type:               halo.ProposalEmergency,
		VotingDuration:     48 * time.Hour,
		ExecutionThreshold: 50,
	}
}

func TestCreateProposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCircle(t, 1, "alice", "bob")

	rate := 250
	badRate := 20000

	cases := []struct {
		name   string
		mutate func(*CreateProposalParams)
		want   error
	}{
		{"empty title", func(p *CreateProposalParams) { p.Title = "" }, halo.ErrProposalTitleTooLong},
		{"title too long", func(p *CreateProposalParams) { p.Title = strings.Repeat("t", 201) }, halo.ErrProposalTitleTooLong},
		{"description too long", func(p *CreateProposalParams) { p.Description = strings.Repeat("d", 1001) }, halo.ErrDescriptionTooLong},
		{"unknown type", func(p *CreateProposalParams) { p.Type = "coup" }, halo.ErrInvalidProposalType},
		{"rate change without a rate", func(p *CreateProposalParams) { p.Type = halo.ProposalInterestRateChange }, halo.ErrInvalidProposalType},
		{"rate out of bounds", func(p *CreateProposalParams) {
			p.Type = halo.ProposalInterestRateChange
			p.NewInterestRate = &badRate
		}, halo.ErrInvalidProposalType},
		{"zero voting window", func(p *CreateProposalParams) { p.VotingDuration = 0 }, halo.ErrInvalidVotingPeriod},
		{"window past seven days", func(p *CreateProposalParams) { p.VotingDuration = 8 * 24 * time.Hour }, halo.ErrInvalidVotingPeriod},
		{"proposer not on roster", func(p *CreateProposalParams) { p.Proposer = "mallory" }, halo.ErrMemberNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := f.params(1)
			tc.mutate(&p)
			if _, err := f.svc.CreateProposal(ctx, p); !errors.Is(err, tc.want) {
				t.Errorf("err = %v; want %v", err, tc.want)
			}
		})
	}

	p := f.params(1)
	p.Type = halo.ProposalInterestRateChange
	p.NewInterestRate = &rate
	proposal, err := f.svc.CreateProposal(ctx, p)
	if err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}
	if proposal.Status != halo.ProposalActive {
		t.Errorf("Status = %s; want active", proposal.Status)
	}
	if proposal.VotingEnd != f.now.Add(48*time.Hour).Unix() {
		t.Errorf("VotingEnd = %d; want start+48h", proposal.VotingEnd)
	}
}

func TestCastVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCircle(t, 1, "alice", "bob", "carol")

	proposal, err := f.svc.CreateProposal(ctx, f.params(1))
	if err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}

	t.Run("zero power", func(t *testing.T) {
		if _, err := f.svc.CastVote(ctx, proposal.ID, "alice", 0, true); !errors.Is(err, halo.ErrInsufficientVotes) {
			t.Errorf("err = %v; want ErrInsufficientVotes", err)
		}
	})

	t.Run("weight is the integer square root", func(t *testing.T) {
		v, err := f.svc.CastVote(ctx, proposal.ID, "alice", 100, true)
		if err != nil {
			t.Fatalf("CastVote: %v", err)
		}
		if v.QuadraticWeight != 10 {
			t.Errorf("QuadraticWeight = %d; want 10", v.QuadraticWeight)
		}
		v, err = f.svc.CastVote(ctx, proposal.ID, "bob", 99, false)
		if err != nil {
			t.Fatalf("CastVote: %v", err)
		}
		if v.QuadraticWeight != 9 {
			t.Errorf("QuadraticWeight = %d; want 9", v.QuadraticWeight)
		}

		p, err := f.svc.GetProposal(ctx, proposal.ID)
		if err != nil {
			t.Fatalf("GetProposal: %v", err)
		}
		if p.QuadraticFor != 10 || p.QuadraticAgainst != 9 || p.TotalVotingPower != 199 {
			t.Errorf("tallies = %d/%d/%d; want 10/9/199", p.QuadraticFor, p.QuadraticAgainst, p.TotalVotingPower)
		}
	})

	t.Run("one vote per voter", func(t *testing.T) {
		if _, err := f.svc.CastVote(ctx, proposal.ID, "alice", 50, false); !errors.Is(err, halo.ErrAlreadyVoted) {
			t.Errorf("err = %v; want ErrAlreadyVoted", err)
		}
	})

	t.Run("window closed", func(t *testing.T) {
		f.now = f.now.Add(49 * time.Hour)
		if _, err := f.svc.CastVote(ctx, proposal.ID, "carol", 25, true); !errors.Is(err, halo.ErrVotingPeriodEnded) {
			t.Errorf("err = %v; want ErrVotingPeriodEnded", err)
		}
	})
}

func TestExecuteProposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCircle(t, 1, "alice", "bob")

	rate := 250
	p := f.params(1)
	p.Type = halo.ProposalInterestRateChange
	p.NewInterestRate = &rate
	proposal, err := f.svc.CreateProposal(ctx, p)
	if err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}
	if _, err := f.svc.CastVote(ctx, proposal.ID, "alice", 100, true); err != nil {
		t.Fatalf("CastVote: %v", err)
	}

	t.Run("before the window closes", func(t *testing.T) {
		if err := f.svc.ExecuteProposal(ctx, proposal.ID); !errors.Is(err, halo.ErrVotingNotEnded) {
			t.Errorf("err = %v; want ErrVotingNotEnded", err)
		}
	})

	f.now = f.now.Add(49 * time.Hour)

	t.Run("applies the new rate", func(t *testing.T) {
		if err := f.svc.ExecuteProposal(ctx, proposal.ID); err != nil {
			t.Fatalf("ExecuteProposal: %v", err)
		}
		got, err := f.svc.GetProposal(ctx, proposal.ID)
		if err != nil {
			t.Fatalf("GetProposal: %v", err)
		}
		if !got.Executed || got.Status != halo.ProposalExecuted {
			t.Errorf("proposal = %+v; want executed", got)
		}
		err = f.store.Transact(ctx, func(tx storage.Tx) error {
			c, err := tx.GetCircle(ctx, 1)
			if err != nil {
				return err
			}
			if c.PenaltyRate != 250 {
				t.Errorf("PenaltyRate = %d; want 250", c.PenaltyRate)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("GetCircle: %v", err)
		}
	})

	t.Run("execute twice", func(t *testing.T) {
		if err := f.svc.ExecuteProposal(ctx, proposal.ID); !errors.Is(err, halo.ErrProposalExecuted) {
			t.Errorf("err = %v; want ErrProposalExecuted", err)
		}
	})

	t.Run("threshold not met", func(t *testing.T) {
		lost := f.params(1)
		proposal, err := f.svc.CreateProposal(ctx, lost)
		if err != nil {
			t.Fatalf("CreateProposal: %v", err)
		}
		if _, err := f.svc.CastVote(ctx, proposal.ID, "alice", 25, true); err != nil {
			t.Fatalf("CastVote: %v", err)
		}
		f.now = f.now.Add(49 * time.Hour)
		if err := f.svc.ExecuteProposal(ctx, proposal.ID); !errors.Is(err, halo.ErrThresholdNotMet) {
			t.Errorf("err = %v; want ErrThresholdNotMet", err)
		}
	})
}
