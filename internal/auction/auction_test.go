package auction

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/ledger"
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

// seedCircle stores an active circle whose escrow already holds a 100 pot,
// with every member staked at 10 and funded with 1000.
func (f *fixture) seedCircle(t *testing.T, id uint64, members ...string) {
	t.Helper()
	ctx := context.Background()
	err := f.store.Transact(ctx, func(tx storage.Tx) error {
		c := &halo.Circle{
			ID:                 id,
			Creator:            members[0],
			ContributionAmount: 100,
			DurationMonths:     12,
			MaxMembers:         len(members),
			CurrentMembers:     len(members),
			TotalPot:           100,
			PenaltyRate:        500,
			Status:             halo.CircleActive,
			CreatedAt:          f.now.Unix(),
		}
		if err := tx.CreateCircle(ctx, c); err != nil {
			return err
		}
		if err := tx.CreateEscrow(ctx, &halo.Escrow{
			CircleID:    id,
			TotalAmount: 100,
			MonthlyPots: make([]uint64, 12),
		}); err != nil {
			return err
		}
		if err := ledger.CreateAccount(ctx, tx, halo.EscrowAccountID(id), halo.EscrowAuthority(id), 100); err != nil {
			return err
		}
		for _, m := range members {
			if err := tx.AddCircleMember(ctx, id, m); err != nil {
				return err
			}
			if err := tx.CreateMember(ctx, &halo.Member{
				CircleID:            id,
				Identity:            m,
				StakeAmount:         10,
				ContributionHistory: make([]uint64, 12),
				Status:              halo.MemberActive,
				JoinedAt:            f.now.Unix(),
				TrustTier:           halo.TierNewcomer,
			}); err != nil {
				return err
			}
			if err := ledger.CreateAccount(ctx, tx, m, m, 1000); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seedCircle: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, id string) uint64 {
	t.Helper()
	var bal uint64
	err := f.store.Transact(context.Background(), func(tx storage.Tx) error {
		a, err := tx.GetLedgerAccount(context.Background(), id)
		if err != nil {
			return err
		}
		bal = a.Balance
		return nil
	})
	if err != nil {
		t.Fatalf("balance(%s): %v", id, err)
	}
	return bal
}

func TestCreateAuction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCircle(t, 1, "alice", "bob")

	cases := []struct {
		name        string
		initiator   string
		pot         uint64
		startingBid uint64
		duration    time.Duration
		want        error
	}{
		{"zero duration", "alice", 100, 50, 0, halo.ErrInvalidAuctionDuration},
		{"duration past 72h", "alice", 100, 50, 73 * time.Hour, halo.ErrInvalidAuctionDuration},
		{"empty pot", "alice", 0, 50, time.Hour, halo.ErrNoPotForAuction},
		{"zero starting bid", "alice", 100, 0, time.Hour, halo.ErrBidTooLow},
		{"starting bid above pot", "alice", 100, 101, time.Hour, halo.ErrBidTooLow},
		{"initiator not on roster", "mallory", 100, 50, time.Hour, halo.ErrMemberNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAuction(ctx, 1, tc.initiator, tc.pot, tc.startingBid, tc.duration)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v; want %v", err, tc.want)
			}
		})
	}

	a, err := f.svc.CreateAuction(ctx, 1, "alice", 100, 50, 24*time.Hour)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if a.Status != halo.AuctionActive {
		t.Errorf("Status = %s; want active", a.Status)
	}
	if got := f.balance(t, halo.AuctionAccountID(a.ID)); got != 0 {
		t.Errorf("auction account balance = %d; want 0", got)
	}
}

func TestPlaceBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCircle(t, 1, "alice", "bob", "carol")

	a, err := f.svc.CreateAuction(ctx, 1, "alice", 100, 50, 24*time.Hour)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}

	t.Run("initiator cannot bid", func(t *testing.T) {
		if _, err := f.svc.PlaceBid(ctx, a.ID, "alice", 60); !errors.Is(err, halo.ErrCannotBidOwnAuction) {
			t.Errorf("err = %v; want ErrCannotBidOwnAuction", err)
		}
	})

	t.Run("below the starting bid", func(t *testing.T) {
		if _, err := f.svc.PlaceBid(ctx, a.ID, "bob", 40); !errors.Is(err, halo.ErrBidTooLow) {
			t.Errorf("err = %v; want ErrBidTooLow", err)
		}
	})

	t.Run("non-member bidder", func(t *testing.T) {
		if _, err := f.svc.PlaceBid(ctx, a.ID, "mallory", 60); !errors.Is(err, halo.ErrMemberNotFound) {
			t.Errorf("err = %v; want ErrMemberNotFound", err)
		}
	})

	t.Run("first valid bid is escrowed", func(t *testing.T) {
		bid, err := f.svc.PlaceBid(ctx, a.ID, "bob", 60)
		if err != nil {
			t.Fatalf("PlaceBid: %v", err)
		}
		if !bid.IsHighest {
			t.Error("IsHighest = false; want true")
		}
		if got := f.balance(t, "bob"); got != 940 {
			t.Errorf("bob balance = %d; want 940", got)
		}
		if got := f.balance(t, halo.AuctionAccountID(a.ID)); got != 60 {
			t.Errorf("auction account balance = %d; want 60", got)
		}
	})

	t.Run("must beat the highest bid", func(t *testing.T) {
		if _, err := f.svc.PlaceBid(ctx, a.ID, "carol", 55); !errors.Is(err, halo.ErrBidTooLow) {
			t.Errorf("err = %v; want ErrBidTooLow", err)
		}
		if _, err := f.svc.PlaceBid(ctx, a.ID, "carol", 60); !errors.Is(err, halo.ErrBidTooLow) {
			t.Errorf("equal bid: err = %v; want ErrBidTooLow", err)
		}
	})

	t.Run("outbid bidder is refunded", func(t *testing.T) {
		if _, err := f.svc.PlaceBid(ctx, a.ID, "carol", 70); err != nil {
			t.Fatalf("PlaceBid: %v", err)
		}
		if got := f.balance(t, "bob"); got != 1000 {
			t.Errorf("bob balance = %d; want 1000 (refunded)", got)
		}
		if got := f.balance(t, halo.AuctionAccountID(a.ID)); got != 70 {
			t.Errorf("auction account balance = %d; want 70", got)
		}
		got, err := f.svc.GetAuction(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetAuction: %v", err)
		}
		if got.HighestBidder != "carol" || got.HighestBid != 70 || got.BidCount != 2 {
			t.Errorf("auction = %+v; want carol at 70 after 2 bids", got)
		}
	})

	t.Run("stake must cover a tenth of the bid", func(t *testing.T) {
		// Stakes are 10, so anything from 110 up is uncoverable.
		if _, err := f.svc.PlaceBid(ctx, a.ID, "bob", 110); !errors.Is(err, halo.ErrInsufficientStakeBid) {
			t.Errorf("err = %v; want ErrInsufficientStakeBid", err)
		}
	})

	t.Run("after the window", func(t *testing.T) {
		f.now = f.now.Add(25 * time.Hour)
		if _, err := f.svc.PlaceBid(ctx, a.ID, "bob", 80); !errors.Is(err, halo.ErrAuctionHasEnded) {
			t.Errorf("err = %v; want ErrAuctionHasEnded", err)
		}
	})
}

func TestSettleAuction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCircle(t, 1, "alice", "bob", "carol")

	a, err := f.svc.CreateAuction(ctx, 1, "alice", 100, 50, 24*time.Hour)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := f.svc.PlaceBid(ctx, a.ID, "carol", 70); err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}

	t.Run("before the window closes", func(t *testing.T) {
		if _, err := f.svc.SettleAuction(ctx, a.ID); !errors.Is(err, halo.ErrAuctionNotEnded) {
			t.Errorf("err = %v; want ErrAuctionNotEnded", err)
		}
	})

	f.now = f.now.Add(25 * time.Hour)

	t.Run("winner takes the pot, bid lands in escrow", func(t *testing.T) {
		settled, err := f.svc.SettleAuction(ctx, a.ID)
		if err != nil {
			t.Fatalf("SettleAuction: %v", err)
		}
		if !settled.Settled || settled.Status != halo.AuctionEnded {
			t.Errorf("auction = %+v; want settled and ended", settled)
		}
		// Escrow started at 100, gained the 70 bid, paid the 100 pot.
		if got := f.balance(t, halo.EscrowAccountID(1)); got != 70 {
			t.Errorf("escrow balance = %d; want 70", got)
		}
		if got := f.balance(t, "carol"); got != 1030 {
			t.Errorf("carol balance = %d; want 1030", got)
		}
		if got := f.balance(t, halo.AuctionAccountID(a.ID)); got != 0 {
			t.Errorf("auction account balance = %d; want 0", got)
		}
		err = f.store.Transact(ctx, func(tx storage.Tx) error {
			e, err := tx.GetEscrow(ctx, 1)
			if err != nil {
				return err
			}
			if e.TotalAmount != 70 {
				t.Errorf("escrow TotalAmount = %d; want 70", e.TotalAmount)
			}
			c, err := tx.GetCircle(ctx, 1)
			if err != nil {
				return err
			}
			if c.TotalPot != 70 {
				t.Errorf("circle TotalPot = %d; want 70", c.TotalPot)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("state check: %v", err)
		}
	})

	t.Run("settle twice", func(t *testing.T) {
		if _, err := f.svc.SettleAuction(ctx, a.ID); !errors.Is(err, halo.ErrAuctionSettled) {
			t.Errorf("err = %v; want ErrAuctionSettled", err)
		}
	})

	t.Run("no bids just closes", func(t *testing.T) {
		a, err := f.svc.CreateAuction(ctx, 1, "alice", 70, 30, time.Hour)
		if err != nil {
			t.Fatalf("CreateAuction: %v", err)
		}
		f.now = f.now.Add(2 * time.Hour)
		settled, err := f.svc.SettleAuction(ctx, a.ID)
		if err != nil {
			t.Fatalf("SettleAuction: %v", err)
		}
		if !settled.Settled || settled.HighestBidder != "" {
			t.Errorf("auction = %+v; want settled with no winner", settled)
		}
	})
}
