package revenue

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

const day = 24 * time.Hour

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

func TestInitializeTreasury(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.GetTreasury(ctx); !errors.Is(err, halo.ErrTreasuryNotInitialized) {
		t.Errorf("before init: err = %v; want ErrTreasuryNotInitialized", err)
	}

	treasury, err := f.svc.InitializeTreasury(ctx, "protocol-admin")
	if err != nil {
		t.Fatalf("InitializeTreasury: %v", err)
	}
	if treasury.Authority != "protocol-admin" || treasury.TotalFeesCollected != 0 {
		t.Errorf("treasury = %+v; want fresh record for protocol-admin", treasury)
	}

	if _, err := f.svc.InitializeTreasury(ctx, "protocol-admin"); !errors.Is(err, halo.ErrTreasuryExists) {
		t.Errorf("second init: err = %v; want ErrTreasuryExists", err)
	}
}

func TestRevenueParams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.InitializeRevenueParams(ctx, "protocol-admin")
	if err != nil {
		t.Fatalf("InitializeRevenueParams: %v", err)
	}
	if p.DistributionFeeRate != halo.DefaultDistributionFeeRate ||
		p.YieldFeeRate != halo.DefaultYieldFeeRate ||
		p.ManagementFeeRate != halo.DefaultManagementFeeRate ||
		p.ManagementFeeInterval != halo.DefaultManagementFeeInterval {
		t.Errorf("params = %+v; want the defaults", p)
	}

	if _, err := f.svc.InitializeRevenueParams(ctx, "protocol-admin"); !errors.Is(err, halo.ErrRevenueParamsAlreadySet) {
		t.Errorf("second init: err = %v; want ErrRevenueParamsAlreadySet", err)
	}

	t.Run("rejects rates above 10%", func(t *testing.T) {
		if _, err := f.svc.UpdateRevenueParams(ctx, "protocol-admin", 1001, 25, 200, 30*day); !errors.Is(err, halo.ErrInvalidFeeRate) {
			t.Errorf("err = %v; want ErrInvalidFeeRate", err)
		}
	})

	t.Run("rejects sub-day intervals", func(t *testing.T) {
		if _, err := f.svc.UpdateRevenueParams(ctx, "protocol-admin", 50, 25, 200, time.Hour); !errors.Is(err, halo.ErrInvalidFeeRate) {
			t.Errorf("err = %v; want ErrInvalidFeeRate", err)
		}
	})

	t.Run("rejects callers other than the authority", func(t *testing.T) {
		if _, err := f.svc.UpdateRevenueParams(ctx, "mallory", 50, 25, 200, 30*day); !errors.Is(err, halo.ErrUnauthorizedRevenue) {
			t.Errorf("err = %v; want ErrUnauthorizedRevenue", err)
		}
	})

	t.Run("authority can replace the schedule", func(t *testing.T) {
		p, err := f.svc.UpdateRevenueParams(ctx, "protocol-admin", 100, 50, 300, 7*day)
		if err != nil {
			t.Fatalf("UpdateRevenueParams: %v", err)
		}
		if p.DistributionFeeRate != 100 || p.ManagementFeeInterval != int64((7*day)/time.Second) {
			t.Errorf("params = %+v; want 100 bps and a 7-day interval", p)
		}
	})
}

func TestCollectManagementFees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.InitializeTreasury(ctx, "protocol-admin"); err != nil {
		t.Fatalf("InitializeTreasury: %v", err)
	}
	if _, err := f.svc.InitializeRevenueParams(ctx, "protocol-admin"); err != nil {
		t.Fatalf("InitializeRevenueParams: %v", err)
	}

	// An escrow holding 100000 with the ledger account to match.
	err := f.store.Transact(ctx, func(tx storage.Tx) error {
		if err := tx.CreateEscrow(ctx, &halo.Escrow{
			CircleID:    1,
			TotalAmount: 100_000,
			MonthlyPots: make([]uint64, 12),
		}); err != nil {
			return err
		}
		return ledger.CreateAccount(ctx, tx, halo.EscrowAccountID(1), halo.EscrowAuthority(1), 100_000)
	})
	if err != nil {
		t.Fatalf("seed escrow: %v", err)
	}

	t.Run("gated by the interval", func(t *testing.T) {
		if _, err := f.svc.CollectManagementFees(ctx, 1); !errors.Is(err, halo.ErrCollectionTooFrequent) {
			t.Errorf("err = %v; want ErrCollectionTooFrequent", err)
		}
	})

	t.Run("charges the pro-rated annual fee", func(t *testing.T) {
		// A full year at 200 bps of 100000 is exactly 2000.
		f.now = f.now.Add(365 * day)
		fee, err := f.svc.CollectManagementFees(ctx, 1)
		if err != nil {
			t.Fatalf("CollectManagementFees: %v", err)
		}
		if fee != 2000 {
			t.Errorf("fee = %d; want 2000", fee)
		}
		treasury, err := f.svc.GetTreasury(ctx)
		if err != nil {
			t.Fatalf("GetTreasury: %v", err)
		}
		if treasury.TotalFeesCollected != 2000 || treasury.ManagementFees != 2000 {
			t.Errorf("treasury = %+v; want 2000 collected", treasury)
		}
		err = f.store.Transact(ctx, func(tx storage.Tx) error {
			e, err := tx.GetEscrow(ctx, 1)
			if err != nil {
				return err
			}
			if e.TotalAmount != 98_000 {
				t.Errorf("escrow TotalAmount = %d; want 98000", e.TotalAmount)
			}
			a, err := tx.GetLedgerAccount(ctx, halo.TreasuryAccountID)
			if err != nil {
				return err
			}
			if a.Balance != 2000 {
				t.Errorf("treasury balance = %d; want 2000", a.Balance)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("state check: %v", err)
		}
	})

	t.Run("collection resets the clock", func(t *testing.T) {
		if _, err := f.svc.CollectManagementFees(ctx, 1); !errors.Is(err, halo.ErrCollectionTooFrequent) {
			t.Errorf("err = %v; want ErrCollectionTooFrequent", err)
		}
	})
}
