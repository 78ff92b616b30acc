// Package revenue manages the protocol treasury and its fee schedule. The
// treasury and the fee parameters are explicitly-addressed singleton records
// with initialize-once presence checks.
package revenue

import (
	"context"
	"log/slog"
	"time"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/ledger"
	"github.com/kunal-drall/halo/internal/safemath"
	"github.com/kunal-drall/halo/internal/storage"
)

// Service exposes the treasury operations.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a revenue service backed by the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// InitializeTreasury creates the treasury record and its ledger account.
// A second call fails on the presence check.
func (s *Service) InitializeTreasury(ctx context.Context, authority string) (*halo.Treasury, error) {
	t := &halo.Treasury{
		Authority:                authority,
		LastManagementCollection: s.now().Unix(),
	}
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		if err := tx.CreateTreasury(ctx, t); err != nil {
			return err
		}
		return ledger.CreateAccount(ctx, tx, halo.TreasuryAccountID, halo.TreasuryAuthority, 0)
	})
	if err != nil {
		slog.Error("InitializeTreasury failed", "authority", authority, "error", err)
		return nil, err
	}
	slog.Info("treasury initialized", "authority", authority)
	return t, nil
}

// InitializeRevenueParams creates the fee schedule with its defaults.
func (s *Service) InitializeRevenueParams(ctx context.Context, authority string) (*halo.RevenueParams, error) {
	p := halo.DefaultRevenueParams(authority, s.now().Unix())
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		return tx.CreateRevenueParams(ctx, p)
	})
	if err != nil {
		slog.Error("InitializeRevenueParams failed", "authority", authority, "error", err)
		return nil, err
	}
	slog.Info("revenue params initialized", "authority", authority)
	return p, nil
}

// UpdateRevenueParams replaces the fee schedule. Only the stored authority
// may call it; rates are capped at 1000 basis points and the collection
// interval has a one-day floor.
func (s *Service) UpdateRevenueParams(ctx context.Context, caller string, distributionRate, yieldRate, managementRate int, interval time.Duration) (*halo.RevenueParams, error) {
	if distributionRate < 0 || distributionRate > halo.MaxRevenueFeeRate ||
		yieldRate < 0 || yieldRate > halo.MaxRevenueFeeRate ||
		managementRate < 0 || managementRate > halo.MaxRevenueFeeRate {
		return nil, halo.ErrInvalidFeeRate
	}
	if interval < halo.MinManagementFeeInterval*time.Second {
		return nil, halo.ErrInvalidFeeRate
	}
	var p *halo.RevenueParams
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		p, err = tx.GetRevenueParams(ctx)
		if err != nil {
			return err
		}
		if p.Authority != caller {
			return halo.ErrUnauthorizedRevenue
		}
		p.DistributionFeeRate = distributionRate
		p.YieldFeeRate = yieldRate
		p.ManagementFeeRate = managementRate
		p.ManagementFeeInterval = int64(interval / time.Second)
		p.LastUpdated = s.now().Unix()
		return tx.UpdateRevenueParams(ctx, p)
	})
	if err != nil {
		slog.Error("UpdateRevenueParams failed", "caller", caller, "error", err)
		return nil, err
	}
	slog.Info("revenue params updated",
		"distribution_bps", distributionRate,
		"yield_bps", yieldRate,
		"management_bps", managementRate,
	)
	return p, nil
}

// CollectManagementFees charges the pro-rated annual management fee on a
// circle's escrow balance and moves it to the treasury. Collections are gated
// by the configured interval.
func (s *Service) CollectManagementFees(ctx context.Context, circleID uint64) (uint64, error) {
	var fee uint64
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		t, err := tx.GetTreasury(ctx)
		if err != nil {
			return err
		}
		p, err := tx.GetRevenueParams(ctx)
		if err != nil {
			return err
		}
		now := s.now().Unix()
		elapsed := now - t.LastManagementCollection
		if elapsed < p.ManagementFeeInterval {
			return halo.ErrCollectionTooFrequent
		}

		e, err := tx.GetEscrow(ctx, circleID)
		if err != nil {
			return err
		}
		fee, err = p.ManagementFee(e.TotalAmount, elapsed)
		if err != nil {
			return err
		}
		if fee == 0 {
			t.LastManagementCollection = now
			return tx.UpdateTreasury(ctx, t)
		}

		if err := ledger.Transfer(ctx, tx, halo.EscrowAccountID(circleID), halo.TreasuryAccountID, halo.EscrowAuthority(circleID), fee); err != nil {
			return err
		}
		remaining, ok := safemath.Sub(e.TotalAmount, fee)
		if !ok {
			return halo.ErrArithmeticOverflow
		}
		e.TotalAmount = remaining
		if err := tx.UpdateEscrow(ctx, e); err != nil {
			return err
		}

		if t.TotalFeesCollected, ok = safemath.Add(t.TotalFeesCollected, fee); !ok {
			return halo.ErrArithmeticOverflow
		}
		if t.ManagementFees, ok = safemath.Add(t.ManagementFees, fee); !ok {
			return halo.ErrArithmeticOverflow
		}
		t.LastManagementCollection = now
		return tx.UpdateTreasury(ctx, t)
	})
	if err != nil {
		slog.Error("CollectManagementFees failed", "circle_id", circleID, "error", err)
		return 0, err
	}
	slog.Info("management fees collected", "circle_id", circleID, "fee", fee)
	return fee, nil
}

// GetTreasury returns the treasury record.
func (s *Service) GetTreasury(ctx context.Context) (*halo.Treasury, error) {
	var t *halo.Treasury
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		t, err = tx.GetTreasury(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
