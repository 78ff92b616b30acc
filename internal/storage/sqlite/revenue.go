package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kunal-drall/halo/internal/halo"
)

// CreateTreasury inserts the singleton treasury row; a second insert fails.
func (t *sqlTx) CreateTreasury(ctx context.Context, tr *halo.Treasury) error {
	var n int
	if err := t.tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM treasury").Scan(&n); err != nil {
		return fmt.Errorf("failed to check treasury: %w", err)
	}
	if n > 0 {
		return halo.ErrTreasuryExists
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO treasury (id, authority, total_fees_collected, distribution_fees,
			yield_fees, management_fees, last_management_collection)
		VALUES (1, ?, ?, ?, ?, ?, ?)`,
		tr.Authority, int64(tr.TotalFeesCollected), int64(tr.DistributionFees),
		int64(tr.YieldFees), int64(tr.ManagementFees), tr.LastManagementCollection,
	)
	if err != nil {
		return fmt.Errorf("failed to insert treasury: %w", err)
	}
	return nil
}

// GetTreasury retrieves the singleton treasury row.
func (t *sqlTx) GetTreasury(ctx context.Context) (*halo.Treasury, error) {
	tr := &halo.Treasury{}
	var total, dist, yield, mgmt int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT authority, total_fees_collected, distribution_fees, yield_fees,
			management_fees, last_management_collection
		FROM treasury WHERE id = 1`,
	).Scan(&tr.Authority, &total, &dist, &yield, &mgmt, &tr.LastManagementCollection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrTreasuryNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get treasury: %w", err)
	}
	tr.TotalFeesCollected = uint64(total)
	tr.DistributionFees = uint64(dist)
	tr.YieldFees = uint64(yield)
	tr.ManagementFees = uint64(mgmt)
	return tr, nil
}

// UpdateTreasury persists the treasury counters.
func (t *sqlTx) UpdateTreasury(ctx context.Context, tr *halo.Treasury) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE treasury SET total_fees_collected = ?, distribution_fees = ?, yield_fees = ?,
			management_fees = ?, last_management_collection = ?
		WHERE id = 1`,
		int64(tr.TotalFeesCollected), int64(tr.DistributionFees), int64(tr.YieldFees),
		int64(tr.ManagementFees), tr.LastManagementCollection,
	)
	if err != nil {
		return fmt.Errorf("failed to update treasury: %w", err)
	}
	return requireRow(res, halo.ErrTreasuryNotInitialized)
}

// CreateRevenueParams inserts the singleton fee schedule; a second insert
// fails.
func (t *sqlTx) CreateRevenueParams(ctx context.Context, p *halo.RevenueParams) error {
	var n int
	if err := t.tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM revenue_params").Scan(&n); err != nil {
		return fmt.Errorf("failed to check revenue params: %w", err)
	}
	if n > 0 {
		return halo.ErrRevenueParamsAlreadySet
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO revenue_params (id, authority, distribution_fee_rate, yield_fee_rate,
			management_fee_rate, management_fee_interval, last_updated)
		VALUES (1, ?, ?, ?, ?, ?, ?)`,
		p.Authority, p.DistributionFeeRate, p.YieldFeeRate,
		p.ManagementFeeRate, p.ManagementFeeInterval, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert revenue params: %w", err)
	}
	return nil
}

// GetRevenueParams retrieves the singleton fee schedule.
func (t *sqlTx) GetRevenueParams(ctx context.Context) (*halo.RevenueParams, error) {
	p := &halo.RevenueParams{}
	err := t.tx.QueryRowContext(ctx, `
		SELECT authority, distribution_fee_rate, yield_fee_rate, management_fee_rate,
			management_fee_interval, last_updated
		FROM revenue_params WHERE id = 1`,
	).Scan(&p.Authority, &p.DistributionFeeRate, &p.YieldFeeRate, &p.ManagementFeeRate,
		&p.ManagementFeeInterval, &p.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrTreasuryNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get revenue params: %w", err)
	}
	return p, nil
}

// UpdateRevenueParams persists the fee schedule.
func (t *sqlTx) UpdateRevenueParams(ctx context.Context, p *halo.RevenueParams) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE revenue_params SET distribution_fee_rate = ?, yield_fee_rate = ?,
			management_fee_rate = ?, management_fee_interval = ?, last_updated = ?
		WHERE id = 1`,
		p.DistributionFeeRate, p.YieldFeeRate, p.ManagementFeeRate,
		p.ManagementFeeInterval, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to update revenue params: %w", err)
	}
	return requireRow(res, halo.ErrTreasuryNotInitialized)
}
