package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kunal-drall/halo/internal/halo"
)

// CreateMember inserts a membership record.
func (t *sqlTx) CreateMember(ctx context.Context, m *halo.Member) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO members (circle_id, identity, stake_amount, status, has_received_pot,
			penalties, joined_at, trust_score, trust_tier, contributions_missed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(m.CircleID), m.Identity, int64(m.StakeAmount), string(m.Status), m.HasReceivedPot,
		int64(m.Penalties), m.JoinedAt, m.TrustScore, string(m.TrustTier), m.ContributionsMissed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMember retrieves a membership record, rebuilding the per-month
// contribution history vector (zero = unpaid) from the contribution rows.
func (t *sqlTx) GetMember(ctx context.Context, circleID uint64, identity string) (*halo.Member, error) {
	m := &halo.Member{}
	var cid, stake, penalties int64
	var status, tier string
	err := t.tx.QueryRowContext(ctx, `
		SELECT circle_id, identity, stake_amount, status, has_received_pot,
			penalties, joined_at, trust_score, trust_tier, contributions_missed
		FROM members WHERE circle_id = ? AND identity = ?`, int64(circleID), identity,
	).Scan(&cid, &m.Identity, &stake, &status, &m.HasReceivedPot,
		&penalties, &m.JoinedAt, &m.TrustScore, &tier, &m.ContributionsMissed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	m.CircleID = uint64(cid)
	m.StakeAmount = uint64(stake)
	m.Penalties = uint64(penalties)
	m.Status = halo.MemberStatus(status)
	m.TrustTier = halo.Tier(tier)

	var duration int
	err = t.tx.QueryRowContext(ctx,
		"SELECT duration_months FROM circles WHERE id = ?", int64(circleID)).Scan(&duration)
	if err != nil {
		return nil, fmt.Errorf("failed to get circle duration: %w", err)
	}
	m.ContributionHistory = make([]uint64, duration)

	rows, err := t.tx.QueryContext(ctx,
		"SELECT month, amount FROM member_contributions WHERE circle_id = ? AND member = ?",
		int64(circleID), identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var month int
		var amount int64
		if err := rows.Scan(&month, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		if month >= 0 && month < duration {
			m.ContributionHistory[month] = uint64(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return m, nil
}

// UpdateMember persists the membership's mutable scalar fields. Contribution
// history rows are written through InsertContribution.
func (t *sqlTx) UpdateMember(ctx context.Context, m *halo.Member) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE members SET stake_amount = ?, status = ?, has_received_pot = ?, penalties = ?,
			trust_score = ?, trust_tier = ?, contributions_missed = ?
		WHERE circle_id = ? AND identity = ?`,
		int64(m.StakeAmount), string(m.Status), m.HasReceivedPot, int64(m.Penalties),
		m.TrustScore, string(m.TrustTier), m.ContributionsMissed,
		int64(m.CircleID), m.Identity,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return requireRow(res, halo.ErrMemberNotFound)
}

// GetMonthly returns a month's roll-up, or (nil, nil) when no contribution
// has created it yet.
func (t *sqlTx) GetMonthly(ctx context.Context, circleID uint64, month int) (*halo.MonthlyContribution, error) {
	mc := &halo.MonthlyContribution{Month: month}
	var total int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT total_collected, distributed_to FROM monthly_contributions
		WHERE circle_id = ? AND month = ?`, int64(circleID), month,
	).Scan(&total, &mc.DistributedTo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly roll-up: %w", err)
	}
	mc.TotalCollected = uint64(total)

	rows, err := t.tx.QueryContext(ctx, `
		SELECT member, amount, created_at FROM member_contributions
		WHERE circle_id = ? AND month = ? ORDER BY created_at`, int64(circleID), month)
	if err != nil {
		return nil, fmt.Errorf("failed to get month entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e halo.MemberContribution
		var amount int64
		if err := rows.Scan(&e.Member, &amount, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan month entry: %w", err)
		}
		e.Amount = uint64(amount)
		mc.Contributions = append(mc.Contributions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate month entries: %w", err)
	}
	return mc, nil
}

// PutMonthly upserts a month's roll-up totals.
func (t *sqlTx) PutMonthly(ctx context.Context, circleID uint64, month int, totalCollected uint64, distributedTo string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO monthly_contributions (circle_id, month, total_collected, distributed_to)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (circle_id, month)
		DO UPDATE SET total_collected = excluded.total_collected, distributed_to = excluded.distributed_to`,
		int64(circleID), month, int64(totalCollected), distributedTo,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly roll-up: %w", err)
	}
	return nil
}

// InsertContribution records one member's payment for one month. The primary
// key makes a duplicate (circle, month, member) impossible even if the
// service-level check is bypassed.
func (t *sqlTx) InsertContribution(ctx context.Context, circleID uint64, month int, mc halo.MemberContribution) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO member_contributions (circle_id, month, member, amount, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		int64(circleID), month, mc.Member, int64(mc.Amount), mc.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

// CreateEscrow inserts an escrow row plus its zeroed per-month pot slots.
func (t *sqlTx) CreateEscrow(ctx context.Context, e *halo.Escrow) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO escrows (circle_id, total_amount) VALUES (?, ?)",
		int64(e.CircleID), int64(e.TotalAmount))
	if err != nil {
		return fmt.Errorf("failed to insert escrow: %w", err)
	}
	for month, amount := range e.MonthlyPots {
		_, err = t.tx.ExecContext(ctx,
			"INSERT INTO escrow_monthly_pots (circle_id, month, amount) VALUES (?, ?, ?)",
			int64(e.CircleID), month, int64(amount))
		if err != nil {
			return fmt.Errorf("failed to insert escrow pot slot: %w", err)
		}
	}
	return nil
}

// GetEscrow retrieves an escrow and its per-month pot vector.
func (t *sqlTx) GetEscrow(ctx context.Context, circleID uint64) (*halo.Escrow, error) {
	e := &halo.Escrow{CircleID: circleID}
	var total int64
	err := t.tx.QueryRowContext(ctx,
		"SELECT total_amount FROM escrows WHERE circle_id = ?", int64(circleID)).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrCircleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}
	e.TotalAmount = uint64(total)

	rows, err := t.tx.QueryContext(ctx,
		"SELECT month, amount FROM escrow_monthly_pots WHERE circle_id = ? ORDER BY month",
		int64(circleID))
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow pots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var month int
		var amount int64
		if err := rows.Scan(&month, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan escrow pot: %w", err)
		}
		for len(e.MonthlyPots) <= month {
			e.MonthlyPots = append(e.MonthlyPots, 0)
		}
		e.MonthlyPots[month] = uint64(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate escrow pots: %w", err)
	}
	return e, nil
}

// UpdateEscrow persists the escrow total and per-month pot vector.
func (t *sqlTx) UpdateEscrow(ctx context.Context, e *halo.Escrow) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE escrows SET total_amount = ? WHERE circle_id = ?",
		int64(e.TotalAmount), int64(e.CircleID))
	if err != nil {
		return fmt.Errorf("failed to update escrow: %w", err)
	}
	if err := requireRow(res, halo.ErrCircleNotFound); err != nil {
		return err
	}
	for month, amount := range e.MonthlyPots {
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO escrow_monthly_pots (circle_id, month, amount) VALUES (?, ?, ?)
			ON CONFLICT (circle_id, month) DO UPDATE SET amount = excluded.amount`,
			int64(e.CircleID), month, int64(amount))
		if err != nil {
			return fmt.Errorf("failed to update escrow pot slot: %w", err)
		}
	}
	return nil
}
