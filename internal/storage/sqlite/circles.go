package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kunal-drall/halo/internal/halo"
)

// CreateCircle inserts a circle row; the roster starts empty.
func (t *sqlTx) CreateCircle(ctx context.Context, c *halo.Circle) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO circles (id, creator, contribution_amount, duration_months, max_members,
			current_members, current_month, penalty_rate, status, created_at, total_pot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(c.ID), c.Creator, int64(c.ContributionAmount), c.DurationMonths, c.MaxMembers,
		c.CurrentMembers, c.CurrentMonth, c.PenaltyRate, string(c.Status), c.CreatedAt, int64(c.TotalPot),
	)
	if err != nil {
		return fmt.Errorf("failed to insert circle: %w", err)
	}
	return nil
}

// GetCircle retrieves a circle and its roster in join order.
func (t *sqlTx) GetCircle(ctx context.Context, id uint64) (*halo.Circle, error) {
	c := &halo.Circle{}
	var circleID, contribution, totalPot int64
	var status string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, creator, contribution_amount, duration_months, max_members,
			current_members, current_month, penalty_rate, status, created_at, total_pot
		FROM circles WHERE id = ?`, int64(id),
	).Scan(&circleID, &c.Creator, &contribution, &c.DurationMonths, &c.MaxMembers,
		&c.CurrentMembers, &c.CurrentMonth, &c.PenaltyRate, &status, &c.CreatedAt, &totalPot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrCircleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get circle: %w", err)
	}
	c.ID = uint64(circleID)
	c.ContributionAmount = uint64(contribution)
	c.TotalPot = uint64(totalPot)
	c.Status = halo.CircleStatus(status)

	rows, err := t.tx.QueryContext(ctx,
		"SELECT identity FROM circle_members WHERE circle_id = ? ORDER BY position", int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("failed to scan roster member: %w", err)
		}
		c.Members = append(c.Members, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roster: %w", err)
	}
	return c, nil
}

// UpdateCircle persists the circle's mutable scalar fields. The roster is
// maintained through AddCircleMember/RemoveCircleMember.
func (t *sqlTx) UpdateCircle(ctx context.Context, c *halo.Circle) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE circles SET current_members = ?, current_month = ?, penalty_rate = ?,
			status = ?, total_pot = ?
		WHERE id = ?`,
		c.CurrentMembers, c.CurrentMonth, c.PenaltyRate, string(c.Status), int64(c.TotalPot), int64(c.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update circle: %w", err)
	}
	return requireRow(res, halo.ErrCircleNotFound)
}

// AddCircleMember appends identity to the roster.
func (t *sqlTx) AddCircleMember(ctx context.Context, circleID uint64, identity string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO circle_members (circle_id, identity, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM circle_members WHERE circle_id = ?))`,
		int64(circleID), identity, int64(circleID),
	)
	if err != nil {
		return fmt.Errorf("failed to add roster member: %w", err)
	}
	return nil
}

// RemoveCircleMember drops identity from the roster.
func (t *sqlTx) RemoveCircleMember(ctx context.Context, circleID uint64, identity string) error {
	res, err := t.tx.ExecContext(ctx,
		"DELETE FROM circle_members WHERE circle_id = ? AND identity = ?", int64(circleID), identity)
	if err != nil {
		return fmt.Errorf("failed to remove roster member: %w", err)
	}
	return requireRow(res, halo.ErrMemberNotFound)
}

// requireRow maps a zero-row update/delete to the given sentinel.
func requireRow(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
