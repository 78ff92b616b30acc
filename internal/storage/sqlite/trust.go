package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kunal-drall/halo/internal/halo"
)

// CreateTrustScore inserts a fresh trust record.
func (t *sqlTx) CreateTrustScore(ctx context.Context, ts *halo.TrustScore) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trust_scores (identity, score, tier, payment_history_score, completion_score,
			external_activity_score, social_proof_score, circles_completed, circles_joined,
			total_contributions, missed_contributions, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Identity, ts.Score, string(ts.Tier), ts.PaymentHistoryScore, ts.CompletionScore,
		ts.ExternalActivityScore, ts.SocialProofScore, ts.CirclesCompleted, ts.CirclesJoined,
		int64(ts.TotalContributions), ts.MissedContributions, ts.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trust score: %w", err)
	}
	for _, p := range ts.SocialProofs {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO social_proofs (identity, proof_type, identifier, verified, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			ts.Identity, p.ProofType, p.Identifier, p.Verified, p.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert social proof: %w", err)
		}
	}
	return nil
}

// GetTrustScore retrieves a trust record with its social proofs.
func (t *sqlTx) GetTrustScore(ctx context.Context, identity string) (*halo.TrustScore, error) {
	ts := &halo.TrustScore{}
	var tier string
	var total int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT identity, score, tier, payment_history_score, completion_score,
			external_activity_score, social_proof_score, circles_completed, circles_joined,
			total_contributions, missed_contributions, last_updated
		FROM trust_scores WHERE identity = ?`, identity,
	).Scan(&ts.Identity, &ts.Score, &tier, &ts.PaymentHistoryScore, &ts.CompletionScore,
		&ts.ExternalActivityScore, &ts.SocialProofScore, &ts.CirclesCompleted, &ts.CirclesJoined,
		&total, &ts.MissedContributions, &ts.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrTrustScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trust score: %w", err)
	}
	ts.Tier = halo.Tier(tier)
	ts.TotalContributions = uint64(total)

	rows, err := t.tx.QueryContext(ctx, `
		SELECT proof_type, identifier, verified, created_at FROM social_proofs
		WHERE identity = ? ORDER BY created_at`, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get social proofs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p halo.SocialProof
		if err := rows.Scan(&p.ProofType, &p.Identifier, &p.Verified, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan social proof: %w", err)
		}
		ts.SocialProofs = append(ts.SocialProofs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate social proofs: %w", err)
	}
	return ts, nil
}

// UpdateTrustScore persists the record's scalars and rewrites its proofs.
// There are at most five proofs per identity, so replace-all stays cheap.
func (t *sqlTx) UpdateTrustScore(ctx context.Context, ts *halo.TrustScore) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE trust_scores SET score = ?, tier = ?, payment_history_score = ?,
			completion_score = ?, external_activity_score = ?, social_proof_score = ?,
			circles_completed = ?, circles_joined = ?, total_contributions = ?,
			missed_contributions = ?, last_updated = ?
		WHERE identity = ?`,
		ts.Score, string(ts.Tier), ts.PaymentHistoryScore,
		ts.CompletionScore, ts.ExternalActivityScore, ts.SocialProofScore,
		ts.CirclesCompleted, ts.CirclesJoined, int64(ts.TotalContributions),
		ts.MissedContributions, ts.LastUpdated,
		ts.Identity,
	)
	if err != nil {
		return fmt.Errorf("failed to update trust score: %w", err)
	}
	if err := requireRow(res, halo.ErrTrustScoreNotFound); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM social_proofs WHERE identity = ?", ts.Identity); err != nil {
		return fmt.Errorf("failed to clear social proofs: %w", err)
	}
	for _, p := range ts.SocialProofs {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO social_proofs (identity, proof_type, identifier, verified, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			ts.Identity, p.ProofType, p.Identifier, p.Verified, p.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert social proof: %w", err)
		}
	}
	return nil
}

// InsertCompletionCredit marks that identity has claimed completion credit
// for the circle; a second claim fails.
func (t *sqlTx) InsertCompletionCredit(ctx context.Context, circleID uint64, identity string) error {
	var exists int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM completion_credits WHERE circle_id = ? AND identity = ?",
		int64(circleID), identity).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check completion credit: %w", err)
	}
	if exists > 0 {
		return halo.ErrCompletionCreditClaimed
	}
	_, err = t.tx.ExecContext(ctx,
		"INSERT INTO completion_credits (circle_id, identity) VALUES (?, ?)",
		int64(circleID), identity)
	if err != nil {
		return fmt.Errorf("failed to insert completion credit: %w", err)
	}
	return nil
}
