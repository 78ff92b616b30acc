// Package trust manages reputation records: initialization, social proofs,
// external activity credit, and score recalculation.
package trust

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/storage"
)

// Service exposes the trust score operations.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a trust service backed by the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// InitializeTrustScore creates a fresh reputation record for identity. All
// counters start at zero, which places the identity in the Newcomer tier.
func (s *Service) InitializeTrustScore(ctx context.Context, identity string) (*halo.TrustScore, error) {
	var record *halo.TrustScore
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetTrustScore(ctx, identity); err == nil {
			return halo.ErrTrustScoreAlreadyExists
		} else if err != halo.ErrTrustScoreNotFound {
			return err
		}
		record = &halo.TrustScore{
			Identity:    identity,
			Tier:        halo.TierNewcomer,
			LastUpdated: s.now().Unix(),
		}
		record.Recalculate()
		return tx.CreateTrustScore(ctx, record)
	})
	if err != nil {
		slog.Error("InitializeTrustScore failed", "identity", identity, "error", err)
		return nil, err
	}
	slog.Info("trust score initialized", "identity", identity)
	return record, nil
}

// GetTrustScore returns the reputation record for identity.
func (s *Service) GetTrustScore(ctx context.Context, identity string) (*halo.TrustScore, error) {
	var record *halo.TrustScore
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		record, err = tx.GetTrustScore(ctx, identity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// AddSocialProof attaches an unverified attestation to identity's record.
// Both strings must be non-empty and at most 32 characters, the record holds
// at most five proofs, and (type, identifier) pairs are unique.
func (s *Service) AddSocialProof(ctx context.Context, identity, proofType, identifier string) (*halo.TrustScore, error) {
	if !validProofString(proofType) || !validProofString(identifier) {
		return nil, halo.ErrInvalidSocialProof
	}
	var record *halo.TrustScore
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		record, err = tx.GetTrustScore(ctx, identity)
		if err != nil {
			return err
		}
		if len(record.SocialProofs) >= halo.MaxSocialProofs {
			return halo.ErrInvalidSocialProof
		}
		if record.FindProof(proofType, identifier) >= 0 {
			return halo.ErrSocialProofExists
		}
		record.SocialProofs = append(record.SocialProofs, halo.SocialProof{
			ProofType:  proofType,
			Identifier: identifier,
			Timestamp:  s.now().Unix(),
		})
		record.LastUpdated = s.now().Unix()
		record.Recalculate()
		return tx.UpdateTrustScore(ctx, record)
	})
	if err != nil {
		slog.Error("AddSocialProof failed", "identity", identity, "proof_type", proofType, "error", err)
		return nil, err
	}
	slog.Info("social proof added", "identity", identity, "proof_type", proofType)
	return record, nil
}

// VerifySocialProof marks an existing attestation verified and refreshes the
// score. Verifying an already-verified proof is a no-op.
func (s *Service) VerifySocialProof(ctx context.Context, identity, proofType, identifier string) (*halo.TrustScore, error) {
	var record *halo.TrustScore
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		record, err = tx.GetTrustScore(ctx, identity)
		if err != nil {
			return err
		}
		i := record.FindProof(proofType, identifier)
		if i < 0 {
			return halo.ErrInvalidSocialProof
		}
		record.SocialProofs[i].Verified = true
		record.LastUpdated = s.now().Unix()
		record.Recalculate()
		return tx.UpdateTrustScore(ctx, record)
	})
	if err != nil {
		slog.Error("VerifySocialProof failed", "identity", identity, "proof_type", proofType, "error", err)
		return nil, err
	}
	slog.Info("social proof verified", "identity", identity, "proof_type", proofType, "score", record.Score)
	return record, nil
}

// UpdateExternalActivityScore sets the DeFi activity sub-score and refreshes
// the total. Values outside [0, 200] are rejected.
func (s *Service) UpdateExternalActivityScore(ctx context.Context, identity string, score int) (*halo.TrustScore, error) {
	if score < 0 || score > halo.MaxExternalActivityScore {
		return nil, halo.ErrInvalidSocialProof
	}
	var record *halo.TrustScore
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		record, err = tx.GetTrustScore(ctx, identity)
		if err != nil {
			return err
		}
		record.ExternalActivityScore = score
		record.LastUpdated = s.now().Unix()
		record.Recalculate()
		return tx.UpdateTrustScore(ctx, record)
	})
	if err != nil {
		slog.Error("UpdateExternalActivityScore failed", "identity", identity, "error", err)
		return nil, err
	}
	slog.Info("external activity updated", "identity", identity, "score", record.Score, "tier", record.Tier)
	return record, nil
}

func validProofString(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= halo.MaxSocialProofLen
}
