package trust

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/storage/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(store)
}

func TestInitializeTrustScore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	record, err := svc.InitializeTrustScore(ctx, "alice")
	if err != nil {
		t.Fatalf("InitializeTrustScore: %v", err)
	}
	if record.Score != 0 || record.Tier != halo.TierNewcomer {
		t.Errorf("fresh record = score %d tier %s; want 0 newcomer", record.Score, record.Tier)
	}

	if _, err := svc.InitializeTrustScore(ctx, "alice"); !errors.Is(err, halo.ErrTrustScoreAlreadyExists) {
		t.Errorf("second init: err = %v; want ErrTrustScoreAlreadyExists", err)
	}

	if _, err := svc.GetTrustScore(ctx, "nobody"); !errors.Is(err, halo.ErrTrustScoreNotFound) {
		t.Errorf("unknown identity: err = %v; want ErrTrustScoreNotFound", err)
	}
}

func TestSocialProofs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.InitializeTrustScore(ctx, "alice"); err != nil {
		t.Fatalf("InitializeTrustScore: %v", err)
	}

	t.Run("rejects empty and oversized strings", func(t *testing.T) {
		if _, err := svc.AddSocialProof(ctx, "alice", "", "handle"); !errors.Is(err, halo.ErrInvalidSocialProof) {
			t.Errorf("empty type: err = %v; want ErrInvalidSocialProof", err)
		}
		long := strings.Repeat("x", halo.MaxSocialProofLen+1)
		if _, err := svc.AddSocialProof(ctx, "alice", "twitter", long); !errors.Is(err, halo.ErrInvalidSocialProof) {
			t.Errorf("long identifier: err = %v; want ErrInvalidSocialProof", err)
		}
	})

	t.Run("unverified proofs score nothing", func(t *testing.T) {
		record, err := svc.AddSocialProof(ctx, "alice", "twitter", "@alice")
		if err != nil {
			t.Fatalf("AddSocialProof: %v", err)
		}
		if record.SocialProofScore != 0 {
			t.Errorf("SocialProofScore = %d; want 0", record.SocialProofScore)
		}
	})

	t.Run("duplicate pair", func(t *testing.T) {
		if _, err := svc.AddSocialProof(ctx, "alice", "twitter", "@alice"); !errors.Is(err, halo.ErrSocialProofExists) {
			t.Errorf("err = %v; want ErrSocialProofExists", err)
		}
	})

	t.Run("verification grants twenty points each", func(t *testing.T) {
		record, err := svc.VerifySocialProof(ctx, "alice", "twitter", "@alice")
		if err != nil {
			t.Fatalf("VerifySocialProof: %v", err)
		}
		if record.SocialProofScore != 20 || record.Score != 20 {
			t.Errorf("scores = %d/%d; want 20/20", record.SocialProofScore, record.Score)
		}
		// Re-verifying is a no-op.
		record, err = svc.VerifySocialProof(ctx, "alice", "twitter", "@alice")
		if err != nil {
			t.Fatalf("VerifySocialProof again: %v", err)
		}
		if record.SocialProofScore != 20 {
			t.Errorf("SocialProofScore = %d; want 20", record.SocialProofScore)
		}
	})

	t.Run("verifying a missing proof", func(t *testing.T) {
		if _, err := svc.VerifySocialProof(ctx, "alice", "github", "alice"); !errors.Is(err, halo.ErrInvalidSocialProof) {
			t.Errorf("err = %v; want ErrInvalidSocialProof", err)
		}
	})

	t.Run("caps at five proofs", func(t *testing.T) {
		for i := 0; i < halo.MaxSocialProofs-1; i++ {
			if _, err := svc.AddSocialProof(ctx, "alice", "discord", fmt.Sprintf("alice#%04d", i)); err != nil {
				t.Fatalf("AddSocialProof %d: %v", i, err)
			}
		}
		if _, err := svc.AddSocialProof(ctx, "alice", "lens", "alice.lens"); !errors.Is(err, halo.ErrInvalidSocialProof) {
			t.Errorf("sixth proof: err = %v; want ErrInvalidSocialProof", err)
		}
	})
}

func TestUpdateExternalActivityScore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.InitializeTrustScore(ctx, "alice"); err != nil {
		t.Fatalf("InitializeTrustScore: %v", err)
	}

	record, err := svc.UpdateExternalActivityScore(ctx, "alice", 150)
	if err != nil {
		t.Fatalf("UpdateExternalActivityScore: %v", err)
	}
	if record.ExternalActivityScore != 150 || record.Score != 150 {
		t.Errorf("scores = %d/%d; want 150/150", record.ExternalActivityScore, record.Score)
	}

	t.Run("rejects values above the cap", func(t *testing.T) {
		if _, err := svc.UpdateExternalActivityScore(ctx, "alice", halo.MaxExternalActivityScore+1); !errors.Is(err, halo.ErrInvalidSocialProof) {
			t.Errorf("err = %v; want ErrInvalidSocialProof", err)
		}
	})

	t.Run("rejects negative values", func(t *testing.T) {
		if _, err := svc.UpdateExternalActivityScore(ctx, "alice", -10); !errors.Is(err, halo.ErrInvalidSocialProof) {
			t.Errorf("err = %v; want ErrInvalidSocialProof", err)
		}
	})

	t.Run("accepts the cap exactly", func(t *testing.T) {
		record, err := svc.UpdateExternalActivityScore(ctx, "alice", halo.MaxExternalActivityScore)
		if err != nil {
			t.Fatalf("UpdateExternalActivityScore: %v", err)
		}
		if record.ExternalActivityScore != halo.MaxExternalActivityScore {
			t.Errorf("ExternalActivityScore = %d; want %d", record.ExternalActivityScore, halo.MaxExternalActivityScore)
		}
	})
}
