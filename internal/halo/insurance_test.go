package halo

import (
	"errors"
	"testing"
)

func testPool() *InsurancePool {
	return &InsurancePool{
		CircleID:          1,
		TotalStaked:       400,
		AvailableCoverage: 0,
		Stakes: []MemberInsuranceStake{
			{Member: "alice", AmountStaked: 100, CanClaim: true},
			{Member: "bob", AmountStaked: 100, CanClaim: true},
			{Member: "carol", AmountStaked: 200, CanClaim: true},
		},
	}
}

func TestValidateInsuranceStake(t *testing.T) {
	// Contribution 1000: stakes must land in [100, 200].
	cases := []struct {
		name   string
		amount uint64
		want   error
	}{
		{"below minimum", 99, ErrInsufficientInsurance},
		{"at minimum", 100, nil},
		{"at maximum", 200, nil},
		{"above maximum", 201, ErrExcessiveInsurance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateInsuranceStake(tc.amount, 1000); !errors.Is(err, tc.want) {
				t.Errorf("err = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestInsuranceReturnAmount(t *testing.T) {
	got, err := InsuranceReturnAmount(200)
	if err != nil {
		t.Fatalf("InsuranceReturnAmount: %v", err)
	}
	// Stake plus the 5% bonus.
	if got != 210 {
		t.Errorf("return = %d; want 210", got)
	}
}

func TestInsuranceClaims(t *testing.T) {
	p := testPool()

	forfeited, err := p.Slash("alice")
	if err != nil {
		t.Fatalf("Slash: %v", err)
	}
	if forfeited != 100 || p.AvailableCoverage != 100 {
		t.Fatalf("forfeited = %d, coverage = %d; want 100, 100", forfeited, p.AvailableCoverage)
	}

	t.Run("shares follow stake proportion", func(t *testing.T) {
		// carol staked 200 of the 400 pool, so her share of alice's
		// forfeited 100 is 50.
		share, err := p.Claimable("carol", "alice")
		if err != nil {
			t.Fatalf("Claimable: %v", err)
		}
		if share != 50 {
			t.Errorf("share = %d; want 50", share)
		}
		share, err = p.Claimable("bob", "alice")
		if err != nil {
			t.Fatalf("Claimable: %v", err)
		}
		if share != 25 {
			t.Errorf("share = %d; want 25", share)
		}
	})

	t.Run("slashed member cannot claim", func(t *testing.T) {
		if _, err := p.Claimable("alice", "alice"); !errors.Is(err, ErrNoClaimableInsurance) {
			t.Errorf("err = %v; want ErrNoClaimableInsurance", err)
		}
	})

	t.Run("unknown members are rejected", func(t *testing.T) {
		if _, err := p.Claimable("mallory", "alice"); !errors.Is(err, ErrMemberNotFound) {
			t.Errorf("claimant err = %v; want ErrMemberNotFound", err)
		}
		if _, err := p.Claimable("bob", "mallory"); !errors.Is(err, ErrMemberNotFound) {
			t.Errorf("defaulted err = %v; want ErrMemberNotFound", err)
		}
	})

	t.Run("share beyond coverage is rejected", func(t *testing.T) {
		p.AvailableCoverage = 10
		if _, err := p.Claimable("carol", "alice"); !errors.Is(err, ErrInsufficientCoverage) {
			t.Errorf("err = %v; want ErrInsufficientCoverage", err)
		}
	})
}
