// Package circle implements the savings-circle state machine: formation,
// admission, monthly contributions, pot distribution, exits, and default
// handling. Every operation runs as one all-or-nothing store transaction that
// also carries its ledger movement.
package circle

import (
	"context"
	"log/slog"
	"time"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/ledger"
	"github.com/kunal-drall/halo/internal/safemath"
	"github.com/kunal-drall/halo/internal/storage"
)

// Service exposes the circle lifecycle operations.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a circle service backed by the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// InitializeCircle creates a circle, its escrow record, and the escrow's
// ledger account in one transaction. The circle id is derived from the
// creation instant.
func (s *Service) InitializeCircle(ctx context.Context, creator string, contributionAmount uint64, durationMonths, maxMembers, penaltyRate int) (*halo.Circle, error) {
	if contributionAmount == 0 {
		return nil, halo.ErrInvalidContributionAmount
	}
	if durationMonths < 1 || durationMonths > halo.MaxDuration {
		return nil, halo.ErrInvalidDuration
	}
	if maxMembers < 1 || maxMembers > halo.MaxMembers {
		return nil, halo.ErrInvalidMaxMembers
	}
	if penaltyRate < 0 || penaltyRate > halo.MaxPenaltyRate {
		return nil, halo.ErrInvalidPenaltyRate
	}

	now := s.now()
	c := &halo.Circle{
		ID:                 uint64(now.UnixNano()),
		Creator:            creator,
		ContributionAmount: contributionAmount,
		DurationMonths:     durationMonths,
		MaxMembers:         maxMembers,
		PenaltyRate:        penaltyRate,
		Status:             halo.CircleActive,
		CreatedAt:          now.Unix(),
	}
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		if err := tx.CreateCircle(ctx, c); err != nil {
			return err
		}
		if err := tx.CreateEscrow(ctx, &halo.Escrow{
			CircleID:    c.ID,
			MonthlyPots: make([]uint64, durationMonths),
		}); err != nil {
			return err
		}
		return ledger.CreateAccount(ctx, tx, halo.EscrowAccountID(c.ID), halo.EscrowAuthority(c.ID), 0)
	})
	if err != nil {
		slog.Error("InitializeCircle failed", "creator", creator, "error", err)
		return nil, err
	}
	slog.Info("circle initialized",
		"circle_id", c.ID,
		"creator", creator,
		"contribution", contributionAmount,
		"duration_months", durationMonths,
	)
	return c, nil
}

// minimumStake computes the tier-derived admission collateral. The two
// Newcomer-priced paths are deliberately separate: a stored trust record uses
// its tier's multiplier, while an identity with no record at all pays the
// flat factor.
func minimumStake(c *halo.Circle, record *halo.TrustScore) (uint64, error) {
	if record == nil {
		min, ok := safemath.Mul(c.ContributionAmount, halo.AbsentRecordStakeFactor)
		if !ok {
			return 0, halo.ErrArithmeticOverflow
		}
		return min, nil
	}
	scaled, ok := safemath.Mul(c.ContributionAmount, record.Tier.StakeMultiplier())
	if !ok {
		return 0, halo.ErrArithmeticOverflow
	}
	min, _ := safemath.Div(scaled, 100)
	return min, nil
}

// JoinCircle admits identity into a circle, moving the stake into escrow.
// The required minimum stake depends on the identity's trust tier; when a
// trust record exists its joined-circle counter is bumped.
func (s *Service) JoinCircle(ctx context.Context, circleID uint64, identity string, stakeAmount uint64) (*halo.Member, error) {
	var member *halo.Member
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, circleID)
		if err != nil {
			return err
		}
		if c.Status != halo.CircleActive {
			return halo.ErrCircleNotActive
		}
		if c.CurrentMembers >= c.MaxMembers {
			return halo.ErrCircleFull
		}
		if c.HasMember(identity) {
			return halo.ErrMemberAlreadyExists
		}

		record, err := tx.GetTrustScore(ctx, identity)
		if err != nil && err != halo.ErrTrustScoreNotFound {
			return err
		}
		min, err := minimumStake(c, record)
		if err != nil {
			return err
		}
		if stakeAmount < min {
			return halo.ErrInsufficientStake
		}

		if err := ledger.Transfer(ctx, tx, identity, halo.EscrowAccountID(circleID), identity, stakeAmount); err != nil {
			return err
		}

		member = &halo.Member{
			CircleID:            circleID,
			Identity:            identity,
			StakeAmount:         stakeAmount,
			ContributionHistory: make([]uint64, c.DurationMonths),
			Status:              halo.MemberActive,
			JoinedAt:            s.now().Unix(),
			TrustTier:           halo.TierNewcomer,
		}
		if record != nil {
			member.TrustScore = record.Score
			member.TrustTier = record.Tier
		}
		if err := tx.CreateMember(ctx, member); err != nil {
			return err
		}
		if err := tx.AddCircleMember(ctx, circleID, identity); err != nil {
			return err
		}

		c.CurrentMembers++
		if err := tx.UpdateCircle(ctx, c); err != nil {
			return err
		}

		e, err := tx.GetEscrow(ctx, circleID)
		if err != nil {
			return err
		}
		e.TotalAmount, err = checkedAdd(e.TotalAmount, stakeAmount)
		if err != nil {
			return err
		}
		if err := tx.UpdateEscrow(ctx, e); err != nil {
			return err
		}

		if record != nil {
			record.CirclesJoined++
			record.LastUpdated = s.now().Unix()
			record.Recalculate()
			return tx.UpdateTrustScore(ctx, record)
		}
		return nil
	})
	if err != nil {
		slog.Error("JoinCircle failed", "circle_id", circleID, "identity", identity, "error", err)
		return nil, err
	}
	slog.Info("member joined", "circle_id", circleID, "identity", identity, "stake", stakeAmount)
	return member, nil
}

// Contribute records identity's payment for the current month and moves the
// amount into escrow. Each month slot is write-once; roll-ups for skipped
// months are created empty so the ledger stays dense.
func (s *Service) Contribute(ctx context.Context, circleID uint64, identity string, amount uint64) error {
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, circleID)
		if err != nil {
			return err
		}
		if c.Status != halo.CircleActive {
			return halo.ErrCircleNotActive
		}
		m, err := tx.GetMember(ctx, circleID, identity)
		if err != nil {
			return err
		}
		if m.Status != halo.MemberActive {
			return halo.ErrMemberInDefault
		}
		if amount != c.ContributionAmount {
			return halo.ErrInvalidContributionAmount
		}

		month := c.MonthIndex(s.now())
		if m.ContributionHistory[month] != 0 {
			return halo.ErrContributionAlreadyMade
		}

		if err := ledger.Transfer(ctx, tx, identity, halo.EscrowAccountID(circleID), identity, amount); err != nil {
			return err
		}

		// Fill roll-up gaps for months no one contributed in.
		for g := 0; g < month; g++ {
			mc, err := tx.GetMonthly(ctx, circleID, g)
			if err != nil {
				return err
			}
			if mc == nil {
				if err := tx.PutMonthly(ctx, circleID, g, 0, ""); err != nil {
					return err
				}
			}
		}

		nowUnix := s.now().Unix()
		if err := tx.InsertContribution(ctx, circleID, month, halo.MemberContribution{
			Member:    identity,
			Amount:    amount,
			Timestamp: nowUnix,
		}); err != nil {
			return err
		}

		mc, err := tx.GetMonthly(ctx, circleID, month)
		if err != nil {
			return err
		}
		total, distributedTo := amount, ""
		if mc != nil {
			total, err = checkedAdd(mc.TotalCollected, amount)
			if err != nil {
				return err
			}
			distributedTo = mc.DistributedTo
		}
		if err := tx.PutMonthly(ctx, circleID, month, total, distributedTo); err != nil {
			return err
		}

		c.TotalPot, err = checkedAdd(c.TotalPot, amount)
		if err != nil {
			return err
		}
		c.CurrentMonth = month
		if err := tx.UpdateCircle(ctx, c); err != nil {
			return err
		}

		e, err := tx.GetEscrow(ctx, circleID)
		if err != nil {
			return err
		}
		e.TotalAmount, err = checkedAdd(e.TotalAmount, amount)
		if err != nil {
			return err
		}
		e.MonthlyPots[month], err = checkedAdd(e.MonthlyPots[month], amount)
		if err != nil {
			return err
		}
		if err := tx.UpdateEscrow(ctx, e); err != nil {
			return err
		}

		record, err := tx.GetTrustScore(ctx, identity)
		if err == halo.ErrTrustScoreNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		record.TotalContributions, err = checkedAdd(record.TotalContributions, amount)
		if err != nil {
			return err
		}
		record.LastUpdated = nowUnix
		record.Recalculate()
		if err := tx.UpdateTrustScore(ctx, record); err != nil {
			return err
		}
		m.TrustScore = record.Score
		m.TrustTier = record.Tier
		return tx.UpdateMember(ctx, m)
	})
	if err != nil {
		slog.Error("Contribute failed", "circle_id", circleID, "identity", identity, "error", err)
		return err
	}
	slog.Info("contribution recorded", "circle_id", circleID, "identity", identity, "amount", amount)
	return nil
}

// DistributePot pays the current month's collected pot from escrow to the
// recipient. Distributing the final month completes the circle; members then
// claim their completion credit individually.
func (s *Service) DistributePot(ctx context.Context, circleID uint64, recipient string) error {
	var completed bool
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, circleID)
		if err != nil {
			return err
		}
		if c.Status != halo.CircleActive {
			return halo.ErrCircleNotActive
		}
		m, err := tx.GetMember(ctx, circleID, recipient)
		if err != nil {
			return err
		}
		if m.HasReceivedPot {
			return halo.ErrMemberReceivedPot
		}

		month := c.MonthIndex(s.now())
		mc, err := tx.GetMonthly(ctx, circleID, month)
		if err != nil {
			return err
		}
		if mc == nil || mc.TotalCollected == 0 {
			return halo.ErrNothingToDistribute
		}
		if mc.DistributedTo != "" {
			return halo.ErrPotAlreadyDistributed
		}

		amount := mc.TotalCollected
		if err := ledger.Transfer(ctx, tx, halo.EscrowAccountID(circleID), recipient, halo.EscrowAuthority(circleID), amount); err != nil {
			return err
		}
		if err := tx.PutMonthly(ctx, circleID, month, amount, recipient); err != nil {
			return err
		}

		m.HasReceivedPot = true
		if err := tx.UpdateMember(ctx, m); err != nil {
			return err
		}

		e, err := tx.GetEscrow(ctx, circleID)
		if err != nil {
			return err
		}
		e.TotalAmount, err = checkedSub(e.TotalAmount, amount)
		if err != nil {
			return err
		}
		if err := tx.UpdateEscrow(ctx, e); err != nil {
			return err
		}

		c.TotalPot, err = checkedSub(c.TotalPot, amount)
		if err != nil {
			return err
		}
		c.CurrentMonth = month
		if month == c.DurationMonths-1 {
			c.Status = halo.CircleCompleted
			completed = true
		}
		return tx.UpdateCircle(ctx, c)
	})
	if err != nil {
		slog.Error("DistributePot failed", "circle_id", circleID, "recipient", recipient, "error", err)
		return err
	}
	slog.Info("pot distributed", "circle_id", circleID, "recipient", recipient, "completed", completed)
	return nil
}

// LeaveCircle exits a member, refunding the posted stake. Only allowed in
// month zero or while the member is in default; a completed circle rejects
// exits.
func (s *Service) LeaveCircle(ctx context.Context, circleID uint64, identity string) error {
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, circleID)
		if err != nil {
			return err
		}
		if c.Status == halo.CircleCompleted {
			return halo.ErrCircleEnded
		}
		m, err := tx.GetMember(ctx, circleID, identity)
		if err != nil {
			return err
		}
		if m.Status == halo.MemberExited {
			return halo.ErrMemberNotFound
		}
		if c.MonthIndex(s.now()) != 0 && m.Status != halo.MemberDefaulted {
			return halo.ErrCannotLeaveActive
		}

		if m.StakeAmount > 0 {
			if err := ledger.Transfer(ctx, tx, halo.EscrowAccountID(circleID), identity, halo.EscrowAuthority(circleID), m.StakeAmount); err != nil {
				return err
			}
			e, err := tx.GetEscrow(ctx, circleID)
			if err != nil {
				return err
			}
			e.TotalAmount, err = checkedSub(e.TotalAmount, m.StakeAmount)
			if err != nil {
				return err
			}
			if err := tx.UpdateEscrow(ctx, e); err != nil {
				return err
			}
		}

		m.Status = halo.MemberExited
		m.StakeAmount = 0
		if err := tx.UpdateMember(ctx, m); err != nil {
			return err
		}
		if err := tx.RemoveCircleMember(ctx, circleID, identity); err != nil {
			return err
		}
		c.CurrentMembers--
		return tx.UpdateCircle(ctx, c)
	})
	if err != nil {
		slog.Error("LeaveCircle failed", "circle_id", circleID, "identity", identity, "error", err)
		return err
	}
	slog.Info("member left", "circle_id", circleID, "identity", identity)
	return nil
}

// MarkDefault flags a member who skipped an elapsed month: status moves to
// Defaulted, a penalty accrues per newly missed month at the circle's rate,
// and the linked trust record's missed count is bumped. Calling it again
// before another month is missed is rejected.
func (s *Service) MarkDefault(ctx context.Context, circleID uint64, identity string) error {
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, circleID)
		if err != nil {
			return err
		}
		if c.Status != halo.CircleActive {
			return halo.ErrCircleNotActive
		}
		m, err := tx.GetMember(ctx, circleID, identity)
		if err != nil {
			return err
		}
		if m.Status == halo.MemberExited {
			return halo.ErrMemberNotFound
		}

		// Months strictly before the current one with an empty slot.
		month := c.MonthIndex(s.now())
		missed := 0
		for i := 0; i < month; i++ {
			if m.ContributionHistory[i] == 0 {
				missed++
			}
		}
		newMisses := missed - m.ContributionsMissed
		if newMisses <= 0 {
			return halo.ErrNoMissedContribution
		}

		scaled, ok := safemath.Mul(c.ContributionAmount, uint64(c.PenaltyRate))
		if !ok {
			return halo.ErrArithmeticOverflow
		}
		perMonth, _ := safemath.Div(scaled, 10000)
		accrued, ok := safemath.Mul(perMonth, uint64(newMisses))
		if !ok {
			return halo.ErrArithmeticOverflow
		}
		m.Penalties, err = checkedAdd(m.Penalties, accrued)
		if err != nil {
			return err
		}
		m.ContributionsMissed = missed
		m.Status = halo.MemberDefaulted
		if err := tx.UpdateMember(ctx, m); err != nil {
			return err
		}

		record, err := tx.GetTrustScore(ctx, identity)
		if err == halo.ErrTrustScoreNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		record.MissedContributions += newMisses
		record.LastUpdated = s.now().Unix()
		record.Recalculate()
		return tx.UpdateTrustScore(ctx, record)
	})
	if err != nil {
		slog.Error("MarkDefault failed", "circle_id", circleID, "identity", identity, "error", err)
		return err
	}
	slog.Info("member defaulted", "circle_id", circleID, "identity", identity)
	return nil
}

// ClaimPenalty pays a defaulted member's accrued penalty balance from escrow
// to the claimer and zeroes it.
func (s *Service) ClaimPenalty(ctx context.Context, circleID uint64, claimer, defaulted string) (uint64, error) {
	var amount uint64
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, circleID)
		if err != nil {
			return err
		}
		if c.Status != halo.CircleActive {
			return halo.ErrCircleNotActive
		}
		m, err := tx.GetMember(ctx, circleID, defaulted)
		if err != nil {
			return err
		}
		if m.Status != halo.MemberDefaulted {
			return halo.ErrMemberNotDefaulted
		}
		if m.Penalties == 0 {
			return halo.ErrNoPenaltyToClaim
		}

		amount = m.Penalties
		if err := ledger.Transfer(ctx, tx, halo.EscrowAccountID(circleID), claimer, halo.EscrowAuthority(circleID), amount); err != nil {
			return err
		}
		e, err := tx.GetEscrow(ctx, circleID)
		if err != nil {
			return err
		}
		e.TotalAmount, err = checkedSub(e.TotalAmount, amount)
		if err != nil {
			return err
		}
		if err := tx.UpdateEscrow(ctx, e); err != nil {
			return err
		}

		m.Penalties = 0
		return tx.UpdateMember(ctx, m)
	})
	if err != nil {
		slog.Error("ClaimPenalty failed", "circle_id", circleID, "defaulted", defaulted, "error", err)
		return 0, err
	}
	slog.Info("penalty claimed", "circle_id", circleID, "claimer", claimer, "amount", amount)
	return amount, nil
}

// ClaimCompletionCredit grants one member's trust record the completion
// credit for a finished circle. Idempotent per (circle, identity); anyone may
// invoke it on a member's behalf.
func (s *Service) ClaimCompletionCredit(ctx context.Context, circleID uint64, identity string) error {
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, circleID)
		if err != nil {
			return err
		}
		if c.Status != halo.CircleCompleted {
			return halo.ErrCompletionNotReached
		}
		if !c.HasMember(identity) {
			return halo.ErrMemberNotFound
		}
		if err := tx.InsertCompletionCredit(ctx, circleID, identity); err != nil {
			return err
		}
		record, err := tx.GetTrustScore(ctx, identity)
		if err != nil {
			return err
		}
		record.CirclesCompleted++
		record.LastUpdated = s.now().Unix()
		record.Recalculate()
		return tx.UpdateTrustScore(ctx, record)
	})
	if err != nil {
		slog.Error("ClaimCompletionCredit failed", "circle_id", circleID, "identity", identity, "error", err)
		return err
	}
	slog.Info("completion credit claimed", "circle_id", circleID, "identity", identity)
	return nil
}

// GetCircle returns a circle with its roster.
func (s *Service) GetCircle(ctx context.Context, circleID uint64) (*halo.Circle, error) {
	var c *halo.Circle
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		c, err = tx.GetCircle(ctx, circleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetMember returns one membership with its contribution history.
func (s *Service) GetMember(ctx context.Context, circleID uint64, identity string) (*halo.Member, error) {
	var m *halo.Member
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		m, err = tx.GetMember(ctx, circleID, identity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, ok := safemath.Add(a, b)
	if !ok {
		return 0, halo.ErrArithmeticOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	diff, ok := safemath.Sub(a, b)
	if !ok {
		return 0, halo.ErrArithmeticOverflow
	}
	return diff, nil
}
