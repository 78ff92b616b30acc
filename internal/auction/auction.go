// Package auction implements time-boxed ascending auctions for a month's pot
// allocation right. Bids are escrowed in a per-auction ledger account; a
// superseded highest bid is refunded the moment it is outbid.
package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/ledger"
	"github.com/kunal-drall/halo/internal/safemath"
	"github.com/kunal-drall/halo/internal/storage"
)

// Service exposes the auction lifecycle.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates an auction service backed by the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateAuction opens an auction on a circle's pot. The window is capped at
// 72 hours, the pot must be positive, and the starting bid must fall in
// (0, pot]. The initiator must be on the circle's roster.
func (s *Service) CreateAuction(ctx context.Context, circleID uint64, initiator string, potAmount, startingBid uint64, duration time.Duration) (*halo.Auction, error) {
	if duration <= 0 || duration > halo.MaxAuctionDurationHours*time.Hour {
		return nil, halo.ErrInvalidAuctionDuration
	}
	if potAmount == 0 {
		return nil, halo.ErrNoPotForAuction
	}
	if startingBid == 0 || startingBid > potAmount {
		return nil, halo.ErrBidTooLow
	}

	now := s.now()
	a := &halo.Auction{
		ID:          uint64(now.UnixNano()),
		CircleID:    circleID,
		Initiator:   initiator,
		PotAmount:   potAmount,
		StartingBid: startingBid,
		StartTime:   now.Unix(),
		EndTime:     now.Add(duration).Unix(),
		Status:      halo.AuctionActive,
	}
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCircle(ctx, circleID)
		if err != nil {
			return err
		}
		if !c.HasMember(initiator) {
			return halo.ErrMemberNotFound
		}
		if err := tx.CreateAuction(ctx, a); err != nil {
			return err
		}
		return ledger.CreateAccount(ctx, tx, halo.AuctionAccountID(a.ID), halo.AuctionAuthority(a.ID), 0)
	})
	if err != nil {
		slog.Error("CreateAuction failed", "circle_id", circleID, "initiator", initiator, "error", err)
		return nil, err
	}
	slog.Info("auction created", "auction_id", a.ID, "circle_id", circleID, "pot", potAmount, "starting_bid", startingBid)
	return a, nil
}

// PlaceBid escrows a bid on an open auction. The bid must beat both the
// starting bid and the current highest, and the bidder's circle stake must
// cover a tenth of it. The outbid predecessor is refunded immediately.
func (s *Service) PlaceBid(ctx context.Context, auctionID uint64, bidder string, amount uint64) (*halo.Bid, error) {
	var bid *halo.Bid
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		a, err := tx.GetAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		now := s.now().Unix()
		if a.HasEnded(now) {
			return halo.ErrAuctionHasEnded
		}
		if !a.IsActive(now) {
			return halo.ErrAuctionNotActive
		}
		if bidder == a.Initiator {
			return halo.ErrCannotBidOwnAuction
		}
		if amount < a.StartingBid || amount <= a.HighestBid {
			return halo.ErrBidTooLow
		}

		m, err := tx.GetMember(ctx, a.CircleID, bidder)
		if err != nil {
			return err
		}
		required, _ := safemath.Div(amount, 10)
		if m.StakeAmount < required {
			return halo.ErrInsufficientStakeBid
		}

		if err := ledger.Transfer(ctx, tx, bidder, halo.AuctionAccountID(auctionID), bidder, amount); err != nil {
			return err
		}
		if a.HighestBidder != "" {
			if err := ledger.Transfer(ctx, tx, halo.AuctionAccountID(auctionID), a.HighestBidder, halo.AuctionAuthority(auctionID), a.HighestBid); err != nil {
				return err
			}
		}

		if err := tx.ClearHighestBid(ctx, auctionID); err != nil {
			return err
		}
		bid = &halo.Bid{
			ID:          uuid.New().String(),
			AuctionID:   auctionID,
			Bidder:      bidder,
			Amount:      amount,
			BidderStake: m.StakeAmount,
			Timestamp:   now,
			IsHighest:   true,
		}
		if err := tx.CreateBid(ctx, bid); err != nil {
			return err
		}

		a.HighestBid = amount
		a.HighestBidder = bidder
		a.BidCount++
		return tx.UpdateAuction(ctx, a)
	})
	if err != nil {
		slog.Error("PlaceBid failed", "auction_id", auctionID, "bidder", bidder, "error", err)
		return nil, err
	}
	slog.Info("bid placed", "auction_id", auctionID, "bidder", bidder, "amount", amount)
	return bid, nil
}

// SettleAuction closes an ended auction. With a winner, the winning bid moves
// from the auction account into the circle escrow and the auctioned pot moves
// from the escrow to the winner, all inside the settlement transaction. With
// no bids the auction just closes.
func (s *Service) SettleAuction(ctx context.Context, auctionID uint64) (*halo.Auction, error) {
	var a *halo.Auction
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		a, err = tx.GetAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.Settled {
			return halo.ErrAuctionSettled
		}
		now := s.now().Unix()
		if now < a.EndTime {
			return halo.ErrAuctionNotEnded
		}

		if a.HighestBidder != "" {
			escrowAcct := halo.EscrowAccountID(a.CircleID)
			if err := ledger.Transfer(ctx, tx, halo.AuctionAccountID(auctionID), escrowAcct, halo.AuctionAuthority(auctionID), a.HighestBid); err != nil {
				return err
			}
			if err := ledger.Transfer(ctx, tx, escrowAcct, a.HighestBidder, halo.EscrowAuthority(a.CircleID), a.PotAmount); err != nil {
				return err
			}

			e, err := tx.GetEscrow(ctx, a.CircleID)
			if err != nil {
				return err
			}
			e.TotalAmount, err = adjust(e.TotalAmount, a.HighestBid, a.PotAmount)
			if err != nil {
				return err
			}
			if err := tx.UpdateEscrow(ctx, e); err != nil {
				return err
			}

			c, err := tx.GetCircle(ctx, a.CircleID)
			if err != nil {
				return err
			}
			c.TotalPot, err = adjust(c.TotalPot, a.HighestBid, a.PotAmount)
			if err != nil {
				return err
			}
			if err := tx.UpdateCircle(ctx, c); err != nil {
				return err
			}
		}

		a.Settled = true
		a.Status = halo.AuctionEnded
		return tx.UpdateAuction(ctx, a)
	})
	if err != nil {
		slog.Error("SettleAuction failed", "auction_id", auctionID, "error", err)
		return nil, err
	}
	slog.Info("auction settled", "auction_id", auctionID, "winner", a.HighestBidder, "winning_bid", a.HighestBid)
	return a, nil
}

// GetAuction returns one auction.
func (s *Service) GetAuction(ctx context.Context, auctionID uint64) (*halo.Auction, error) {
	var a *halo.Auction
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		a, err = tx.GetAuction(ctx, auctionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// adjust applies the settlement delta (+credit, -debit) with checked math.
func adjust(total, credit, debit uint64) (uint64, error) {
	sum, ok := safemath.Add(total, credit)
	if !ok {
		return 0, halo.ErrArithmeticOverflow
	}
	out, ok := safemath.Sub(sum, debit)
	if !ok {
		return 0, halo.ErrArithmeticOverflow
	}
	return out, nil
}
