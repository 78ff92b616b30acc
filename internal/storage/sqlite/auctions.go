package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kunal-drall/halo/internal/halo"
)

// CreateAuction inserts an auction row.
func (t *sqlTx) CreateAuction(ctx context.Context, a *halo.Auction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO auctions (id, circle_id, initiator, pot_amount, starting_bid, highest_bid,
			highest_bidder, start_time, end_time, status, settled, bid_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(a.ID), int64(a.CircleID), a.Initiator, int64(a.PotAmount), int64(a.StartingBid),
		int64(a.HighestBid), a.HighestBidder, a.StartTime, a.EndTime, string(a.Status),
		a.Settled, a.BidCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// GetAuction retrieves an auction by ID.
func (t *sqlTx) GetAuction(ctx context.Context, id uint64) (*halo.Auction, error) {
	a := &halo.Auction{}
	var aid, cid, pot, starting, highest int64
	var status string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, circle_id, initiator, pot_amount, starting_bid, highest_bid,
			highest_bidder, start_time, end_time, status, settled, bid_count
		FROM auctions WHERE id = ?`, int64(id),
	).Scan(&aid, &cid, &a.Initiator, &pot, &starting, &highest,
		&a.HighestBidder, &a.StartTime, &a.EndTime, &status, &a.Settled, &a.BidCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrAuctionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	a.ID = uint64(aid)
	a.CircleID = uint64(cid)
	a.PotAmount = uint64(pot)
	a.StartingBid = uint64(starting)
	a.HighestBid = uint64(highest)
	a.Status = halo.AuctionStatus(status)
	return a, nil
}

// UpdateAuction persists the auction's mutable fields.
func (t *sqlTx) UpdateAuction(ctx context.Context, a *halo.Auction) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE auctions SET highest_bid = ?, highest_bidder = ?, status = ?, settled = ?, bid_count = ?
		WHERE id = ?`,
		int64(a.HighestBid), a.HighestBidder, string(a.Status), a.Settled, a.BidCount, int64(a.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	return requireRow(res, halo.ErrAuctionNotFound)
}

// CreateBid inserts a bid row.
func (t *sqlTx) CreateBid(ctx context.Context, b *halo.Bid) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bids (id, auction_id, bidder, amount, bidder_stake, created_at, is_highest)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, int64(b.AuctionID), b.Bidder, int64(b.Amount), int64(b.BidderStake),
		b.Timestamp, b.IsHighest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// ClearHighestBid drops the is_highest flag from every bid on the auction,
// ahead of recording a new leader.
func (t *sqlTx) ClearHighestBid(ctx context.Context, auctionID uint64) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE bids SET is_highest = 0 WHERE auction_id = ?", int64(auctionID))
	if err != nil {
		return fmt.Errorf("failed to clear highest bid: %w", err)
	}
	return nil
}
