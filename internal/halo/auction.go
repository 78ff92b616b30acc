package halo

// MaxAuctionDurationHours bounds the bidding window.
const MaxAuctionDurationHours = 72

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionActive AuctionStatus = "active"
	AuctionEnded  AuctionStatus = "ended"
)

// Auction is a time-boxed ascending auction for one month's pot allocation.
type Auction struct {
	ID        uint64
	CircleID  uint64
	Initiator string
	// PotAmount is the pot being auctioned, held by the circle escrow.
	PotAmount   uint64
	StartingBid uint64
	HighestBid  uint64
	// HighestBidder is empty until the first bid lands.
	HighestBidder string
	StartTime     int64
	EndTime       int64
	Status        AuctionStatus
	Settled       bool
	BidCount      int
}

// IsActive reports whether the auction accepts bids at the given time.
func (a *Auction) IsActive(now int64) bool {
	return a.Status == AuctionActive && now >= a.StartTime && now < a.EndTime
}

// HasEnded reports whether the bidding window has closed at the given time.
func (a *Auction) HasEnded(now int64) bool {
	return now >= a.EndTime || a.Status == AuctionEnded
}

// Bid is one bid record on one auction.
type Bid struct {
	ID        string
	AuctionID uint64
	Bidder    string
	Amount    uint64
	// BidderStake is the bidder's circle stake at bid time.
	BidderStake uint64
	Timestamp   int64
	IsHighest   bool
}
