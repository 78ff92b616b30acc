// Package halo defines the persisted records and pure rules of the Halo
// rotating-savings protocol.
//
// # Records
//
// The protocol state is a set of flat records, mutated only by the service
// packages (circle, trust, governance, auction, revenue):
//   - Circle: one savings group with a fixed monthly contribution, duration,
//     and membership cap, plus its per-month contribution ledger.
//   - Member: one participant's stake in one circle, keyed by (circle,
//     identity).
//   - Escrow: the custodial balance shadowing a circle's pooled funds.
//   - TrustScore: one reputation record per identity, shared across circles.
//   - Proposal/Vote, Auction/Bid: satellite governance and auction records.
//   - Treasury/RevenueParams: protocol-wide singletons.
//
// # Rules
//
// Pure functions that several services share live here too: trust score
// recalculation, tier mapping, minimum-stake multipliers, month indexing,
// and fee math. Anything that moves value or touches storage stays out of
// this package.
//
// Token amounts are unsigned integers in the smallest unit of the external
// ledger's token. Arithmetic on them is overflow-checked (internal/safemath);
// a would-be wraparound surfaces as ErrArithmeticOverflow instead of a silent
// truncation.
package halo
