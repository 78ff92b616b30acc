package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS circles (
    id INTEGER PRIMARY KEY,
    creator TEXT NOT NULL,
    contribution_amount INTEGER NOT NULL,
    duration_months INTEGER NOT NULL,
    max_members INTEGER NOT NULL,
    current_members INTEGER NOT NULL,
    current_month INTEGER NOT NULL,
    penalty_rate INTEGER NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    total_pot INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS circle_members (
    circle_id INTEGER NOT NULL,
    identity TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (circle_id, identity),
    FOREIGN KEY (circle_id) REFERENCES circles(id)
);

CREATE TABLE IF NOT EXISTS members (
    circle_id INTEGER NOT NULL,
    identity TEXT NOT NULL,
    stake_amount INTEGER NOT NULL,
    status TEXT NOT NULL,
    has_received_pot INTEGER NOT NULL DEFAULT 0,
    penalties INTEGER NOT NULL DEFAULT 0,
    joined_at INTEGER NOT NULL,
    trust_score INTEGER NOT NULL DEFAULT 0,
    trust_tier TEXT NOT NULL,
    contributions_missed INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (circle_id, identity),
    FOREIGN KEY (circle_id) REFERENCES circles(id)
);

CREATE TABLE IF NOT EXISTS member_contributions (
    circle_id INTEGER NOT NULL,
    month INTEGER NOT NULL,
    member TEXT NOT NULL,
    amount INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (circle_id, month, member),
    FOREIGN KEY (circle_id) REFERENCES circles(id)
);

CREATE TABLE IF NOT EXISTS monthly_contributions (
    circle_id INTEGER NOT NULL,
    month INTEGER NOT NULL,
    total_collected INTEGER NOT NULL DEFAULT 0,
    distributed_to TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (circle_id, month),
    FOREIGN KEY (circle_id) REFERENCES circles(id)
);

CREATE TABLE IF NOT EXISTS escrows (
    circle_id INTEGER PRIMARY KEY,
    total_amount INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (circle_id) REFERENCES circles(id)
);

CREATE TABLE IF NOT EXISTS escrow_monthly_pots (
    circle_id INTEGER NOT NULL,
    month INTEGER NOT NULL,
    amount INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (circle_id, month),
    FOREIGN KEY (circle_id) REFERENCES escrows(circle_id)
);

CREATE TABLE IF NOT EXISTS trust_scores (
    identity TEXT PRIMARY KEY,
    score INTEGER NOT NULL DEFAULT 0,
    tier TEXT NOT NULL,
    payment_history_score INTEGER NOT NULL DEFAULT 0,
    completion_score INTEGER NOT NULL DEFAULT 0,
    external_activity_score INTEGER NOT NULL DEFAULT 0,
    social_proof_score INTEGER NOT NULL DEFAULT 0,
    circles_completed INTEGER NOT NULL DEFAULT 0,
    circles_joined INTEGER NOT NULL DEFAULT 0,
    total_contributions INTEGER NOT NULL DEFAULT 0,
    missed_contributions INTEGER NOT NULL DEFAULT 0,
    last_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS social_proofs (
    identity TEXT NOT NULL,
    proof_type TEXT NOT NULL,
    identifier TEXT NOT NULL,
    verified INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (identity, proof_type, identifier),
    FOREIGN KEY (identity) REFERENCES trust_scores(identity)
);

CREATE TABLE IF NOT EXISTS completion_credits (
    circle_id INTEGER NOT NULL,
    identity TEXT NOT NULL,
    PRIMARY KEY (circle_id, identity)
);

CREATE TABLE IF NOT EXISTS proposals (
    id INTEGER PRIMARY KEY,
    circle_id INTEGER NOT NULL,
    proposer TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    proposal_type TEXT NOT NULL,
    status TEXT NOT NULL,
    voting_start INTEGER NOT NULL,
    voting_end INTEGER NOT NULL,
    execution_threshold INTEGER NOT NULL,
    total_voting_power INTEGER NOT NULL DEFAULT 0,
    votes_for INTEGER NOT NULL DEFAULT 0,
    votes_against INTEGER NOT NULL DEFAULT 0,
    quadratic_for INTEGER NOT NULL DEFAULT 0,
    quadratic_against INTEGER NOT NULL DEFAULT 0,
    executed INTEGER NOT NULL DEFAULT 0,
    executed_at INTEGER NOT NULL DEFAULT 0,
    new_interest_rate INTEGER,
    FOREIGN KEY (circle_id) REFERENCES circles(id)
);

CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    proposal_id INTEGER NOT NULL,
    voter TEXT NOT NULL,
    voting_power INTEGER NOT NULL,
    quadratic_weight INTEGER NOT NULL,
    support INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (proposal_id, voter),
    FOREIGN KEY (proposal_id) REFERENCES proposals(id)
);

CREATE TABLE IF NOT EXISTS auctions (
    id INTEGER PRIMARY KEY,
    circle_id INTEGER NOT NULL,
    initiator TEXT NOT NULL,
    pot_amount INTEGER NOT NULL,
    starting_bid INTEGER NOT NULL,
    highest_bid INTEGER NOT NULL,
    highest_bidder TEXT NOT NULL DEFAULT '',
    start_time INTEGER NOT NULL,
    end_time INTEGER NOT NULL,
    status TEXT NOT NULL,
    settled INTEGER NOT NULL DEFAULT 0,
    bid_count INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (circle_id) REFERENCES circles(id)
);

CREATE TABLE IF NOT EXISTS bids (
    id TEXT PRIMARY KEY,
    auction_id INTEGER NOT NULL,
    bidder TEXT NOT NULL,
    amount INTEGER NOT NULL,
    bidder_stake INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    is_highest INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (auction_id) REFERENCES auctions(id)
);

CREATE TABLE IF NOT EXISTS treasury (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    authority TEXT NOT NULL,
    total_fees_collected INTEGER NOT NULL DEFAULT 0,
    distribution_fees INTEGER NOT NULL DEFAULT 0,
    yield_fees INTEGER NOT NULL DEFAULT 0,
    management_fees INTEGER NOT NULL DEFAULT 0,
    last_management_collection INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS revenue_params (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    authority TEXT NOT NULL,
    distribution_fee_rate INTEGER NOT NULL,
    yield_fee_rate INTEGER NOT NULL,
    management_fee_rate INTEGER NOT NULL,
    management_fee_interval INTEGER NOT NULL,
    last_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_accounts (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    balance INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ledger_transfers (
    id TEXT PRIMARY KEY,
    from_account TEXT NOT NULL,
    to_account TEXT NOT NULL,
    authority TEXT NOT NULL,
    amount INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (from_account) REFERENCES ledger_accounts(id),
    FOREIGN KEY (to_account) REFERENCES ledger_accounts(id)
);

CREATE INDEX IF NOT EXISTS idx_circle_members_circle ON circle_members(circle_id);
CREATE INDEX IF NOT EXISTS idx_member_contributions_member ON member_contributions(circle_id, member);
CREATE INDEX IF NOT EXISTS idx_votes_proposal ON votes(proposal_id);
CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_id);
CREATE INDEX IF NOT EXISTS idx_ledger_transfers_from ON ledger_transfers(from_account);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
