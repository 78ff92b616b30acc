package halo

// LedgerAccount mirrors one account of the external value-transfer service.
// Funds can only leave an account when the presented authority matches its
// owner.
type LedgerAccount struct {
	ID      string
	Owner   string
	Balance uint64
}

// LedgerTransfer is the audit record of one executed transfer.
type LedgerTransfer struct {
	ID        string
	From      string
	To        string
	Authority string
	Amount    uint64
	Timestamp int64
}
