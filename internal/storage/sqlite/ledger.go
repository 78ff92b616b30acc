package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kunal-drall/halo/internal/halo"
)

// CreateLedgerAccount inserts a new value-transfer account.
func (t *sqlTx) CreateLedgerAccount(ctx context.Context, a *halo.LedgerAccount) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_accounts (id, owner, balance) VALUES (?, ?, ?)`,
		a.ID, a.Owner, int64(a.Balance),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger account: %w", err)
	}
	return nil
}

// GetLedgerAccount retrieves a value-transfer account by id.
func (t *sqlTx) GetLedgerAccount(ctx context.Context, id string) (*halo.LedgerAccount, error) {
	a := &halo.LedgerAccount{ID: id}
	var balance int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT owner, balance FROM ledger_accounts WHERE id = ?`, id,
	).Scan(&a.Owner, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, halo.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger account %s: %w", id, err)
	}
	a.Balance = uint64(balance)
	return a, nil
}

// UpdateLedgerBalance sets the balance of an existing account.
func (t *sqlTx) UpdateLedgerBalance(ctx context.Context, id string, balance uint64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE ledger_accounts SET balance = ? WHERE id = ?`,
		int64(balance), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger account %s: %w", id, err)
	}
	return requireRow(res, halo.ErrAccountNotFound)
}

// InsertLedgerTransfer records one executed transfer for auditing.
func (t *sqlTx) InsertLedgerTransfer(ctx context.Context, tr *halo.LedgerTransfer) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_transfers (id, from_account, to_account, authority, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.From, tr.To, tr.Authority, int64(tr.Amount), tr.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger transfer: %w", err)
	}
	return nil
}
