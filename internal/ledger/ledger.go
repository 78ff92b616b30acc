// Package ledger implements the external value-transfer primitive the
// protocol settles against. Every movement of funds between protocol
// participants, escrows, and the treasury goes through Transfer, inside the
// same storage transaction as the record mutations it pays for.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/safemath"
	"github.com/kunal-drall/halo/internal/storage"
)

// CreateAccount opens a new ledger account with the given starting balance.
func CreateAccount(ctx context.Context, tx storage.Tx, id, owner string, balance uint64) error {
	return tx.CreateLedgerAccount(ctx, &halo.LedgerAccount{
		ID:      id,
		Owner:   owner,
		Balance: balance,
	})
}

// Transfer moves amount from one account to another. The presented authority
// must match the source account's owner, and the two accounts must differ: a
// self-transfer would credit the destination from a balance read before the
// debit was written, netting the account +amount. Balances use checked
// arithmetic; an error leaves both accounts untouched because the caller's
// transaction rolls back.
func Transfer(ctx context.Context, tx storage.Tx, from, to, authority string, amount uint64) error {
	if from == to {
		return halo.ErrSelfTransfer
	}
	src, err := tx.GetLedgerAccount(ctx, from)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		slog.Warn("transfer rejected", "from", from, "authority", authority)
		return halo.ErrUnauthorized
	}
	dst, err := tx.GetLedgerAccount(ctx, to)
	if err != nil {
		return err
	}

	newSrc, ok := safemath.Sub(src.Balance, amount)
	if !ok {
		return halo.ErrInsufficientFunds
	}
	newDst, ok := safemath.Add(dst.Balance, amount)
	if !ok {
		return halo.ErrArithmeticOverflow
	}

	if err := tx.UpdateLedgerBalance(ctx, from, newSrc); err != nil {
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}
	if err := tx.UpdateLedgerBalance(ctx, to, newDst); err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}
	if err := tx.InsertLedgerTransfer(ctx, &halo.LedgerTransfer{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Authority: authority,
		Amount:    amount,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}
	return nil
}
