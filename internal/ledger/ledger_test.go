package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/storage"
	"github.com/kunal-drall/halo/internal/storage/sqlite"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func balance(t *testing.T, store storage.Store, id string) uint64 {
	t.Helper()
	var bal uint64
	err := store.Transact(context.Background(), func(tx storage.Tx) error {
		a, err := tx.GetLedgerAccount(context.Background(), id)
		if err != nil {
			return err
		}
		bal = a.Balance
		return nil
	})
	if err != nil {
		t.Fatalf("balance(%s): %v", id, err)
	}
	return bal
}

func TestTransfer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Transact(ctx, func(tx storage.Tx) error {
		if err := CreateAccount(ctx, tx, "alice", "alice", 1000); err != nil {
			return err
		}
		return CreateAccount(ctx, tx, "escrow:1", "escrow-authority:1", 0)
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	t.Run("owner can move funds", func(t *testing.T) {
		err := store.Transact(ctx, func(tx storage.Tx) error {
			return Transfer(ctx, tx, "alice", "escrow:1", "alice", 300)
		})
		if err != nil {
			t.Fatalf("transfer: %v", err)
		}
		if got := balance(t, store, "alice"); got != 700 {
			t.Errorf("alice balance = %d; want 700", got)
		}
		if got := balance(t, store, "escrow:1"); got != 300 {
			t.Errorf("escrow balance = %d; want 300", got)
		}
	})

	t.Run("derived authority can pay out of escrow", func(t *testing.T) {
		err := store.Transact(ctx, func(tx storage.Tx) error {
			return Transfer(ctx, tx, "escrow:1", "alice", "escrow-authority:1", 100)
		})
		if err != nil {
			t.Fatalf("transfer: %v", err)
		}
		if got := balance(t, store, "escrow:1"); got != 200 {
			t.Errorf("escrow balance = %d; want 200", got)
		}
	})

	t.Run("wrong authority is rejected", func(t *testing.T) {
		err := store.Transact(ctx, func(tx storage.Tx) error {
			return Transfer(ctx, tx, "escrow:1", "alice", "alice", 1)
		})
		if !errors.Is(err, halo.ErrUnauthorized) {
			t.Errorf("err = %v; want ErrUnauthorized", err)
		}
	})

	t.Run("self-transfer is rejected and balance is unchanged", func(t *testing.T) {
		before := balance(t, store, "escrow:1")
		err := store.Transact(ctx, func(tx storage.Tx) error {
			return Transfer(ctx, tx, "escrow:1", "escrow:1", "escrow-authority:1", 100)
		})
		if !errors.Is(err, halo.ErrSelfTransfer) {
			t.Errorf("err = %v; want ErrSelfTransfer", err)
		}
		if got := balance(t, store, "escrow:1"); got != before {
			t.Errorf("escrow balance = %d; want %d (no funds minted)", got, before)
		}
	})

	t.Run("insufficient balance is rejected", func(t *testing.T) {
		err := store.Transact(ctx, func(tx storage.Tx) error {
			return Transfer(ctx, tx, "alice", "escrow:1", "alice", 1_000_000)
		})
		if !errors.Is(err, halo.ErrInsufficientFunds) {
			t.Errorf("err = %v; want ErrInsufficientFunds", err)
		}
	})

	t.Run("unknown account is rejected", func(t *testing.T) {
		err := store.Transact(ctx, func(tx storage.Tx) error {
			return Transfer(ctx, tx, "nobody", "alice", "nobody", 1)
		})
		if !errors.Is(err, halo.ErrAccountNotFound) {
			t.Errorf("err = %v; want ErrAccountNotFound", err)
		}
	})

	t.Run("failed transfer rolls back sibling mutations", func(t *testing.T) {
		before := balance(t, store, "alice")
		err := store.Transact(ctx, func(tx storage.Tx) error {
			if err := tx.UpdateLedgerBalance(ctx, "alice", before+999); err != nil {
				return err
			}
			return Transfer(ctx, tx, "escrow:1", "alice", "wrong", 1)
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if got := balance(t, store, "alice"); got != before {
			t.Errorf("alice balance = %d; want %d (rolled back)", got, before)
		}
	})
}
