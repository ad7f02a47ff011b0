package ledger

import (
	"errors"
	"testing"

	"FactionVault/internal/model"
)

func newTestLedger(t *testing.T) *MemoryLedger {
	t.Helper()
	l := NewMemoryLedger()
	for acct, owner := range map[Account]string{"vault": "program", "alice": "alice", "shop": "shop"} {
		if err := l.Open(acct, owner); err != nil {
			t.Fatalf("open %s: %v", acct, err)
		}
	}
	if err := l.Mint("alice", 100); err != nil {
		t.Fatal(err)
	}
	return l
}

func balance(t *testing.T, l *MemoryLedger, acct Account) uint64 {
	t.Helper()
	b, err := l.Balance(acct)
	if err != nil {
		t.Fatalf("balance %s: %v", acct, err)
	}
	return b
}

func TestTx_CommitAppliesAll(t *testing.T) {
	l := newTestLedger(t)
	tx := l.Begin()
	if err := tx.Transfer(Transfer{From: "alice", To: "vault", Amount: 60, Authority: "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Transfer(Transfer{From: "vault", To: "shop", Amount: 50, Authority: "program"}); err != nil {
		t.Fatal(err)
	}
	if balance(t, l, "alice") != 100 {
		t.Error("staged transfers must not be visible before commit")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if a, v, s := balance(t, l, "alice"), balance(t, l, "vault"), balance(t, l, "shop"); a != 40 || v != 10 || s != 50 {
		t.Errorf("unexpected balances alice=%d vault=%d shop=%d", a, v, s)
	}
	if len(tx.Transfers()) != 2 || tx.ID() == "" {
		t.Errorf("unexpected tx record %s %+v", tx.ID(), tx.Transfers())
	}
}

func TestTx_StagedBalancesAreChecked(t *testing.T) {
	l := newTestLedger(t)
	tx := l.Begin()
	if err := tx.Transfer(Transfer{From: "alice", To: "vault", Amount: 80, Authority: "alice"}); err != nil {
		t.Fatal(err)
	}
	err := tx.Transfer(Transfer{From: "alice", To: "shop", Amount: 30, Authority: "alice"})
	if !errors.Is(err, model.ErrTransferFailed) || !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if len(tx.Transfers()) != 1 {
		t.Errorf("rejected transfer must not be staged")
	}
}

func TestTx_AuthorityMismatch(t *testing.T) {
	l := newTestLedger(t)
	tx := l.Begin()
	err := tx.Transfer(Transfer{From: "alice", To: "vault", Amount: 1, Authority: "mallory"})
	if !errors.Is(err, ErrAuthorityMismatch) || !errors.Is(err, model.ErrTransferFailed) {
		t.Errorf("expected authority mismatch, got %v", err)
	}
}

func TestTx_UnknownAccount(t *testing.T) {
	l := newTestLedger(t)
	tx := l.Begin()
	if err := tx.Transfer(Transfer{From: "alice", To: "nowhere", Amount: 1, Authority: "alice"}); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("expected unknown account, got %v", err)
	}
}

func TestTx_RollbackDiscards(t *testing.T) {
	l := newTestLedger(t)
	tx := l.Begin()
	_ = tx.Transfer(Transfer{From: "alice", To: "vault", Amount: 10, Authority: "alice"})
	tx.Rollback()
	if err := tx.Commit(); !errors.Is(err, ErrTxClosed) {
		t.Errorf("expected closed tx, got %v", err)
	}
	if balance(t, l, "alice") != 100 {
		t.Error("rollback must not move value")
	}
}

func TestTx_CommitRevalidates(t *testing.T) {
	l := newTestLedger(t)
	first := l.Begin()
	second := l.Begin()
	_ = first.Transfer(Transfer{From: "alice", To: "vault", Amount: 70, Authority: "alice"})
	_ = second.Transfer(Transfer{From: "alice", To: "shop", Amount: 70, Authority: "alice"})
	if err := first.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := second.Commit(); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected second commit to fail, got %v", err)
	}
	if balance(t, l, "shop") != 0 || balance(t, l, "alice") != 30 {
		t.Error("failed commit must leave balances untouched")
	}
}

func TestOpen_OwnerConflict(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Open("alice", "alice"); err != nil {
		t.Errorf("reopen by same owner should be a no-op, got %v", err)
	}
	if err := l.Open("alice", "bob"); err == nil {
		t.Error("expected error reopening with another owner")
	}
}

func TestExportRestore(t *testing.T) {
	l := newTestLedger(t)
	exported := l.Export()
	if len(exported) != 3 || exported[0].Account != "alice" || exported[0].Balance != 100 {
		t.Fatalf("unexpected export %+v", exported)
	}

	r := NewMemoryLedger()
	r.Restore(exported)
	if balance(t, r, "alice") != 100 {
		t.Error("restore lost balance")
	}
	tx := r.Begin()
	if err := tx.Transfer(Transfer{From: "alice", To: "vault", Amount: 1, Authority: "alice"}); err != nil {
		t.Errorf("restore lost ownership: %v", err)
	}
}
