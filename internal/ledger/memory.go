package ledger

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"FactionVault/internal/calculator"
	"FactionVault/internal/model"

	"github.com/google/uuid"
)

type holding struct {
	owner   string
	balance uint64
}

// MemoryLedger is an in-process token ledger with named holding accounts.
type MemoryLedger struct {
	mu       sync.RWMutex
	accounts map[Account]*holding
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[Account]*holding)}
}

// Open creates an account owned by owner. Opening an existing account is a no-op
// when the owner matches.
func (l *MemoryLedger) Open(acct Account, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.accounts[acct]; ok {
		if h.owner != owner {
			return fmt.Errorf("open %s: already owned by %s", acct, h.owner)
		}
		return nil
	}
	l.accounts[acct] = &holding{owner: owner}
	return nil
}

// Mint credits amount to an account out of thin air (dev faucet).
func (l *MemoryLedger) Mint(acct Account, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.accounts[acct]
	if !ok {
		return fmt.Errorf("mint %s: %w", acct, ErrUnknownAccount)
	}
	next, err := calculator.AddU64(h.balance, amount)
	if err != nil {
		return fmt.Errorf("mint %s: %w", acct, err)
	}
	h.balance = next
	log.Printf("[INFO] minted %d to %s", amount, acct)
	return nil
}

func (l *MemoryLedger) Balance(acct Account) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.accounts[acct]
	if !ok {
		return 0, fmt.Errorf("%s: %w", acct, ErrUnknownAccount)
	}
	return h.balance, nil
}

// Balances returns a copy of every account balance.
func (l *MemoryLedger) Balances() map[Account]uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[Account]uint64, len(l.accounts))
	for a, h := range l.accounts {
		out[a] = h.balance
	}
	return out
}

// Accounts lists account names in sorted order.
func (l *MemoryLedger) Accounts() []Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Account, 0, len(l.accounts))
	for a := range l.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l *MemoryLedger) Begin() Tx {
	return &memTx{ledger: l, id: uuid.NewString()}
}

// apply validates and applies transfers against balances in order.
// balances is modified in place.
func apply(accounts map[Account]*holding, balances map[Account]uint64, transfers []Transfer) error {
	for _, t := range transfers {
		from, ok := accounts[t.From]
		if !ok {
			return fmt.Errorf("%w: from %s: %w", model.ErrTransferFailed, t.From, ErrUnknownAccount)
		}
		if _, ok := accounts[t.To]; !ok {
			return fmt.Errorf("%w: to %s: %w", model.ErrTransferFailed, t.To, ErrUnknownAccount)
		}
		if from.owner != t.Authority {
			return fmt.Errorf("%w: %s signed by %q: %w", model.ErrTransferFailed, t.From, t.Authority, ErrAuthorityMismatch)
		}
		fromBal, ok := balances[t.From]
		if !ok {
			fromBal = from.balance
		}
		if fromBal < t.Amount {
			return fmt.Errorf("%w: %s has %d, needs %d: %w", model.ErrTransferFailed, t.From, fromBal, t.Amount, ErrInsufficientBalance)
		}
		balances[t.From] = fromBal - t.Amount

		toBal, ok := balances[t.To]
		if !ok {
			toBal = accounts[t.To].balance
		}
		next, err := calculator.AddU64(toBal, t.Amount)
		if err != nil {
			return fmt.Errorf("%w: credit %s: %w", model.ErrTransferFailed, t.To, err)
		}
		balances[t.To] = next
	}
	return nil
}

type memTx struct {
	ledger    *MemoryLedger
	id        string
	transfers []Transfer
	closed    bool
}

func (t *memTx) ID() string { return t.id }

// Transfer stages a movement after checking it against live balances plus
// everything already staged in this transaction.
func (t *memTx) Transfer(tr Transfer) error {
	if t.closed {
		return ErrTxClosed
	}
	staged := append(append([]Transfer(nil), t.transfers...), tr)

	t.ledger.mu.RLock()
	err := apply(t.ledger.accounts, make(map[Account]uint64), staged)
	t.ledger.mu.RUnlock()
	if err != nil {
		return err
	}
	t.transfers = staged
	return nil
}

func (t *memTx) Transfers() []Transfer {
	return append([]Transfer(nil), t.transfers...)
}

// Commit re-validates every staged transfer under the write lock and applies
// them together.
func (t *memTx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	if len(t.transfers) == 0 {
		return nil
	}

	l := t.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	balances := make(map[Account]uint64)
	if err := apply(l.accounts, balances, t.transfers); err != nil {
		return fmt.Errorf("commit %s: %w", t.id, err)
	}
	for acct, bal := range balances {
		l.accounts[acct].balance = bal
	}
	return nil
}

func (t *memTx) Rollback() {
	t.closed = true
	t.transfers = nil
}

// AccountState is the persisted form of one holding account.
type AccountState struct {
	Account Account `json:"account"`
	Owner   string  `json:"owner"`
	Balance uint64  `json:"balance"`
}

// Export returns every account sorted by name.
func (l *MemoryLedger) Export() []AccountState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]AccountState, 0, len(l.accounts))
	for a, h := range l.accounts {
		out = append(out, AccountState{Account: a, Owner: h.owner, Balance: h.balance})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// Restore replaces all accounts with the exported set.
func (l *MemoryLedger) Restore(accts []AccountState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[Account]*holding, len(accts))
	for _, a := range accts {
		l.accounts[a.Account] = &holding{owner: a.Owner, balance: a.Balance}
	}
}
