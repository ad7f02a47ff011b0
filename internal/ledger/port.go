// Package ledger is the value-transfer port. The game core only moves value
// through a Tx and trusts its success or failure signal.
package ledger

import "errors"

var (
	ErrUnknownAccount      = errors.New("unknown account")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAuthorityMismatch   = errors.New("authority does not own source account")
	ErrTxClosed            = errors.New("transaction already closed")
)

// Account names a holding account on the ledger.
type Account string

// Transfer is one atomic movement of Amount from From to To, signed by Authority.
type Transfer struct {
	From      Account `json:"from"`
	To        Account `json:"to"`
	Amount    uint64  `json:"amount"`
	Authority string  `json:"authority"`
}

// Port opens transactions and reports balances.
type Port interface {
	Begin() Tx
	Balance(acct Account) (uint64, error)
}

// Tx stages transfers. Either every staged transfer lands on Commit or none do.
type Tx interface {
	ID() string
	Transfer(t Transfer) error
	Transfers() []Transfer
	Commit() error
	Rollback()
}
