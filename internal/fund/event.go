package fund

import (
	"time"

	"FactionVault/internal/model"
	"FactionVault/internal/settlement"
)

// EventKind names a committed transaction type.
type EventKind string

const (
	EventRegister    EventKind = "REGISTER"
	EventDeposit     EventKind = "DEPOSIT"
	EventWithdraw    EventKind = "WITHDRAW"
	EventAutomation  EventKind = "AUTOMATION"
	EventInjectYield EventKind = "INJECT_YIELD"
	EventCloseEpoch  EventKind = "CLOSE_EPOCH"
	EventOpenEpoch   EventKind = "OPEN_EPOCH"
	EventSettle      EventKind = "SETTLE"
)

// Event describes one committed transaction and the state digest after it.
type Event struct {
	Seq      uint64                   `json:"seq"`
	Kind     EventKind                `json:"kind"`
	Caller   string                   `json:"caller"`
	Amount   uint64                   `json:"amount,omitempty"`
	Epoch    uint64                   `json:"epoch"`
	TotalTVL uint64                   `json:"total_tvl"`
	Scores   [model.NumFactions]int64 `json:"scores"`
	TxID     string                   `json:"tx_id,omitempty"`
	Receipt  *settlement.Receipt      `json:"receipt,omitempty"`
	Digest   string                   `json:"digest"`
	At       time.Time                `json:"at"`
}

// Listener is notified after every commit. It must not call back into the Manager.
type Listener func(Event)
