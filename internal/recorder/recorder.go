package recorder

import (
	"FactionVault/internal/settlement"
)

// EpochEvent holds the faction table at an epoch transition.
type EpochEvent struct {
	Kind          string // "CLOSE_EPOCH" or "OPEN_EPOCH"
	Epoch         uint64
	TotalTVL      uint64
	ScoreVanguard int64
	ScoreMage     int64
	ScoreAssassin int64
	Timestamp     int64
}

// LedgerEvent records one committed game transaction.
type LedgerEvent struct {
	Seq       uint64
	Kind      string
	Caller    string
	Amount    uint64
	Epoch     uint64
	TotalTVL  uint64
	TxID      string
	Digest    string
	Timestamp int64
}

// SettlementRecord is a stored settlement receipt.
type SettlementRecord struct {
	ID         int64  `db:"id"`
	Timestamp  int64  `db:"timestamp"`
	ReceiptID  string `db:"receipt_id"`
	Owner      string `db:"owner"`
	Epoch      uint64 `db:"epoch"`
	FactionID  uint8  `db:"faction_id"`
	Score      int64  `db:"score"`
	InputYield uint64 `db:"input_yield"`
	FinalYield uint64 `db:"final_yield"`
	Buff       string `db:"buff"`
	Purchases  string `db:"purchases_json"`
	Fallback   string `db:"fallback"`
	Remainder  uint64 `db:"remainder"`
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordSettlement(rc *settlement.Receipt, ts int64) error
	RecordEpoch(evt *EpochEvent) error
	RecordLedgerEvent(evt *LedgerEvent) error
	RecentSettlements(limit int) ([]SettlementRecord, error)
	Close() error
}
