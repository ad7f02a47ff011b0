package recorder

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"FactionVault/internal/settlement"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the keeper writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

// u64 renders an amount as decimal text. SQLite integers are signed 64-bit,
// so uint64 columns are stored as TEXT and scanned back with ParseUint.
func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settlements (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			receipt_id     TEXT NOT NULL,
			owner          TEXT NOT NULL,
			epoch          TEXT NOT NULL,
			faction_id     INTEGER NOT NULL,
			score          INTEGER NOT NULL,
			input_yield    TEXT NOT NULL,
			final_yield    TEXT NOT NULL,
			buff           TEXT NOT NULL,
			purchases_json TEXT NOT NULL,
			fallback       TEXT NOT NULL,
			remainder      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_epoch ON settlements(epoch)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_owner ON settlements(owner)`,

		`CREATE TABLE IF NOT EXISTS epoch_events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			kind           TEXT NOT NULL,
			epoch          TEXT NOT NULL,
			total_tvl      TEXT NOT NULL,
			score_vanguard INTEGER NOT NULL,
			score_mage     INTEGER NOT NULL,
			score_assassin INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_epoch_events_epoch ON epoch_events(epoch)`,

		`CREATE TABLE IF NOT EXISTS ledger_events (
			seq       TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			kind      TEXT NOT NULL,
			caller    TEXT,
			amount    TEXT,
			epoch     TEXT NOT NULL,
			total_tvl TEXT NOT NULL,
			tx_id     TEXT,
			digest    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_ts ON ledger_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSettlement(rc *settlement.Receipt, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	purchases, err := json.Marshal(rc.Purchases)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`INSERT INTO settlements
		(timestamp, receipt_id, owner, epoch, faction_id, score,
		 input_yield, final_yield, buff, purchases_json, fallback, remainder)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts, rc.ID, rc.Owner, u64(rc.Epoch), int64(rc.FactionID), rc.Score,
		u64(rc.InputYield), u64(rc.FinalYield), string(rc.Buff), string(purchases),
		rc.Fallback.String(), u64(rc.Remainder),
	)
	return err
}

func (r *SQLiteRecorder) RecordEpoch(evt *EpochEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO epoch_events
		(timestamp, kind, epoch, total_tvl, score_vanguard, score_mage, score_assassin)
		VALUES (?,?,?,?,?,?,?)`,
		evt.Timestamp, evt.Kind, u64(evt.Epoch), u64(evt.TotalTVL),
		evt.ScoreVanguard, evt.ScoreMage, evt.ScoreAssassin,
	)
	return err
}

func (r *SQLiteRecorder) RecordLedgerEvent(evt *LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO ledger_events
		(seq, timestamp, kind, caller, amount, epoch, total_tvl, tx_id, digest)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		u64(evt.Seq), evt.Timestamp, evt.Kind, evt.Caller, u64(evt.Amount),
		u64(evt.Epoch), u64(evt.TotalTVL), evt.TxID, evt.Digest,
	)
	return err
}

// RecentSettlements returns the latest receipts, newest first.
func (r *SQLiteRecorder) RecentSettlements(limit int) ([]SettlementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []SettlementRecord
	err := r.db.Select(&rows, `SELECT id, timestamp, receipt_id, owner, epoch, faction_id, score,
		input_yield, final_yield, buff, purchases_json, fallback, remainder
		FROM settlements ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select settlements: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
