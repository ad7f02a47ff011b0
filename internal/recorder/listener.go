package recorder

import (
	"log"

	"FactionVault/internal/fund"
)

// Listener returns a fund listener that records every committed event.
// Failures are logged; the game transaction has already committed.
func Listener(rec Recorder) fund.Listener {
	return func(e fund.Event) {
		ts := e.At.Unix()
		if err := rec.RecordLedgerEvent(&LedgerEvent{
			Seq:       e.Seq,
			Kind:      string(e.Kind),
			Caller:    e.Caller,
			Amount:    e.Amount,
			Epoch:     e.Epoch,
			TotalTVL:  e.TotalTVL,
			TxID:      e.TxID,
			Digest:    e.Digest,
			Timestamp: ts,
		}); err != nil {
			log.Printf("[ERROR] record ledger event %d: %v", e.Seq, err)
		}

		switch e.Kind {
		case fund.EventCloseEpoch, fund.EventOpenEpoch:
			if err := rec.RecordEpoch(&EpochEvent{
				Kind:          string(e.Kind),
				Epoch:         e.Epoch,
				TotalTVL:      e.TotalTVL,
				ScoreVanguard: e.Scores[0],
				ScoreMage:     e.Scores[1],
				ScoreAssassin: e.Scores[2],
				Timestamp:     ts,
			}); err != nil {
				log.Printf("[ERROR] record epoch event: %v", err)
			}
		case fund.EventSettle:
			if e.Receipt == nil {
				return
			}
			if err := rec.RecordSettlement(e.Receipt, ts); err != nil {
				log.Printf("[ERROR] record settlement %s: %v", e.Receipt.ID, err)
			}
		}
	}
}
