package recorder

import "FactionVault/internal/settlement"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSettlement(_ *settlement.Receipt, _ int64) error { return nil }
func (n *NoopRecorder) RecordEpoch(_ *EpochEvent) error                      { return nil }
func (n *NoopRecorder) RecordLedgerEvent(_ *LedgerEvent) error               { return nil }
func (n *NoopRecorder) RecentSettlements(_ int) ([]SettlementRecord, error)  { return nil, nil }
func (n *NoopRecorder) Close() error                                         { return nil }
