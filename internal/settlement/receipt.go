package settlement

import (
	"FactionVault/internal/ledger"
	"FactionVault/internal/model"
)

// Buff records which buff branch settlement took.
type Buff string

const (
	BuffNone      Buff = "NONE"
	BuffSword     Buff = "SWORD"
	BuffShield    Buff = "SHIELD"
	BuffTotalLoss Buff = "TOTAL_LOSS"
)

// Purchase is one automated buy from a priority slot.
type Purchase struct {
	Slot   int          `json:"slot"`
	ItemID model.ItemID `json:"item_id"`
	Price  uint64       `json:"price"`
}

// Receipt describes the outcome of one user's settlement.
type Receipt struct {
	ID         string               `json:"id"`
	Owner      string               `json:"owner"`
	Epoch      uint64               `json:"epoch"`
	FactionID  model.FactionID      `json:"faction_id"`
	Score      int64                `json:"score"`
	InputYield uint64               `json:"input_yield"`
	FinalYield uint64               `json:"final_yield"`
	Buff       Buff                 `json:"buff"`
	Purchases  []Purchase           `json:"purchases,omitempty"`
	Fallback   model.FallbackAction `json:"fallback"`
	Remainder  uint64               `json:"remainder"`
	Transfers  []ledger.Transfer    `json:"transfers,omitempty"`
}

// Changed reports whether the settlement touched any state or moved value.
func (r *Receipt) Changed() bool {
	return r.Buff == BuffShield || r.FinalYield > 0
}
