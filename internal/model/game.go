package model

import "time"

// EpochDuration is the fixed length of one scoring epoch (3 days).
const EpochDuration = 259200 * time.Second

// ScoreScale is the fixed-point scale applied to faction scores.
const ScoreScale = 10000

// NumFactions is the size of the faction arena. Ids are 0..NumFactions-1.
const NumFactions = 3

// FactionID identifies one of the three factions.
type FactionID uint8

const (
	FactionVanguard FactionID = 0
	FactionMage     FactionID = 1
	FactionAssassin FactionID = 2
)

// Valid reports whether the id addresses a faction in the arena.
func (f FactionID) Valid() bool { return f < NumFactions }

func (f FactionID) String() string {
	switch f {
	case FactionVanguard:
		return "Vanguard"
	case FactionMage:
		return "Mage"
	case FactionAssassin:
		return "Assassin"
	default:
		return "Unknown"
	}
}

// GameStatus is the global lifecycle state.
type GameStatus uint8

const (
	StatusActive GameStatus = iota
	StatusSettlement
	// StatusPaused is reserved; nothing transitions into or out of it yet.
	StatusPaused
)

func (s GameStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusSettlement:
		return "Settlement"
	case StatusPaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// FactionState tracks one faction's deposits and its score for the current epoch.
type FactionState struct {
	ID    FactionID `json:"id"`
	Name  string    `json:"name"`
	TVL   uint64    `json:"tvl"`
	Score int64     `json:"score"` // scaled by ScoreScale
}

// GameState is the process-wide aggregate root.
type GameState struct {
	Admin        string                    `json:"admin"`
	EpochNumber  uint64                    `json:"epoch_number"`
	EpochStartTS int64                     `json:"epoch_start_ts"`
	EpochEndTS   int64                     `json:"epoch_end_ts"`
	TotalTVL     uint64                    `json:"total_tvl"`
	Status       GameStatus                `json:"status"`
	Factions     [NumFactions]FactionState `json:"factions"`
}

// Faction returns a pointer into the arena, validating the id on every read.
func (g *GameState) Faction(id FactionID) (*FactionState, error) {
	if !id.Valid() {
		return nil, ErrInvalidFaction
	}
	return &g.Factions[id], nil
}

// Clone returns a copy safe to mutate independently. All fields are values.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}
