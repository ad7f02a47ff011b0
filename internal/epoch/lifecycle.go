package epoch

import (
	"fmt"
	"log"
	"time"

	"FactionVault/internal/calculator"
	"FactionVault/internal/model"
	"FactionVault/internal/treasury"
)

// Clock is the wall-clock source, read once per transition.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Genesis creates the game state: epoch 1 starting now, three empty factions.
func Genesis(admin string, now time.Time) *model.GameState {
	start := now.Unix()
	gs := &model.GameState{
		Admin:        admin,
		EpochNumber:  1,
		EpochStartTS: start,
		EpochEndTS:   start + int64(model.EpochDuration/time.Second),
		Status:       model.StatusActive,
	}
	for i := range gs.Factions {
		id := model.FactionID(i)
		gs.Factions[i] = model.FactionState{ID: id, Name: id.String()}
	}
	log.Printf("[INFO] game initialized, epoch 1 started (admin=%s)", admin)
	return gs
}

// Close moves Active -> Settlement and scores every faction. With
// enforceEnd set, closing before epoch_end_ts fails with ErrEpochNotEnded;
// otherwise the admin may force-close at any time.
func Close(gs *model.GameState, caller string, now time.Time, enforceEnd bool) error {
	if caller != gs.Admin {
		return fmt.Errorf("close epoch: %w", model.ErrUnauthorized)
	}
	if gs.Status != model.StatusActive {
		return fmt.Errorf("close epoch from %s: %w", gs.Status, model.ErrInvalidStatus)
	}
	if enforceEnd && now.Unix() < gs.EpochEndTS {
		return fmt.Errorf("close epoch %d at %d before %d: %w", gs.EpochNumber, now.Unix(), gs.EpochEndTS, model.ErrEpochNotEnded)
	}

	if gs.TotalTVL == 0 {
		log.Println("[INFO] no TVL, skipping scoring")
	} else if err := treasury.Recompute(gs); err != nil {
		return fmt.Errorf("close epoch: %w", err)
	}
	gs.Status = model.StatusSettlement

	log.Printf("[INFO] epoch %d resolved. scores: V:%d, M:%d, A:%d",
		gs.EpochNumber, gs.Factions[0].Score, gs.Factions[1].Score, gs.Factions[2].Score)
	return nil
}

// Open starts the next epoch: number+1, a fresh window from now, status
// Active and zeroed scores. Faction and user TVL persist.
func Open(gs *model.GameState, caller string, now time.Time) error {
	if caller != gs.Admin {
		return fmt.Errorf("open epoch: %w", model.ErrUnauthorized)
	}
	next, err := calculator.AddU64(gs.EpochNumber, 1)
	if err != nil {
		return fmt.Errorf("open epoch: %w", err)
	}

	start := now.Unix()
	gs.EpochNumber = next
	gs.EpochStartTS = start
	gs.EpochEndTS = start + int64(model.EpochDuration/time.Second)
	gs.Status = model.StatusActive
	treasury.ResetScores(gs)

	log.Printf("[INFO] new epoch %d started", gs.EpochNumber)
	return nil
}
