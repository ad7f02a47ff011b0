package treasury

import (
	"fmt"

	"FactionVault/internal/calculator"
	"FactionVault/internal/model"
)

// Triangle is the fixed rock-paper-scissors matchup. Each faction scores
// the share of its target minus the share of its predator.
var Triangle = [model.NumFactions]struct {
	Target   model.FactionID
	Predator model.FactionID
}{
	model.FactionVanguard: {Target: model.FactionAssassin, Predator: model.FactionMage},
	model.FactionMage:     {Target: model.FactionVanguard, Predator: model.FactionAssassin},
	model.FactionAssassin: {Target: model.FactionMage, Predator: model.FactionVanguard},
}

// Score computes (share(target) - share(predator)) * ScoreScale for one
// faction, truncated toward zero. total must be positive.
func Score(factions *[model.NumFactions]model.FactionState, id model.FactionID, total uint64) (int64, error) {
	if !id.Valid() {
		return 0, model.ErrInvalidFaction
	}
	if total == 0 {
		return 0, nil
	}
	m := Triangle[id]
	target := factions[m.Target].TVL
	predator := factions[m.Predator].TVL

	neg := predator > target
	diff := target - predator
	if neg {
		diff = predator - target
	}
	mag, err := calculator.MulDivU64(diff, model.ScoreScale, total)
	if err != nil {
		return 0, fmt.Errorf("score faction %d: %w", id, err)
	}
	if neg {
		return -int64(mag), nil
	}
	return int64(mag), nil
}

// Recompute refreshes every faction score from current TVL. With zero total
// TVL the previous scores are left untouched.
func Recompute(gs *model.GameState) error {
	if gs.TotalTVL == 0 {
		return nil
	}
	var scores [model.NumFactions]int64
	for i := range gs.Factions {
		s, err := Score(&gs.Factions, model.FactionID(i), gs.TotalTVL)
		if err != nil {
			return err
		}
		scores[i] = s
	}
	for i := range gs.Factions {
		gs.Factions[i].Score = scores[i]
	}
	return nil
}

// ResetScores zeroes every faction score. TVL is untouched.
func ResetScores(gs *model.GameState) {
	for i := range gs.Factions {
		gs.Factions[i].Score = 0
	}
}

// Won reports whether a score counts as a win. Ties are losses.
func Won(score int64) bool { return score > 0 }
