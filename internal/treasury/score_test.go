package treasury

import (
	"math"
	"math/big"
	"testing"

	"FactionVault/internal/model"
)

func gameWith(tvl0, tvl1, tvl2 uint64) *model.GameState {
	gs := &model.GameState{
		TotalTVL: tvl0 + tvl1 + tvl2,
	}
	for i, tvl := range []uint64{tvl0, tvl1, tvl2} {
		gs.Factions[i] = model.FactionState{ID: model.FactionID(i), Name: model.FactionID(i).String(), TVL: tvl}
	}
	return gs
}

func TestRecompute_KnownSplits(t *testing.T) {
	tests := []struct {
		name string
		tvl  [3]uint64
		want [3]int64
	}{
		{"even", [3]uint64{100, 100, 100}, [3]int64{0, 0, 0}},
		{"vanguard only", [3]uint64{100, 0, 0}, [3]int64{0, 10000, -10000}},
		{"mage only", [3]uint64{0, 100, 0}, [3]int64{-10000, 0, 10000}},
		{"assassin only", [3]uint64{0, 0, 100}, [3]int64{10000, -10000, 0}},
		{"50/30/20", [3]uint64{50, 30, 20}, [3]int64{-1000, 3000, -2000}},
		{"thirds truncated", [3]uint64{1, 2, 0}, [3]int64{-6666, 3333, 3333}},
		// One truncation of the difference: per-term would give -4286 and 1429.
		{"difference truncated once", [3]uint64{1, 2, 4}, [3]int64{2857, -4285, 1428}},
	}
	for _, tt := range tests {
		gs := gameWith(tt.tvl[0], tt.tvl[1], tt.tvl[2])
		if err := Recompute(gs); err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		for i := range gs.Factions {
			if gs.Factions[i].Score != tt.want[i] {
				t.Errorf("%s: faction %d expected %d, got %d", tt.name, i, tt.want[i], gs.Factions[i].Score)
			}
		}
	}
}

func TestRecompute_ZeroSumBounded(t *testing.T) {
	splits := [][3]uint64{
		{1, 1, 1},
		{7, 11, 13},
		{1, 0, 2},
		{999_999, 1, 3},
		{math.MaxUint64 / 3, math.MaxUint64 / 3, math.MaxUint64 / 3},
		{123_456_789, 987_654_321, 555_555_555},
	}
	for _, s := range splits {
		gs := gameWith(s[0], s[1], s[2])
		if err := Recompute(gs); err != nil {
			t.Fatalf("%v: unexpected error %v", s, err)
		}
		sum := gs.Factions[0].Score + gs.Factions[1].Score + gs.Factions[2].Score
		if sum < -2 || sum > 2 {
			t.Errorf("%v: score sum %d exceeds truncation bound", s, sum)
		}

		// Raw target-minus-predator differences cancel exactly.
		raw := new(big.Int)
		for i := range gs.Factions {
			m := Triangle[i]
			raw.Add(raw, new(big.Int).SetUint64(s[m.Target]))
			raw.Sub(raw, new(big.Int).SetUint64(s[m.Predator]))
		}
		if raw.Sign() != 0 {
			t.Errorf("%v: raw shares sum to %s", s, raw)
		}
	}
}

func TestRecompute_ZeroTVLKeepsScores(t *testing.T) {
	gs := gameWith(0, 0, 0)
	gs.Factions[0].Score = 5
	if err := Recompute(gs); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if gs.Factions[0].Score != 5 {
		t.Errorf("expected prior score to be kept, got %d", gs.Factions[0].Score)
	}
}

func TestResetScores(t *testing.T) {
	gs := gameWith(10, 20, 30)
	if err := Recompute(gs); err != nil {
		t.Fatal(err)
	}
	ResetScores(gs)
	for i, f := range gs.Factions {
		if f.Score != 0 {
			t.Errorf("faction %d expected score 0, got %d", i, f.Score)
		}
	}
	if gs.Factions[2].TVL != 30 {
		t.Errorf("tvl must survive reset, got %d", gs.Factions[2].TVL)
	}
}

func TestTriangle_IsPermutation(t *testing.T) {
	var targeted, preyedOn [model.NumFactions]int
	for i, m := range Triangle {
		if m.Target == model.FactionID(i) || m.Predator == model.FactionID(i) || m.Target == m.Predator {
			t.Errorf("faction %d has a degenerate matchup %+v", i, m)
		}
		targeted[m.Target]++
		preyedOn[m.Predator]++
	}
	for i := range targeted {
		if targeted[i] != 1 || preyedOn[i] != 1 {
			t.Errorf("faction %d appears %d times as target and %d as predator", i, targeted[i], preyedOn[i])
		}
	}
}

func TestWon_TieIsLoss(t *testing.T) {
	if Won(0) || Won(-1) {
		t.Error("non-positive scores must be losses")
	}
	if !Won(1) {
		t.Error("positive score must be a win")
	}
}
