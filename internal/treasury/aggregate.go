package treasury

import (
	"fmt"

	"FactionVault/internal/calculator"
	"FactionVault/internal/model"
)

// Credit adds amount to the user's deposit, their faction TVL and the
// global TVL. On error nothing is modified.
func Credit(gs *model.GameState, pos *model.UserPosition, amount uint64) error {
	f, err := gs.Faction(pos.FactionID)
	if err != nil {
		return err
	}
	userNext, err := calculator.AddU64(pos.DepositedAmount, amount)
	if err != nil {
		return fmt.Errorf("user deposit: %w", err)
	}
	factionNext, err := calculator.AddU64(f.TVL, amount)
	if err != nil {
		return fmt.Errorf("faction tvl: %w", err)
	}
	totalNext, err := calculator.AddU64(gs.TotalTVL, amount)
	if err != nil {
		return fmt.Errorf("total tvl: %w", err)
	}
	pos.DepositedAmount = userNext
	f.TVL = factionNext
	gs.TotalTVL = totalNext
	return nil
}

// Debit removes amount symmetrically from the three aggregates.
func Debit(gs *model.GameState, pos *model.UserPosition, amount uint64) error {
	if pos.DepositedAmount < amount {
		return fmt.Errorf("withdraw %d of %d: %w", amount, pos.DepositedAmount, model.ErrInsufficientFunds)
	}
	f, err := gs.Faction(pos.FactionID)
	if err != nil {
		return err
	}
	userNext, err := calculator.SubU64(pos.DepositedAmount, amount)
	if err != nil {
		return fmt.Errorf("user deposit: %w", err)
	}
	factionNext, err := calculator.SubU64(f.TVL, amount)
	if err != nil {
		return fmt.Errorf("faction tvl: %w", err)
	}
	totalNext, err := calculator.SubU64(gs.TotalTVL, amount)
	if err != nil {
		return fmt.Errorf("total tvl: %w", err)
	}
	pos.DepositedAmount = userNext
	f.TVL = factionNext
	gs.TotalTVL = totalNext
	return nil
}

// CheckConservation verifies total_tvl == sum(faction tvl) == sum(user deposits),
// with per-faction sums matching the members of each faction.
func CheckConservation(gs *model.GameState, positions []*model.UserPosition) error {
	var factionSum uint64
	var members [model.NumFactions]uint64
	for i, f := range gs.Factions {
		var err error
		if factionSum, err = calculator.AddU64(factionSum, f.TVL); err != nil {
			return fmt.Errorf("sum faction %d: %w", i, err)
		}
	}
	var userSum uint64
	for _, p := range positions {
		if !p.FactionID.Valid() {
			return fmt.Errorf("user %s: %w", p.Owner, model.ErrInvalidFaction)
		}
		var err error
		if userSum, err = calculator.AddU64(userSum, p.DepositedAmount); err != nil {
			return fmt.Errorf("sum users: %w", err)
		}
		if members[p.FactionID], err = calculator.AddU64(members[p.FactionID], p.DepositedAmount); err != nil {
			return fmt.Errorf("sum members of %d: %w", p.FactionID, err)
		}
	}
	if factionSum != gs.TotalTVL {
		return fmt.Errorf("faction tvl sum %d != total tvl %d", factionSum, gs.TotalTVL)
	}
	if userSum != gs.TotalTVL {
		return fmt.Errorf("user deposit sum %d != total tvl %d", userSum, gs.TotalTVL)
	}
	for i, f := range gs.Factions {
		if members[i] != f.TVL {
			return fmt.Errorf("faction %s tvl %d != member deposits %d", f.Name, f.TVL, members[i])
		}
	}
	return nil
}
