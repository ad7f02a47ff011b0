// Package settlement runs the per-user yield pipeline: buffs, the two
// priority slots, then the fallback disposition.
package settlement

import (
	"fmt"
	"log"

	"FactionVault/internal/calculator"
	"FactionVault/internal/ledger"
	"FactionVault/internal/model"
	"FactionVault/internal/treasury"

	"github.com/google/uuid"
)

// Accounts names the ledger accounts a settlement may touch.
type Accounts struct {
	Vault          ledger.Account
	VaultAuthority string
	Shop           ledger.Account
	Wallet         ledger.Account
}

// Execute settles yieldAmount for pos. Transfers are staged on tx; the caller
// commits or rolls it back. gs and pos are only written when every step
// succeeds, so a failed call leaves them exactly as they were.
func Execute(gs *model.GameState, pos *model.UserPosition, yieldAmount uint64, tx ledger.Tx, acc Accounts) (*Receipt, error) {
	work := gs.Clone()
	user := pos.Clone()

	f, err := work.Faction(user.FactionID)
	if err != nil {
		return nil, fmt.Errorf("settle %s: %w", user.Owner, err)
	}
	rc := &Receipt{
		ID:         uuid.NewString(),
		Owner:      user.Owner,
		Epoch:      work.EpochNumber,
		FactionID:  user.FactionID,
		Score:      f.Score,
		InputYield: yieldAmount,
		Buff:       BuffNone,
		Fallback:   user.AutomationSettings.FallbackAction,
	}

	final, err := applyBuffs(user, f.Score, yieldAmount, rc)
	if err != nil {
		return nil, fmt.Errorf("settle %s: %w", user.Owner, err)
	}
	rc.FinalYield = final
	if rc.Buff == BuffTotalLoss || final == 0 {
		*pos = *user
		return rc, nil
	}

	remaining := final
	for i, rule := range user.AutomationSettings.Slots() {
		p, err := runSlot(rule, &remaining, &user.Inventory, tx, acc)
		if err != nil {
			return nil, fmt.Errorf("settle %s slot %d: %w", user.Owner, i+1, err)
		}
		if p != nil {
			p.Slot = i + 1
			rc.Purchases = append(rc.Purchases, *p)
			log.Printf("[INFO] automated buy for %s: item #%d (%s)", user.Owner, p.ItemID, p.ItemID)
		}
	}

	rc.Remainder = remaining
	if remaining > 0 {
		if err := applyFallback(work, user, remaining, tx, acc); err != nil {
			return nil, fmt.Errorf("settle %s fallback: %w", user.Owner, err)
		}
	}
	rc.Transfers = tx.Transfers()

	*gs = *work
	*pos = *user
	return rc, nil
}

// applyBuffs resolves the shield or sword buff and returns the yield that
// enters the automation pipeline.
func applyBuffs(user *model.UserPosition, score int64, yieldAmount uint64, rc *Receipt) (uint64, error) {
	if !treasury.Won(score) {
		if user.Inventory.ShieldCount == 0 {
			rc.Buff = BuffTotalLoss
			log.Printf("[INFO] %s: faction lost, no shield, no yield", user.Owner)
			return 0, nil
		}
		left, err := calculator.SubU64(user.Inventory.ShieldCount, 1)
		if err != nil {
			return 0, err
		}
		user.Inventory.ShieldCount = left
		rc.Buff = BuffShield
		log.Printf("[INFO] %s: shield activated, burned 1 shield", user.Owner)
		return model.ShieldPayout, nil
	}

	if user.Inventory.SwordCount == 0 {
		return yieldAmount, nil
	}
	boosted, err := calculator.AddU64(yieldAmount, yieldAmount/5)
	if err != nil {
		return 0, err
	}
	rc.Buff = BuffSword
	log.Printf("[INFO] %s: sword applied, +20%% yield", user.Owner)
	return boosted, nil
}

// runSlot performs at most one purchase. Empty, unknown, below-threshold and
// unaffordable rules are skipped without touching the budget.
func runSlot(rule model.AutomationRule, budget *uint64, inv *model.UserInventory, tx ledger.Tx, acc Accounts) (*Purchase, error) {
	var counter *uint64
	switch rule.ItemID {
	case model.ItemSword:
		counter = &inv.SwordCount
	case model.ItemShield:
		counter = &inv.ShieldCount
	case model.ItemSpyglass:
		counter = &inv.SpyglassCount
	default:
		return nil, nil
	}
	if *budget < rule.Threshold {
		return nil, nil
	}
	price := rule.ItemID.Price()
	if price == 0 || *budget < price {
		return nil, nil
	}

	left, err := calculator.SubU64(*budget, price)
	if err != nil {
		return nil, err
	}
	count, err := calculator.AddU64(*counter, 1)
	if err != nil {
		return nil, err
	}
	if err := tx.Transfer(ledger.Transfer{From: acc.Vault, To: acc.Shop, Amount: price, Authority: acc.VaultAuthority}); err != nil {
		return nil, err
	}
	*budget = left
	*counter = count
	return &Purchase{ItemID: rule.ItemID, Price: price}, nil
}

func applyFallback(gs *model.GameState, user *model.UserPosition, remaining uint64, tx ledger.Tx, acc Accounts) error {
	switch user.AutomationSettings.FallbackAction {
	case model.FallbackSendToWallet:
		if err := tx.Transfer(ledger.Transfer{From: acc.Vault, To: acc.Wallet, Amount: remaining, Authority: acc.VaultAuthority}); err != nil {
			return err
		}
		log.Printf("[INFO] %s: sent remaining %d to wallet", user.Owner, remaining)
	case model.FallbackAutoCompound:
		if err := treasury.Credit(gs, user, remaining); err != nil {
			return err
		}
		log.Printf("[INFO] %s: auto-compounded %d", user.Owner, remaining)
	default:
		log.Printf("[WARN] %s: unknown fallback %d, %d left in pool", user.Owner, user.AutomationSettings.FallbackAction, remaining)
	}
	return nil
}
