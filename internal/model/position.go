package model

// ItemID identifies a purchasable item. Zero means "no item".
type ItemID uint8

const (
	ItemNone     ItemID = 0
	ItemSword    ItemID = 1
	ItemShield   ItemID = 2
	ItemSpyglass ItemID = 3
)

// Fixed item prices in minor units (6 decimals).
const (
	PriceSword    uint64 = 10_000_000
	PriceShield   uint64 = 2_000_000
	PriceSpyglass uint64 = 5_000_000
)

// ShieldPayout replaces the yield of a losing user who burns a shield.
const ShieldPayout uint64 = 2_000_000

// Price returns the fixed price of the item. Unknown ids price at 0.
func (i ItemID) Price() uint64 {
	switch i {
	case ItemSword:
		return PriceSword
	case ItemShield:
		return PriceShield
	case ItemSpyglass:
		return PriceSpyglass
	default:
		return 0
	}
}

func (i ItemID) String() string {
	switch i {
	case ItemNone:
		return "None"
	case ItemSword:
		return "Sword"
	case ItemShield:
		return "Shield"
	case ItemSpyglass:
		return "Spyglass"
	default:
		return "Unknown"
	}
}

// FallbackAction is the disposition of yield left after both priority slots.
type FallbackAction uint8

const (
	FallbackAutoCompound FallbackAction = iota
	FallbackSendToWallet
)

func (f FallbackAction) String() string {
	switch f {
	case FallbackAutoCompound:
		return "AutoCompound"
	case FallbackSendToWallet:
		return "SendToWallet"
	default:
		return "Unknown"
	}
}

// AutomationRule buys ItemID when the remaining yield reaches Threshold.
type AutomationRule struct {
	ItemID    ItemID `json:"item_id"`
	Threshold uint64 `json:"threshold"`
}

// AutomationSettings holds the two ordered priority slots and the fallback.
type AutomationSettings struct {
	PrioritySlot1  AutomationRule `json:"priority_slot_1"`
	PrioritySlot2  AutomationRule `json:"priority_slot_2"`
	FallbackAction FallbackAction `json:"fallback_action"`
}

// Slots returns the priority slots in evaluation order.
func (a AutomationSettings) Slots() [2]AutomationRule {
	return [2]AutomationRule{a.PrioritySlot1, a.PrioritySlot2}
}

// UserInventory counts owned items.
type UserInventory struct {
	SwordCount    uint64 `json:"sword_count"`    // yield multiplier, never consumed
	ShieldCount   uint64 `json:"shield_count"`   // insurance, consumed on use
	SpyglassCount uint64 `json:"spyglass_count"` // info reveal
}

// UserPosition is one participant's record.
type UserPosition struct {
	Owner              string             `json:"owner"`
	FactionID          FactionID          `json:"faction_id"`
	DepositedAmount    uint64             `json:"deposited_amount"`
	LastDepositEpoch   uint64             `json:"last_deposit_epoch"`
	LastSettledEpoch   uint64             `json:"last_settled_epoch"`
	AutomationSettings AutomationSettings `json:"automation_settings"`
	Inventory          UserInventory      `json:"inventory"`
}

// Clone returns an independent copy.
func (p *UserPosition) Clone() *UserPosition {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
