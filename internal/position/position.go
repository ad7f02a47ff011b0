package position

import (
	"FactionVault/internal/model"
)

// DefaultAutomation compounds everything: both slots empty.
func DefaultAutomation() model.AutomationSettings {
	return model.AutomationSettings{
		PrioritySlot1:  model.AutomationRule{},
		PrioritySlot2:  model.AutomationRule{},
		FallbackAction: model.FallbackAutoCompound,
	}
}

// New creates a fresh position with zero balance, empty inventory and the
// default automation. The faction id must be in range.
func New(owner string, faction model.FactionID, epoch uint64) (*model.UserPosition, error) {
	if !faction.Valid() {
		return nil, model.ErrInvalidFaction
	}
	return &model.UserPosition{
		Owner:              owner,
		FactionID:          faction,
		DepositedAmount:    0,
		LastDepositEpoch:   epoch,
		AutomationSettings: DefaultAutomation(),
		Inventory:          model.UserInventory{},
	}, nil
}

// UpdateAutomation overwrites the settings unconditionally. Item ids and
// thresholds are not validated here; settlement resolves unknown ids to no-ops.
func UpdateAutomation(pos *model.UserPosition, slot1, slot2 model.AutomationRule, fallback model.FallbackAction) {
	pos.AutomationSettings = model.AutomationSettings{
		PrioritySlot1:  slot1,
		PrioritySlot2:  slot2,
		FallbackAction: fallback,
	}
}
