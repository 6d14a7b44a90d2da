package journal

// CalculateReward returns the gold earned by a first-today entry at the given streak.
func CalculateReward(streak int) Reward {
	if streak < 0 {
		streak = 0
	}
	bonus := streak / 2
	return Reward{Bonus: bonus, Earned: 1 + bonus}
}

// GrantDailyReward credits the daily reward for streak and records its bonus for display.
func GrantDailyReward(state LedgerState, streak int) (LedgerState, Reward) {
	reward := CalculateReward(streak)
	next := state.Clone()
	next.GoldBalance += reward.Earned
	next.PendingBonus = reward.Bonus
	return next, reward
}

// GrantGold credits a manual adjustment without touching the pending bonus.
func GrantGold(state LedgerState, amount GoldAmount) LedgerState {
	next := state.Clone()
	next.GoldBalance += amount.Int()
	return next
}

// Purchase debits cost and adds item to the inventory.
// Buying an item that is already owned succeeds without charging.
func Purchase(state LedgerState, cost Cost, item ItemID) (LedgerState, error) {
	if item.String() == "" {
		return state, ErrInvalidItemID
	}
	if state.Owns(item) {
		return state, nil
	}
	if state.GoldBalance < cost.Int() {
		return state, ErrInsufficientFunds
	}
	next := state.Clone()
	next.GoldBalance -= cost.Int()
	next.Inventory = append(next.Inventory, item)
	return next, nil
}

// Equip selects an owned cosmetic.
func Equip(state LedgerState, item ItemID) (LedgerState, error) {
	if !state.Owns(item) {
		return state, ErrNotOwned
	}
	next := state.Clone()
	next.ActiveCosmetic = item
	return next, nil
}
