package journal

// Display holds the numbers a renderer shows next to the jar.
type Display struct {
	Streak           int
	GoldBalance      int
	PendingBonus     int
	SilverCount      int
	EntryCount       int
	LastActivityDate CalendarDate
	ActiveCosmetic   ItemID
	Inventory        []ItemID
}

// Snapshot is a read-only view of one LedgerState with everything derived from it.
type Snapshot struct {
	State   LedgerState
	Display Display
	Tokens  TokenSet
}

// Derive builds the snapshot of state with every token historical.
func Derive(state LedgerState) Snapshot {
	return Snapshot{
		State:   state,
		Display: deriveDisplay(state),
		Tokens:  Plan(state),
	}
}

func deriveSubmission(state LedgerState, entry ReflectionEntry) Snapshot {
	return Snapshot{
		State:   state,
		Display: deriveDisplay(state),
		Tokens:  PlanSubmission(state, entry),
	}
}

func deriveDisplay(state LedgerState) Display {
	return Display{
		Streak:           state.Streak,
		GoldBalance:      state.GoldBalance,
		PendingBonus:     state.PendingBonus,
		SilverCount:      SilverCount(state),
		EntryCount:       len(state.Entries),
		LastActivityDate: state.LastActivityDate,
		ActiveCosmetic:   state.ActiveCosmetic,
		Inventory:        append([]ItemID(nil), state.Inventory...),
	}
}
