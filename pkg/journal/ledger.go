package journal

// Append adds entry to the end of the ledger. The caller assigns the tier.
func Append(state LedgerState, entry ReflectionEntry) LedgerState {
	next := state.Clone()
	next.Entries = append(next.Entries, entry)
	return next
}

// SilverCount counts secondary entries.
func SilverCount(state LedgerState) int {
	count := 0
	for _, entry := range state.Entries {
		if entry.RewardTier() == RewardTierSecondary {
			count++
		}
	}
	return count
}

// PrimaryCount counts entries that earned a daily reward.
func PrimaryCount(state LedgerState) int {
	return len(state.Entries) - SilverCount(state)
}

// EntriesOn returns the entries that count toward date, oldest first.
func EntriesOn(state LedgerState, date CalendarDate) []ReflectionEntry {
	var matched []ReflectionEntry
	for _, entry := range state.Entries {
		if entry.Date().Equal(date) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// HasPrimaryOn reports whether date already has an entry that earned its reward.
func HasPrimaryOn(state LedgerState, date CalendarDate) bool {
	for _, entry := range EntriesOn(state, date) {
		if entry.IsPrimary() {
			return true
		}
	}
	return false
}

// RecentEntries returns up to limit of the newest entries, newest first.
func RecentEntries(state LedgerState, limit int) []ReflectionEntry {
	if limit <= 0 || limit > len(state.Entries) {
		limit = len(state.Entries)
	}
	recent := make([]ReflectionEntry, 0, limit)
	for index := len(state.Entries) - 1; index >= 0 && len(recent) < limit; index-- {
		recent = append(recent, state.Entries[index])
	}
	return recent
}
