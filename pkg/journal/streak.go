package journal

// Advance computes the streak transition for an entry submitted on today.
// Dates compare by calendar day only, so a second entry on the same day is never first-today.
func Advance(today CalendarDate, state LedgerState) StreakTransition {
	last := state.LastActivityDate
	if !last.IsZero() && last.Equal(today) {
		return StreakTransition{NewStreak: state.Streak, IsFirstToday: false}
	}
	if last.IsZero() {
		return StreakTransition{NewStreak: 1, IsFirstToday: true}
	}
	if today.DaysSince(last) == 1 {
		return StreakTransition{NewStreak: state.Streak + 1, IsFirstToday: true}
	}
	// Missed day or clock moved backward.
	return StreakTransition{NewStreak: 1, IsFirstToday: true}
}
