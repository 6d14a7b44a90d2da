package journal

import "testing"

func TestAdvance(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name       string
		lastDate   string
		streak     int
		today      string
		wantStreak int
		wantFirst  bool
	}{
		{name: "first ever entry", lastDate: "", streak: 0, today: "2024-01-01", wantStreak: 1, wantFirst: true},
		{name: "same day keeps streak", lastDate: "2024-01-01", streak: 1, today: "2024-01-01", wantStreak: 1, wantFirst: false},
		{name: "consecutive day extends", lastDate: "2024-01-01", streak: 1, today: "2024-01-02", wantStreak: 2, wantFirst: true},
		{name: "long streak extends", lastDate: "2024-02-28", streak: 9, today: "2024-02-29", wantStreak: 10, wantFirst: true},
		{name: "month boundary extends", lastDate: "2024-01-31", streak: 3, today: "2024-02-01", wantStreak: 4, wantFirst: true},
		{name: "gap resets", lastDate: "2024-01-01", streak: 4, today: "2024-01-03", wantStreak: 1, wantFirst: true},
		{name: "backward clock resets", lastDate: "2024-01-05", streak: 4, today: "2024-01-04", wantStreak: 1, wantFirst: true},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			state := NewLedgerState()
			state.Streak = testCase.streak
			if testCase.lastDate != "" {
				state.LastActivityDate = mustCalendarDate(test, testCase.lastDate)
			}
			transition := Advance(mustCalendarDate(test, testCase.today), state)
			if transition.NewStreak != testCase.wantStreak || transition.IsFirstToday != testCase.wantFirst {
				test.Fatalf("unexpected transition %+v", transition)
			}
		})
	}
}

func TestAdvanceNeverReturnsZeroStreak(test *testing.T) {
	test.Parallel()
	today := mustCalendarDate(test, "2024-06-10")
	for offset := -3; offset <= 3; offset++ {
		state := NewLedgerState()
		state.LastActivityDate = today.AddDays(offset)
		transition := Advance(today, state)
		if transition.IsFirstToday && transition.NewStreak < 1 {
			test.Fatalf("offset %d: streak %d", offset, transition.NewStreak)
		}
	}
}
