package journal

import (
	"fmt"
	"strings"
	"time"
)

// CalendarDate is a day on the calendar with no time of day attached.
type CalendarDate struct {
	value time.Time
}

// EntryID identifies a reflection entry.
type EntryID struct {
	value string
}

// ReflectionText is the trimmed, non-empty body of a reflection.
type ReflectionText struct {
	value string
}

// ItemID identifies a cosmetic.
type ItemID struct {
	value string
}

// Cost is a non-negative shop price in gold tokens.
type Cost int

// GoldAmount is a strictly positive number of gold tokens.
type GoldAmount int

// RewardTier marks whether an entry earned the day's reward.
type RewardTier string

const (
	RewardTierPrimary   RewardTier = "primary"
	RewardTierSecondary RewardTier = "secondary"
)

// NewCalendarDate parses a YYYY-MM-DD date.
func NewCalendarDate(raw string) (CalendarDate, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := time.Parse(calendarDateLayout, trimmed)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrInvalidCalendarDate, raw)
	}
	return CalendarDate{value: parsed}, nil
}

// CalendarDateOf returns the calendar date of moment in moment's own location.
func CalendarDateOf(moment time.Time) CalendarDate {
	year, month, day := moment.Date()
	return CalendarDate{value: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// String returns the YYYY-MM-DD form, or an empty string for the zero date.
func (date CalendarDate) String() string {
	if date.IsZero() {
		return ""
	}
	return date.value.Format(calendarDateLayout)
}

// IsZero reports whether the date is absent.
func (date CalendarDate) IsZero() bool {
	return date.value.IsZero()
}

// Equal reports whether both dates name the same day.
func (date CalendarDate) Equal(other CalendarDate) bool {
	return date.value.Equal(other.value)
}

// DaysSince returns the signed number of calendar days from earlier to date.
func (date CalendarDate) DaysSince(earlier CalendarDate) int {
	return int(date.value.Sub(earlier.value) / (24 * time.Hour))
}

// AddDays returns the date shifted by days.
func (date CalendarDate) AddDays(days int) CalendarDate {
	return CalendarDate{value: date.value.AddDate(0, 0, days)}
}

// Time returns midnight UTC of the date.
func (date CalendarDate) Time() time.Time {
	return date.value
}

// NewEntryID validates and normalizes an entry id.
func NewEntryID(raw string) (EntryID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EntryID{}, fmt.Errorf("%w: empty value", ErrInvalidEntryID)
	}
	return EntryID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id EntryID) String() string {
	return id.value
}

// NewReflectionText trims raw and rejects blank text.
func NewReflectionText(raw string) (ReflectionText, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ReflectionText{}, ErrEmptyText
	}
	return ReflectionText{value: trimmed}, nil
}

// String returns the trimmed text.
func (text ReflectionText) String() string {
	return text.value
}

// NewItemID validates and normalizes a cosmetic id.
func NewItemID(raw string) (ItemID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ItemID{}, fmt.Errorf("%w: empty value", ErrInvalidItemID)
	}
	return ItemID{value: trimmed}, nil
}

// DefaultCosmeticID returns the always-owned cosmetic.
func DefaultCosmeticID() ItemID {
	return ItemID{value: DefaultCosmetic}
}

// String returns the normalized identifier.
func (id ItemID) String() string {
	return id.value
}

// IsDefault reports whether id is the always-owned cosmetic.
func (id ItemID) IsDefault() bool {
	return id.value == DefaultCosmetic
}

// NewCost validates a shop price.
func NewCost(raw int64) (Cost, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidCost)
	}
	return Cost(raw), nil
}

// Int returns the price as an int.
func (cost Cost) Int() int {
	return int(cost)
}

// NewGoldAmount validates a manual grant amount.
func NewGoldAmount(raw int64) (GoldAmount, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return GoldAmount(raw), nil
}

// Int returns the amount as an int.
func (amount GoldAmount) Int() int {
	return int(amount)
}

// ParseRewardTier validates a stored tier string.
func ParseRewardTier(raw string) (RewardTier, error) {
	switch RewardTier(strings.TrimSpace(raw)) {
	case RewardTierPrimary:
		return RewardTierPrimary, nil
	case RewardTierSecondary:
		return RewardTierSecondary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRewardTier, raw)
	}
}

// String returns the tier name.
func (tier RewardTier) String() string {
	return string(tier)
}

// ReflectionEntry is one immutable journal submission.
type ReflectionEntry struct {
	id          EntryID
	date        CalendarDate
	displayDate string
	text        ReflectionText
	prompt      string
	tier        RewardTier
}

// NewReflectionEntry validates and constructs an entry. A blank prompt means none.
func NewReflectionEntry(id EntryID, date CalendarDate, displayDate string, text ReflectionText, prompt string, tier RewardTier) (ReflectionEntry, error) {
	if id.String() == "" {
		return ReflectionEntry{}, fmt.Errorf("%w: empty value", ErrInvalidEntryID)
	}
	if date.IsZero() {
		return ReflectionEntry{}, fmt.Errorf("%w: missing date", ErrInvalidCalendarDate)
	}
	if text.String() == "" {
		return ReflectionEntry{}, ErrEmptyText
	}
	if _, err := ParseRewardTier(tier.String()); err != nil {
		return ReflectionEntry{}, err
	}
	normalizedDisplay := strings.TrimSpace(displayDate)
	if normalizedDisplay == "" {
		normalizedDisplay = date.String()
	}
	return ReflectionEntry{
		id:          id,
		date:        date,
		displayDate: normalizedDisplay,
		text:        text,
		prompt:      strings.TrimSpace(prompt),
		tier:        tier,
	}, nil
}

// ID returns the entry id.
func (entry ReflectionEntry) ID() EntryID {
	return entry.id
}

// Date returns the calendar date the entry counts toward.
func (entry ReflectionEntry) Date() CalendarDate {
	return entry.date
}

// DisplayDate returns the label frozen at submission time.
func (entry ReflectionEntry) DisplayDate() string {
	return entry.displayDate
}

// Text returns the reflection body.
func (entry ReflectionEntry) Text() string {
	return entry.text.String()
}

// Prompt returns the prompt the entry answered, if any.
func (entry ReflectionEntry) Prompt() (string, bool) {
	return entry.prompt, entry.prompt != ""
}

// RewardTier returns the entry tier.
func (entry ReflectionEntry) RewardTier() RewardTier {
	return entry.tier
}

// IsPrimary reports whether the entry earned the day's reward.
func (entry ReflectionEntry) IsPrimary() bool {
	return entry.tier == RewardTierPrimary
}

// LedgerState is the complete persisted state of one journal.
type LedgerState struct {
	Entries          []ReflectionEntry
	Streak           int
	LastActivityDate CalendarDate
	GoldBalance      int
	PendingBonus     int
	Inventory        []ItemID
	ActiveCosmetic   ItemID
}

// NewLedgerState returns the state of a journal nobody has written in yet.
func NewLedgerState() LedgerState {
	return LedgerState{ActiveCosmetic: DefaultCosmeticID()}
}

// Clone returns a copy that shares no slices with state.
func (state LedgerState) Clone() LedgerState {
	cloned := state
	cloned.Entries = append([]ReflectionEntry(nil), state.Entries...)
	cloned.Inventory = append([]ItemID(nil), state.Inventory...)
	return cloned
}

// Owns reports whether item is in the inventory or is the default cosmetic.
func (state LedgerState) Owns(item ItemID) bool {
	if item.IsDefault() {
		return true
	}
	for _, owned := range state.Inventory {
		if owned == item {
			return true
		}
	}
	return false
}

// StreakTransition is the outcome of advancing the streak for a new entry.
type StreakTransition struct {
	NewStreak    int
	IsFirstToday bool
}

// Reward is the gold granted for a day's first entry.
type Reward struct {
	Bonus  int
	Earned int
}
