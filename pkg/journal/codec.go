package journal

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const (
	legacyTypeGold   = "gold"
	legacyTypeSilver = "silver"
)

// Recovery describes one persisted value that was replaced by its schema default.
type Recovery struct {
	Key    string
	Reason string
}

type persistedEntry struct {
	ID          string  `json:"id"`
	DateISO     string  `json:"dateISO"`
	DisplayDate string  `json:"displayDate"`
	Text        string  `json:"text"`
	Prompt      *string `json:"prompt"`
	RewardTier  string  `json:"rewardTier,omitempty"`
	Type        string  `json:"type,omitempty"`
}

// storedEntry reads a persisted entry field by field, so one field of an unexpected
// JSON type costs that field and not the whole entry.
type storedEntry struct {
	ID          flexibleString `json:"id"`
	DateISO     flexibleString `json:"dateISO"`
	DisplayDate flexibleString `json:"displayDate"`
	Text        flexibleString `json:"text"`
	Prompt      flexibleString `json:"prompt"`
	RewardTier  flexibleString `json:"rewardTier"`
	Type        flexibleString `json:"type"`
}

// flexibleString accepts JSON strings and numbers; older clients stored ids as timestamps.
// Any other JSON value leaves it empty and marked malformed.
type flexibleString struct {
	value     string
	malformed bool
}

func (field *flexibleString) UnmarshalJSON(raw []byte) error {
	*field = flexibleString{}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		field.value = text
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err == nil {
		field.value = number.String()
		return nil
	}
	field.malformed = true
	return nil
}

// EncodeState serializes every field of state into its persisted key.
func EncodeState(state LedgerState) map[string]string {
	records := make([]persistedEntry, 0, len(state.Entries))
	for _, entry := range state.Entries {
		record := persistedEntry{
			ID:          entry.ID().String(),
			DateISO:     entry.Date().String(),
			DisplayDate: entry.DisplayDate(),
			Text:        entry.Text(),
			RewardTier:  entry.RewardTier().String(),
			Type:        legacyTypeFor(entry.RewardTier()),
		}
		if prompt, ok := entry.Prompt(); ok {
			promptValue := prompt
			record.Prompt = &promptValue
		}
		records = append(records, record)
	}
	encodedEntries, err := json.Marshal(records)
	if err != nil {
		encodedEntries = []byte("[]")
	}
	inventory := make([]string, 0, len(state.Inventory))
	for _, item := range state.Inventory {
		inventory = append(inventory, item.String())
	}
	encodedInventory, err := json.Marshal(inventory)
	if err != nil {
		encodedInventory = []byte("[]")
	}
	activeCosmetic := state.ActiveCosmetic.String()
	if activeCosmetic == "" {
		activeCosmetic = DefaultCosmetic
	}
	return map[string]string{
		KeyEntries:          string(encodedEntries),
		KeyStreak:           strconv.Itoa(state.Streak),
		KeyLastActivityDate: state.LastActivityDate.String(),
		KeyGoldBalance:      strconv.Itoa(state.GoldBalance),
		KeyPendingBonus:     strconv.Itoa(state.PendingBonus),
		KeyInventory:        string(encodedInventory),
		KeyActiveCosmetic:   activeCosmetic,
	}
}

// DecodeState rebuilds a well-formed LedgerState from persisted values.
// It never fails: missing values take their defaults silently and malformed values
// take their defaults and are reported as recoveries.
func DecodeState(values map[string]string) (LedgerState, []Recovery) {
	decoder := stateDecoder{values: values}
	state := NewLedgerState()
	state.Entries = decoder.entries()
	state.Streak = decoder.count(KeyStreak)
	state.LastActivityDate = decoder.date(KeyLastActivityDate)
	state.GoldBalance = decoder.count(KeyGoldBalance)
	state.PendingBonus = decoder.count(KeyPendingBonus)
	state.Inventory = decoder.inventory()
	state.ActiveCosmetic = decoder.activeCosmetic(state)
	return state, decoder.recoveries
}

type stateDecoder struct {
	values     map[string]string
	recoveries []Recovery
}

func (decoder *stateDecoder) lookup(key string) (string, bool) {
	raw, ok := decoder.values[key]
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" || trimmed == "undefined" {
		return "", false
	}
	return trimmed, true
}

func (decoder *stateDecoder) recover(key string, reason string) {
	decoder.recoveries = append(decoder.recoveries, Recovery{Key: key, Reason: reason})
}

func (decoder *stateDecoder) count(key string) int {
	raw, ok := decoder.lookup(key)
	if !ok {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		decoder.recover(key, "not an integer")
		return 0
	}
	if value < 0 {
		decoder.recover(key, "negative value")
		return 0
	}
	return value
}

func (decoder *stateDecoder) date(key string) CalendarDate {
	raw, ok := decoder.lookup(key)
	if !ok {
		return CalendarDate{}
	}
	date, err := NewCalendarDate(raw)
	if err != nil {
		decoder.recover(key, "not a calendar date")
		return CalendarDate{}
	}
	return date
}

func (decoder *stateDecoder) entries() []ReflectionEntry {
	raw, ok := decoder.lookup(KeyEntries)
	if !ok {
		return nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		decoder.recover(KeyEntries, "not an array")
		return nil
	}
	entries := make([]ReflectionEntry, 0, len(elements))
	primaryDates := make(map[string]bool)
	for index, element := range elements {
		var record storedEntry
		if err := json.Unmarshal(element, &record); err != nil {
			decoder.recover(KeyEntries, "entry "+strconv.Itoa(index)+" is not an object")
			continue
		}
		entry, ok := decoder.entry(index, record, primaryDates)
		if !ok {
			continue
		}
		if entry.IsPrimary() {
			primaryDates[entry.Date().String()] = true
		}
		entries = append(entries, entry)
	}
	return entries
}

func (decoder *stateDecoder) entry(index int, record storedEntry, primaryDates map[string]bool) (ReflectionEntry, bool) {
	position := strconv.Itoa(index)
	text, err := NewReflectionText(record.Text.value)
	if err != nil {
		decoder.recover(KeyEntries, "entry "+position+" has no text")
		return ReflectionEntry{}, false
	}
	date, err := NewCalendarDate(record.DateISO.value)
	if err != nil {
		decoder.recover(KeyEntries, "entry "+position+" has no valid dateISO")
		return ReflectionEntry{}, false
	}
	id, err := NewEntryID(record.ID.value)
	if err != nil {
		id = EntryID{value: legacyEntryPrefix + position}
		decoder.recover(KeyEntries, "entry "+position+" has no id")
	}
	tier := decoder.tier(position, record, primaryDates[date.String()])
	if record.Prompt.malformed {
		decoder.recover(KeyEntries, "entry "+position+" has a malformed prompt")
	}
	if record.DisplayDate.malformed {
		decoder.recover(KeyEntries, "entry "+position+" has a malformed displayDate")
	}
	entry, err := NewReflectionEntry(id, date, record.DisplayDate.value, text, record.Prompt.value, tier)
	if err != nil {
		decoder.recover(KeyEntries, "entry "+position+" is invalid")
		return ReflectionEntry{}, false
	}
	return entry, true
}

func (decoder *stateDecoder) tier(position string, record storedEntry, datePrimaryTaken bool) RewardTier {
	tier, err := ParseRewardTier(record.RewardTier.value)
	if err != nil {
		switch strings.TrimSpace(record.Type.value) {
		case legacyTypeGold:
			tier = RewardTierPrimary
		case legacyTypeSilver:
			tier = RewardTierSecondary
		default:
			decoder.recover(KeyEntries, "entry "+position+" has no reward tier")
			tier = RewardTierPrimary
		}
	}
	if tier == RewardTierPrimary && datePrimaryTaken {
		decoder.recover(KeyEntries, "entry "+position+" is a second primary entry for its date")
		return RewardTierSecondary
	}
	return tier
}

func (decoder *stateDecoder) inventory() []ItemID {
	raw, ok := decoder.lookup(KeyInventory)
	if !ok {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		decoder.recover(KeyInventory, "not an array of strings")
		return nil
	}
	seen := make(map[ItemID]bool, len(names))
	inventory := make([]ItemID, 0, len(names))
	for _, name := range names {
		item, err := NewItemID(name)
		if err != nil || item.IsDefault() || seen[item] {
			decoder.recover(KeyInventory, "dropped blank, default or duplicate item")
			continue
		}
		seen[item] = true
		inventory = append(inventory, item)
	}
	return inventory
}

func (decoder *stateDecoder) activeCosmetic(state LedgerState) ItemID {
	raw, ok := decoder.lookup(KeyActiveCosmetic)
	if !ok {
		return DefaultCosmeticID()
	}
	item, err := NewItemID(raw)
	if err != nil || !state.Owns(item) {
		decoder.recover(KeyActiveCosmetic, "cosmetic not owned")
		return DefaultCosmeticID()
	}
	return item
}

func legacyTypeFor(tier RewardTier) string {
	if tier == RewardTierPrimary {
		return legacyTypeGold
	}
	return legacyTypeSilver
}
