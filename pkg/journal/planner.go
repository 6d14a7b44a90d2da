package journal

import "strconv"

// TokenTint selects the colour a renderer gives a token.
type TokenTint string

const (
	TokenTintPrimary   TokenTint = "primary"
	TokenTintSecondary TokenTint = "secondary"
)

// TokenRecord is one display object a renderer must realize.
// Secondary records carry the reflection they stand for; primary records are fungible.
type TokenRecord struct {
	Identity     string
	Tint         TokenTint
	IsHistorical bool
	EntryID      string
	Label        string
	Text         string
	Prompt       string
}

// TokenSet is the desired token set for one LedgerState.
type TokenSet struct {
	Records []TokenRecord
}

// Count returns the number of records with tint.
func (set TokenSet) Count(tint TokenTint) int {
	count := 0
	for _, record := range set.Records {
		if record.Tint == tint {
			count++
		}
	}
	return count
}

// Fresh returns the record that was not yet displayed, if any.
func (set TokenSet) Fresh() (TokenRecord, bool) {
	for _, record := range set.Records {
		if !record.IsHistorical {
			return record, true
		}
	}
	return TokenRecord{}, false
}

// Plan derives the desired token set from state alone. Every record is historical,
// so repeated calls on the same state return identical sets.
func Plan(state LedgerState) TokenSet {
	records := make([]TokenRecord, 0, SilverCount(state)+max(state.GoldBalance, 0))
	for _, entry := range state.Entries {
		if entry.RewardTier() != RewardTierSecondary {
			continue
		}
		prompt, _ := entry.Prompt()
		records = append(records, TokenRecord{
			Identity:     silverIdentity(entry.ID()),
			Tint:         TokenTintSecondary,
			IsHistorical: true,
			EntryID:      entry.ID().String(),
			Label:        entry.DisplayDate(),
			Text:         entry.Text(),
			Prompt:       prompt,
		})
	}
	for position := 1; position <= state.GoldBalance; position++ {
		records = append(records, TokenRecord{
			Identity:     goldIdentity(position),
			Tint:         TokenTintPrimary,
			IsHistorical: true,
		})
	}
	return TokenSet{Records: records}
}

// PlanSubmission is Plan with the record for the just-submitted entry marked fresh:
// its silver record, or the newest gold record when the entry earned gold.
func PlanSubmission(state LedgerState, entry ReflectionEntry) TokenSet {
	set := Plan(state)
	freshIdentity := silverIdentity(entry.ID())
	if entry.IsPrimary() {
		freshIdentity = goldIdentity(state.GoldBalance)
	}
	for index := range set.Records {
		if set.Records[index].Identity == freshIdentity {
			set.Records[index].IsHistorical = false
			break
		}
	}
	return set
}

func silverIdentity(id EntryID) string {
	return silverIdentityPrefix + id.String()
}

func goldIdentity(position int) string {
	return goldIdentityPrefix + strconv.Itoa(position)
}
