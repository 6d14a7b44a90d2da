package httpapi

import (
	"github.com/MarkoPoloResearchLab/reflections/internal/catalog"
	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"github.com/gin-gonic/gin"
)

type submitRequest struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
}

type purchaseRequest struct {
	ItemID string `json:"itemId" binding:"required"`
	Cost   *int64 `json:"cost"`
}

type equipRequest struct {
	ItemID string `json:"itemId" binding:"required"`
}

type displayPayload struct {
	Streak           int      `json:"streak"`
	GoldBalance      int      `json:"goldBalance"`
	PendingBonus     int      `json:"pendingBonus"`
	SilverCount      int      `json:"silverCount"`
	EntryCount       int      `json:"entryCount"`
	LastActivityDate string   `json:"lastActivityDate"`
	ActiveCosmetic   string   `json:"activeCosmetic"`
	Inventory        []string `json:"inventory"`
}

type tokenPayload struct {
	Identity     string `json:"identity"`
	Tint         string `json:"tint"`
	IsHistorical bool   `json:"isHistorical"`
	EntryID      string `json:"entryId,omitempty"`
	Label        string `json:"label,omitempty"`
	Text         string `json:"text,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
}

type snapshotPayload struct {
	Display displayPayload `json:"display"`
	Tokens  []tokenPayload `json:"tokens"`
}

type entryPayload struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	DisplayDate string `json:"displayDate"`
	Text        string `json:"text"`
	Prompt      string `json:"prompt,omitempty"`
	RewardTier  string `json:"rewardTier"`
}

type rewardPayload struct {
	Bonus  int `json:"bonus"`
	Earned int `json:"earned"`
}

type streakPayload struct {
	NewStreak    int  `json:"newStreak"`
	IsFirstToday bool `json:"isFirstToday"`
}

type shopItemPayload struct {
	catalog.Item
	Owned    bool `json:"owned"`
	Equipped bool `json:"equipped"`
}

func newSnapshotPayload(snapshot journal.Snapshot) snapshotPayload {
	inventory := make([]string, 0, len(snapshot.Display.Inventory))
	for _, item := range snapshot.Display.Inventory {
		inventory = append(inventory, item.String())
	}
	return snapshotPayload{
		Display: displayPayload{
			Streak:           snapshot.Display.Streak,
			GoldBalance:      snapshot.Display.GoldBalance,
			PendingBonus:     snapshot.Display.PendingBonus,
			SilverCount:      snapshot.Display.SilverCount,
			EntryCount:       snapshot.Display.EntryCount,
			LastActivityDate: snapshot.Display.LastActivityDate.String(),
			ActiveCosmetic:   snapshot.Display.ActiveCosmetic.String(),
			Inventory:        inventory,
		},
		Tokens: newTokenPayloads(snapshot.Tokens),
	}
}

func newTokenPayloads(set journal.TokenSet) []tokenPayload {
	tokens := make([]tokenPayload, 0, len(set.Records))
	for _, record := range set.Records {
		tokens = append(tokens, tokenPayload{
			Identity:     record.Identity,
			Tint:         string(record.Tint),
			IsHistorical: record.IsHistorical,
			EntryID:      record.EntryID,
			Label:        record.Label,
			Text:         record.Text,
			Prompt:       record.Prompt,
		})
	}
	return tokens
}

func newEntryPayload(entry journal.ReflectionEntry) entryPayload {
	prompt, _ := entry.Prompt()
	return entryPayload{
		ID:          entry.ID().String(),
		Date:        entry.Date().String(),
		DisplayDate: entry.DisplayDate(),
		Text:        entry.Text(),
		Prompt:      prompt,
		RewardTier:  entry.RewardTier().String(),
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
