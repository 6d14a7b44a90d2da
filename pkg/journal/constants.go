package journal

const (
	operationSubmit   = "submit"
	operationPurchase = "purchase"
	operationEquip    = "equip"
	operationGrant    = "grant"
	operationRecover  = "recover"
	operationSync     = "sync"

	operationStatusOK        = "ok"
	operationStatusError     = "error"
	operationStatusRecovered = "recovered"

	calendarDateLayout   = "2006-01-02"
	legacyEntryPrefix    = "legacy-"
	goldIdentityPrefix   = "gold-"
	silverIdentityPrefix = "silver-"
)

// Persisted key names. They match the layout the browser client has always used.
const (
	KeyEntries          = "reflections"
	KeyStreak           = "streak"
	KeyLastActivityDate = "lastDate"
	KeyGoldBalance      = "totalTokens"
	KeyPendingBonus     = "bonusTokens"
	KeyInventory        = "rj_inventory"
	KeyActiveCosmetic   = "rj_active_theme"
)

// DefaultCosmetic is owned by every journal and never stored in the inventory.
const DefaultCosmetic = "blue"

// StateKeys lists every persisted key in a stable order.
func StateKeys() []string {
	return []string{
		KeyEntries,
		KeyStreak,
		KeyLastActivityDate,
		KeyGoldBalance,
		KeyPendingBonus,
		KeyInventory,
		KeyActiveCosmetic,
	}
}
