package journal

import (
	"errors"
	"testing"
)

const (
	itemRedValue   = "red"
	itemGreenValue = "green"
)

func TestCalculateReward(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		streak     int
		wantBonus  int
		wantEarned int
	}{
		{streak: 1, wantBonus: 0, wantEarned: 1},
		{streak: 2, wantBonus: 1, wantEarned: 2},
		{streak: 3, wantBonus: 1, wantEarned: 2},
		{streak: 5, wantBonus: 2, wantEarned: 3},
		{streak: 10, wantBonus: 5, wantEarned: 6},
	}
	for _, testCase := range testCases {
		reward := CalculateReward(testCase.streak)
		if reward.Bonus != testCase.wantBonus || reward.Earned != testCase.wantEarned {
			test.Fatalf("streak %d: unexpected reward %+v", testCase.streak, reward)
		}
	}
}

func TestGrantDailyRewardCreditsBalanceAndRecordsBonus(test *testing.T) {
	test.Parallel()
	state := NewLedgerState()
	state.GoldBalance = 4
	next, reward := GrantDailyReward(state, 5)
	if reward.Earned != 3 || next.GoldBalance != 7 || next.PendingBonus != 2 {
		test.Fatalf("unexpected grant: reward=%+v state=%+v", reward, next)
	}
	if state.GoldBalance != 4 {
		test.Fatalf("input state mutated")
	}
}

func TestGrantGoldKeepsPendingBonus(test *testing.T) {
	test.Parallel()
	state := NewLedgerState()
	state.PendingBonus = 3
	amount, err := NewGoldAmount(20)
	if err != nil {
		test.Fatalf("amount: %v", err)
	}
	next := GrantGold(state, amount)
	if next.GoldBalance != 20 || next.PendingBonus != 3 {
		test.Fatalf("unexpected state %+v", next)
	}
}

func TestPurchase(test *testing.T) {
	test.Parallel()
	red := mustItemID(test, itemRedValue)

	test.Run("debits and adds to inventory", func(test *testing.T) {
		test.Parallel()
		state := NewLedgerState()
		state.GoldBalance = 5
		next, err := Purchase(state, mustCost(test, 3), red)
		if err != nil {
			test.Fatalf("purchase: %v", err)
		}
		if next.GoldBalance != 2 || !next.Owns(red) {
			test.Fatalf("unexpected state %+v", next)
		}
	})

	test.Run("insufficient funds leaves state unchanged", func(test *testing.T) {
		test.Parallel()
		state := NewLedgerState()
		state.GoldBalance = 2
		next, err := Purchase(state, mustCost(test, 3), red)
		if !errors.Is(err, ErrInsufficientFunds) {
			test.Fatalf(errorMismatchMessage, ErrInsufficientFunds, err)
		}
		if next.GoldBalance != 2 || next.Owns(red) {
			test.Fatalf("state changed on rejection: %+v", next)
		}
	})

	test.Run("exact balance succeeds", func(test *testing.T) {
		test.Parallel()
		state := NewLedgerState()
		state.GoldBalance = 3
		next, err := Purchase(state, mustCost(test, 3), red)
		if err != nil || next.GoldBalance != 0 {
			test.Fatalf("unexpected result state=%+v err=%v", next, err)
		}
	})

	test.Run("already owned does not charge", func(test *testing.T) {
		test.Parallel()
		state := NewLedgerState()
		state.GoldBalance = 1
		state.Inventory = []ItemID{red}
		next, err := Purchase(state, mustCost(test, 3), red)
		if err != nil || next.GoldBalance != 1 || len(next.Inventory) != 1 {
			test.Fatalf("unexpected result state=%+v err=%v", next, err)
		}
	})

	test.Run("default cosmetic is free", func(test *testing.T) {
		test.Parallel()
		state := NewLedgerState()
		next, err := Purchase(state, mustCost(test, 10), DefaultCosmeticID())
		if err != nil || next.GoldBalance != 0 || len(next.Inventory) != 0 {
			test.Fatalf("unexpected result state=%+v err=%v", next, err)
		}
	})
}

func TestEquip(test *testing.T) {
	test.Parallel()
	red := mustItemID(test, itemRedValue)
	green := mustItemID(test, itemGreenValue)
	state := NewLedgerState()
	state.Inventory = []ItemID{red}

	next, err := Equip(state, red)
	if err != nil || next.ActiveCosmetic != red {
		test.Fatalf("equip owned: state=%+v err=%v", next, err)
	}
	rejected, err := Equip(next, green)
	if !errors.Is(err, ErrNotOwned) {
		test.Fatalf(errorMismatchMessage, ErrNotOwned, err)
	}
	if rejected.ActiveCosmetic != red {
		test.Fatalf("active cosmetic changed on rejection")
	}
	restored, err := Equip(next, DefaultCosmeticID())
	if err != nil || !restored.ActiveCosmetic.IsDefault() {
		test.Fatalf("equip default: state=%+v err=%v", restored, err)
	}
}

func TestNewCostAndGoldAmountValidation(test *testing.T) {
	test.Parallel()
	if _, err := NewCost(-1); !errors.Is(err, ErrInvalidCost) {
		test.Fatalf(errorMismatchMessage, ErrInvalidCost, err)
	}
	if _, err := NewCost(0); err != nil {
		test.Fatalf("zero cost rejected: %v", err)
	}
	if _, err := NewGoldAmount(0); !errors.Is(err, ErrInvalidAmount) {
		test.Fatalf(errorMismatchMessage, ErrInvalidAmount, err)
	}
}
