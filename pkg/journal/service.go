package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PurchaseStatus tells a successful purchase apart from a repeat of one.
type PurchaseStatus string

const (
	PurchaseStatusPurchased    PurchaseStatus = "purchased"
	PurchaseStatusAlreadyOwned PurchaseStatus = "already_owned"
)

// SubmitRequest is a new reflection as typed by the user.
type SubmitRequest struct {
	Text   string
	Prompt string
}

// SubmitResult describes everything a submission changed.
type SubmitResult struct {
	Entry      ReflectionEntry
	Transition StreakTransition
	Reward     Reward
	Snapshot   Snapshot
}

// PurchaseRequest asks to buy a cosmetic at a price.
type PurchaseRequest struct {
	ItemID string
	Cost   int64
}

// PurchaseResult is the outcome of an accepted purchase.
type PurchaseResult struct {
	Status   PurchaseStatus
	Snapshot Snapshot
}

// Service runs journal operations against a StateStore. It keeps no ledger state
// of its own: every operation loads, applies a pure transition and saves once.
type Service struct {
	states    *StateStore
	nowFn     func() time.Time
	location  *time.Location
	newID     func() string
	formatter DateFormatter
	logger    OperationLogger
}

// NewService wires a Service.
func NewService(backend KeyValueStore, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: key/value store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	formatter, err := NewDateFormatter(DefaultLocale)
	if err != nil {
		return nil, err
	}
	service := &Service{
		nowFn:     now,
		location:  time.Local,
		newID:     uuid.NewString,
		formatter: formatter,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	if service.location == nil {
		return nil, fmt.Errorf("%w: location is nil", ErrInvalidServiceConfig)
	}
	if service.newID == nil {
		return nil, fmt.Errorf("%w: id generator is nil", ErrInvalidServiceConfig)
	}
	states, err := NewStateStore(backend, service.logger)
	if err != nil {
		return nil, err
	}
	service.states = states
	return service, nil
}

// WithLocation sets the time zone that decides which calendar day an entry counts toward.
func WithLocation(location *time.Location) ServiceOption {
	return func(service *Service) {
		service.location = location
	}
}

// WithIDGenerator replaces the entry id generator.
func WithIDGenerator(generator func() string) ServiceOption {
	return func(service *Service) {
		service.newID = generator
	}
}

// WithDateFormatter replaces the display-date formatter.
func WithDateFormatter(formatter DateFormatter) ServiceOption {
	return func(service *Service) {
		service.formatter = formatter
	}
}

// States exposes the StateStore so listeners can share its logger and backend.
func (service *Service) States() *StateStore {
	return service.states
}

// Snapshot loads the current state and derives its display values and token set.
func (service *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	state, err := service.states.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Derive(state), nil
}

// Submit records a reflection: it advances the streak, pays the daily reward on the
// day's first entry, appends the entry and commits everything in one save.
func (service *Service) Submit(ctx context.Context, request SubmitRequest) (SubmitResult, error) {
	var result SubmitResult
	text, operationError := NewReflectionText(request.Text)
	if operationError == nil {
		_, operationError = service.states.Update(ctx, func(state LedgerState) (LedgerState, error) {
			now := service.nowFn().In(service.location)
			today := CalendarDateOf(now)
			transition := Advance(today, state)
			next := state.Clone()
			if transition.IsFirstToday && HasPrimaryOn(state, today) {
				// Today's reward is already in the entries.
				transition = StreakTransition{NewStreak: max(state.Streak, 1), IsFirstToday: false}
			}
			next.Streak = transition.NewStreak
			if transition.IsFirstToday || next.LastActivityDate.IsZero() {
				next.LastActivityDate = today
			}
			tier := RewardTierSecondary
			var reward Reward
			if transition.IsFirstToday {
				next, reward = GrantDailyReward(next, transition.NewStreak)
				tier = RewardTierPrimary
			}
			entryID, err := NewEntryID(service.newID())
			if err != nil {
				return state, err
			}
			entry, err := NewReflectionEntry(entryID, today, service.formatter.Format(now), text, request.Prompt, tier)
			if err != nil {
				return state, err
			}
			next = Append(next, entry)
			result = SubmitResult{
				Entry:      entry,
				Transition: transition,
				Reward:     reward,
				Snapshot:   deriveSubmission(next, entry),
			}
			return next, nil
		})
	}
	if operationError != nil {
		result = SubmitResult{}
	}
	service.logOperation(ctx, OperationLog{
		Operation:   operationSubmit,
		EntryID:     result.Entry.ID(),
		GoldDelta:   result.Reward.Earned,
		GoldBalance: result.Snapshot.Display.GoldBalance,
		Streak:      result.Snapshot.Display.Streak,
		Detail:      result.Entry.RewardTier().String(),
		Error:       operationError,
	})
	return result, operationError
}

// Purchase buys a cosmetic. It fails with ErrInsufficientFunds, leaving the state
// untouched, when the balance does not cover cost.
func (service *Service) Purchase(ctx context.Context, request PurchaseRequest) (PurchaseResult, error) {
	var result PurchaseResult
	var charged int
	item, operationError := NewItemID(request.ItemID)
	var cost Cost
	if operationError == nil {
		cost, operationError = NewCost(request.Cost)
	}
	if operationError == nil {
		var next LedgerState
		next, operationError = service.states.Update(ctx, func(state LedgerState) (LedgerState, error) {
			result.Status = PurchaseStatusPurchased
			if state.Owns(item) {
				result.Status = PurchaseStatusAlreadyOwned
				return state, nil
			}
			charged = cost.Int()
			return Purchase(state, cost, item)
		})
		if operationError == nil {
			result.Snapshot = Derive(next)
		}
	}
	if operationError != nil {
		result = PurchaseResult{}
		charged = 0
	}
	service.logOperation(ctx, OperationLog{
		Operation:   operationPurchase,
		ItemID:      item,
		GoldDelta:   -charged,
		GoldBalance: result.Snapshot.Display.GoldBalance,
		Streak:      result.Snapshot.Display.Streak,
		Detail:      string(result.Status),
		Error:       operationError,
	})
	return result, operationError
}

// Equip makes an owned cosmetic the active one. It fails with ErrNotOwned otherwise.
func (service *Service) Equip(ctx context.Context, itemID string) (Snapshot, error) {
	var snapshot Snapshot
	item, operationError := NewItemID(itemID)
	if operationError == nil {
		var next LedgerState
		next, operationError = service.states.Update(ctx, func(state LedgerState) (LedgerState, error) {
			return Equip(state, item)
		})
		if operationError == nil {
			snapshot = Derive(next)
		}
	}
	service.logOperation(ctx, OperationLog{
		Operation:   operationEquip,
		ItemID:      item,
		GoldBalance: snapshot.Display.GoldBalance,
		Streak:      snapshot.Display.Streak,
		Error:       operationError,
	})
	return snapshot, operationError
}

// Grant credits a manual gold adjustment. It counts as a reward in the ledger.
func (service *Service) Grant(ctx context.Context, amount int64) (Snapshot, error) {
	var snapshot Snapshot
	gold, operationError := NewGoldAmount(amount)
	if operationError == nil {
		var next LedgerState
		next, operationError = service.states.Update(ctx, func(state LedgerState) (LedgerState, error) {
			return GrantGold(state, gold), nil
		})
		if operationError == nil {
			snapshot = Derive(next)
		}
	}
	granted := 0
	if operationError == nil {
		granted = gold.Int()
	}
	service.logOperation(ctx, OperationLog{
		Operation:   operationGrant,
		GoldDelta:   granted,
		GoldBalance: snapshot.Display.GoldBalance,
		Streak:      snapshot.Display.Streak,
		Error:       operationError,
	})
	return snapshot, operationError
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	logOperation(ctx, service.logger, entry)
}
