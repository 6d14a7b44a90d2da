package journal

import (
	"context"
	"fmt"
)

const (
	errorOperationState = "state"
	errorSubjectLoad    = "load"
	errorSubjectSave    = "save"
	errorCodeRead       = "read"
	errorCodeWrite      = "write"
)

// KeyValueStore is the durable key/value layer behind StateStore.
// WriteAll must apply every value or none of them.
type KeyValueStore interface {
	ReadAll(ctx context.Context, keys []string) (map[string]string, error)
	WriteAll(ctx context.Context, values map[string]string) error
}

// ChangeEvent reports a value committed to the key/value layer by another execution context.
type ChangeEvent struct {
	Key      string
	NewValue string
}

// Watcher is implemented by key/value stores that can report external changes.
// The channel is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

// StateStore provides typed access to LedgerState over a KeyValueStore.
type StateStore struct {
	backend KeyValueStore
	logger  OperationLogger
}

// NewStateStore wires a StateStore. logger may be nil.
func NewStateStore(backend KeyValueStore, logger OperationLogger) (*StateStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: key/value store dependency is nil", ErrInvalidServiceConfig)
	}
	return &StateStore{backend: backend, logger: logger}, nil
}

// Load reads and decodes the persisted state. Malformed values are replaced by defaults;
// only a failing backend produces an error.
func (store *StateStore) Load(ctx context.Context) (LedgerState, error) {
	values, err := store.backend.ReadAll(ctx, StateKeys())
	if err != nil {
		return NewLedgerState(), WrapError(errorOperationState, errorSubjectLoad, errorCodeRead, err)
	}
	state, recoveries := DecodeState(values)
	for _, recovery := range recoveries {
		logOperation(ctx, store.logger, OperationLog{
			Operation: operationRecover,
			Key:       recovery.Key,
			Detail:    recovery.Reason,
			Status:    operationStatusRecovered,
			Error:     ErrMalformedPersistedData,
		})
	}
	return state, nil
}

// Save commits every field of state in a single write.
func (store *StateStore) Save(ctx context.Context, state LedgerState) error {
	if err := store.backend.WriteAll(ctx, EncodeState(state)); err != nil {
		return WrapError(errorOperationState, errorSubjectSave, errorCodeWrite, err)
	}
	return nil
}

// Update loads the state, applies transition and saves the result once.
// Nothing is written when transition fails.
func (store *StateStore) Update(ctx context.Context, transition func(state LedgerState) (LedgerState, error)) (LedgerState, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return LedgerState{}, err
	}
	next, err := transition(state)
	if err != nil {
		return state, err
	}
	if err := store.Save(ctx, next); err != nil {
		return state, err
	}
	return next, nil
}
