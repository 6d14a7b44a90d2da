package journal

import (
	"context"
	"fmt"
)

// SnapshotHandler receives the snapshot re-derived after an external change.
type SnapshotHandler func(ctx context.Context, snapshot Snapshot)

// SyncListener keeps a view consistent with changes committed by other execution
// contexts sharing the same key/value layer. It always reloads the full state and
// re-plans from scratch; it never patches a previous snapshot.
type SyncListener struct {
	states  *StateStore
	handler SnapshotHandler
	logger  OperationLogger
}

// NewSyncListener wires a SyncListener. logger may be nil.
func NewSyncListener(states *StateStore, handler SnapshotHandler, logger OperationLogger) (*SyncListener, error) {
	if states == nil {
		return nil, fmt.Errorf("%w: state store dependency is nil", ErrInvalidServiceConfig)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: snapshot handler is nil", ErrInvalidServiceConfig)
	}
	return &SyncListener{states: states, handler: handler, logger: logger}, nil
}

// Dispatches reports whether a change to key requires re-deriving the view.
func Dispatches(key string) bool {
	return key == KeyGoldBalance || key == KeyEntries
}

// HandleChange reloads and re-derives when event touches the gold balance or the entries.
// It reports whether the handler was invoked.
func (listener *SyncListener) HandleChange(ctx context.Context, event ChangeEvent) (bool, error) {
	if !Dispatches(event.Key) {
		return false, nil
	}
	state, err := listener.states.Load(ctx)
	if err != nil {
		logOperation(ctx, listener.logger, OperationLog{Operation: operationSync, Key: event.Key, Error: err})
		return false, err
	}
	snapshot := Derive(state)
	listener.handler(ctx, snapshot)
	logOperation(ctx, listener.logger, OperationLog{
		Operation:   operationSync,
		Key:         event.Key,
		GoldBalance: snapshot.Display.GoldBalance,
		Streak:      snapshot.Display.Streak,
	})
	return true, nil
}

// Run handles events until ctx is done or events is closed. A failed reload is logged
// and the listener keeps going; the next notification reloads again.
func (listener *SyncListener) Run(ctx context.Context, events <-chan ChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			_, _ = listener.HandleChange(ctx, event)
		}
	}
}
