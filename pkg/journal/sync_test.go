package journal

import (
	"context"
	"errors"
	"testing"
	"time"
)

type snapshotRecorder struct {
	snapshots chan Snapshot
}

func newSnapshotRecorder() *snapshotRecorder {
	return &snapshotRecorder{snapshots: make(chan Snapshot, 8)}
}

func (recorder *snapshotRecorder) handle(_ context.Context, snapshot Snapshot) {
	recorder.snapshots <- snapshot
}

func mustNewSyncListener(test *testing.T, store KeyValueStore, recorder *snapshotRecorder, logger OperationLogger) *SyncListener {
	test.Helper()
	states, err := NewStateStore(store, logger)
	if err != nil {
		test.Fatalf("state store init failed: %v", err)
	}
	listener, err := NewSyncListener(states, recorder.handle, logger)
	if err != nil {
		test.Fatalf("listener init failed: %v", err)
	}
	return listener
}

func TestSyncListenerDispatchesOnlyGoldAndEntries(test *testing.T) {
	test.Parallel()
	dispatching := map[string]bool{
		KeyEntries:          true,
		KeyGoldBalance:      true,
		KeyStreak:           false,
		KeyLastActivityDate: false,
		KeyPendingBonus:     false,
		KeyInventory:        false,
		KeyActiveCosmetic:   false,
		"unrelated":         false,
	}
	for key, want := range dispatching {
		if Dispatches(key) != want {
			test.Fatalf("key %s: expected dispatch %v", key, want)
		}
	}

	store := newStubStore(test)
	recorder := newSnapshotRecorder()
	listener := mustNewSyncListener(test, store, recorder, nil)
	handled, err := listener.HandleChange(context.Background(), ChangeEvent{Key: KeyStreak, NewValue: "3"})
	if err != nil || handled {
		test.Fatalf("streak change must be ignored: handled=%v err=%v", handled, err)
	}
	if store.reads != 0 {
		test.Fatalf("ignored change reloaded state")
	}
}

func TestSyncListenerReloadsFullState(test *testing.T) {
	test.Parallel()
	state := NewLedgerState()
	state = Append(state, mustEntry(test, "a", dayOneValue, RewardTierPrimary))
	state = Append(state, mustEntry(test, "b", dayOneValue, RewardTierSecondary))
	state.GoldBalance = 4
	store := newStubStoreWithState(test, state)
	recorder := newSnapshotRecorder()
	logger := &recorderLogger{}
	listener := mustNewSyncListener(test, store, recorder, logger)

	handled, err := listener.HandleChange(context.Background(), ChangeEvent{Key: KeyGoldBalance, NewValue: "4"})
	if err != nil || !handled {
		test.Fatalf("gold change must dispatch: handled=%v err=%v", handled, err)
	}
	snapshot := <-recorder.snapshots
	if snapshot.Display.GoldBalance != 4 || snapshot.Tokens.Count(TokenTintSecondary) != 1 || snapshot.Tokens.Count(TokenTintPrimary) != 4 {
		test.Fatalf("unexpected snapshot %+v", snapshot.Display)
	}
	if _, fresh := snapshot.Tokens.Fresh(); fresh {
		test.Fatalf("synced tokens must all be historical")
	}
	entries := logger.snapshot()
	if len(entries) != 1 || entries[0].Operation != operationSync || entries[0].Key != KeyGoldBalance {
		test.Fatalf("unexpected logs %+v", entries)
	}
}

func TestSyncListenerReportsLoadFailure(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.readError = errStoreFailure
	listener := mustNewSyncListener(test, store, newSnapshotRecorder(), nil)
	_, err := listener.HandleChange(context.Background(), ChangeEvent{Key: KeyEntries})
	if !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
}

func TestSyncListenerRunStopsWhenChannelCloses(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	recorder := newSnapshotRecorder()
	listener := mustNewSyncListener(test, store, recorder, nil)
	events := make(chan ChangeEvent, 3)
	events <- ChangeEvent{Key: KeyStreak}
	events <- ChangeEvent{Key: KeyEntries}
	events <- ChangeEvent{Key: KeyGoldBalance}
	close(events)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := listener.Run(ctx, events); err != nil {
		test.Fatalf("run returned %v", err)
	}
	if len(recorder.snapshots) != 2 {
		test.Fatalf("expected 2 dispatches, got %d", len(recorder.snapshots))
	}
}

func TestNewSyncListenerValidatesDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewSyncListener(nil, func(context.Context, Snapshot) {}, nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf(errorMismatchMessage, ErrInvalidServiceConfig, err)
	}
	states, err := NewStateStore(newStubStore(test), nil)
	if err != nil {
		test.Fatalf("state store init failed: %v", err)
	}
	if _, err := NewSyncListener(states, nil, nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf(errorMismatchMessage, ErrInvalidServiceConfig, err)
	}
}
