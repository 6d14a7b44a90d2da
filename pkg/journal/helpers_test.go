package journal

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

const (
	errorMismatchMessage = "expected %v, got %v"
	reflectionTextValue  = "grateful for the walk"
	promptTextValue      = "What made you smile today?"
)

type stubStore struct {
	mutex      sync.Mutex
	values     map[string]string
	readError  error
	writeError error
	reads      int
	writes     int
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{values: make(map[string]string)}
}

func newStubStoreWithState(test *testing.T, state LedgerState) *stubStore {
	test.Helper()
	store := newStubStore(test)
	for key, value := range EncodeState(state) {
		store.values[key] = value
	}
	return store
}

func (store *stubStore) ReadAll(_ context.Context, keys []string) (map[string]string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.reads++
	if store.readError != nil {
		return nil, store.readError
	}
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := store.values[key]; ok {
			values[key] = value
		}
	}
	return values, nil
}

func (store *stubStore) WriteAll(_ context.Context, values map[string]string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if store.writeError != nil {
		return store.writeError
	}
	store.writes++
	for key, value := range values {
		store.values[key] = value
	}
	return nil
}

func (store *stubStore) writeCount() int {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.writes
}

type recorderLogger struct {
	mutex   sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.entries = append(logger.entries, entry)
}

func (logger *recorderLogger) snapshot() []OperationLog {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	return append([]OperationLog(nil), logger.entries...)
}

// manualClock returns a settable clock for service tests.
type manualClock struct {
	mutex sync.Mutex
	now   time.Time
}

func newManualClock(test *testing.T, date string) *manualClock {
	test.Helper()
	return &manualClock{now: mustMoment(test, date)}
}

func (clock *manualClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.now
}

func (clock *manualClock) Set(test *testing.T, date string) {
	test.Helper()
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.now = mustMoment(test, date)
}

func sequentialIDs() func() string {
	var mutex sync.Mutex
	next := 0
	return func() string {
		mutex.Lock()
		defer mutex.Unlock()
		next++
		return fmt.Sprintf("entry-%d", next)
	}
}

func mustMoment(test *testing.T, date string) time.Time {
	test.Helper()
	moment, err := time.ParseInLocation("2006-01-02 15:04", date+" 09:30", time.UTC)
	if err != nil {
		test.Fatalf("parse moment %q: %v", date, err)
	}
	return moment
}

func mustNewService(test *testing.T, store KeyValueStore, clock *manualClock, options ...ServiceOption) *Service {
	test.Helper()
	options = append([]ServiceOption{WithLocation(time.UTC), WithIDGenerator(sequentialIDs())}, options...)
	service, err := NewService(store, clock.Now, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustCalendarDate(test *testing.T, raw string) CalendarDate {
	test.Helper()
	date, err := NewCalendarDate(raw)
	if err != nil {
		test.Fatalf("calendar date %q: %v", raw, err)
	}
	return date
}

func mustEntryID(test *testing.T, raw string) EntryID {
	test.Helper()
	id, err := NewEntryID(raw)
	if err != nil {
		test.Fatalf("entry id %q: %v", raw, err)
	}
	return id
}

func mustItemID(test *testing.T, raw string) ItemID {
	test.Helper()
	item, err := NewItemID(raw)
	if err != nil {
		test.Fatalf("item id %q: %v", raw, err)
	}
	return item
}

func mustCost(test *testing.T, raw int64) Cost {
	test.Helper()
	cost, err := NewCost(raw)
	if err != nil {
		test.Fatalf("cost %d: %v", raw, err)
	}
	return cost
}

func mustEntry(test *testing.T, id string, date string, tier RewardTier) ReflectionEntry {
	test.Helper()
	text, err := NewReflectionText(reflectionTextValue + " " + id)
	if err != nil {
		test.Fatalf("text: %v", err)
	}
	entry, err := NewReflectionEntry(mustEntryID(test, id), mustCalendarDate(test, date), "", text, "", tier)
	if err != nil {
		test.Fatalf("entry %q: %v", id, err)
	}
	return entry
}
