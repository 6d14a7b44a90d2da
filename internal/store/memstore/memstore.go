// Package memstore keeps the journal's key/value layer in memory.
//
// A Shared space can be opened by several handles. Like browser tabs sharing
// local storage, a handle is told about values committed by the other handles
// and not about its own writes.
package memstore

import (
	"context"
	"sync"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
)

const watchBufferSize = 16

// Shared is one key/value space.
type Shared struct {
	mutex       sync.Mutex
	values      map[string]string
	writes      int
	nextHandle  int
	subscribers map[*subscriber]struct{}
}

// Store is one handle onto a Shared space. It implements journal.KeyValueStore and journal.Watcher.
type Store struct {
	shared *Shared
	handle int
}

type subscriber struct {
	owner  int
	events chan journal.ChangeEvent
	done   <-chan struct{}
	mutex  sync.Mutex
	closed bool
}

// NewShared returns an empty space.
func NewShared() *Shared {
	return &Shared{
		values:      make(map[string]string),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// New returns a handle onto a fresh private space.
func New() *Store {
	return NewShared().Open()
}

// Open returns a new handle onto the space.
func (shared *Shared) Open() *Store {
	shared.mutex.Lock()
	defer shared.mutex.Unlock()
	shared.nextHandle++
	return &Store{shared: shared, handle: shared.nextHandle}
}

// Set writes a raw value without notifying anyone. It is meant for seeding fixtures.
func (shared *Shared) Set(key string, value string) {
	shared.mutex.Lock()
	defer shared.mutex.Unlock()
	shared.values[key] = value
}

// Values returns a copy of every stored value.
func (shared *Shared) Values() map[string]string {
	shared.mutex.Lock()
	defer shared.mutex.Unlock()
	copied := make(map[string]string, len(shared.values))
	for key, value := range shared.values {
		copied[key] = value
	}
	return copied
}

// WriteCount returns how many WriteAll calls have been committed.
func (shared *Shared) WriteCount() int {
	shared.mutex.Lock()
	defer shared.mutex.Unlock()
	return shared.writes
}

// Shared returns the space behind the handle.
func (store *Store) Shared() *Shared {
	return store.shared
}

// ReadAll returns the stored values for keys; absent keys are omitted.
func (store *Store) ReadAll(ctx context.Context, keys []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shared := store.shared
	shared.mutex.Lock()
	defer shared.mutex.Unlock()
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := shared.values[key]; ok {
			values[key] = value
		}
	}
	return values, nil
}

// WriteAll commits every value at once and notifies the other handles of each changed key.
func (store *Store) WriteAll(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	shared := store.shared
	shared.mutex.Lock()
	var changes []journal.ChangeEvent
	for _, key := range journal.StateKeys() {
		value, ok := values[key]
		if !ok {
			continue
		}
		if previous, exists := shared.values[key]; !exists || previous != value {
			changes = append(changes, journal.ChangeEvent{Key: key, NewValue: value})
		}
	}
	for key, value := range values {
		shared.values[key] = value
	}
	shared.writes++
	recipients := make([]*subscriber, 0, len(shared.subscribers))
	for candidate := range shared.subscribers {
		if candidate.owner != store.handle {
			recipients = append(recipients, candidate)
		}
	}
	shared.mutex.Unlock()

	for _, recipient := range recipients {
		for _, change := range changes {
			recipient.deliver(change)
		}
	}
	return nil
}

// Watch streams changes committed through other handles until ctx is done.
func (store *Store) Watch(ctx context.Context) (<-chan journal.ChangeEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	watcher := &subscriber{
		owner:  store.handle,
		events: make(chan journal.ChangeEvent, watchBufferSize),
		done:   ctx.Done(),
	}
	shared := store.shared
	shared.mutex.Lock()
	shared.subscribers[watcher] = struct{}{}
	shared.mutex.Unlock()

	go func() {
		<-ctx.Done()
		shared.mutex.Lock()
		delete(shared.subscribers, watcher)
		shared.mutex.Unlock()
		watcher.close()
	}()
	return watcher.events, nil
}

func (watcher *subscriber) deliver(event journal.ChangeEvent) {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	if watcher.closed {
		return
	}
	select {
	case watcher.events <- event:
	case <-watcher.done:
	}
}

func (watcher *subscriber) close() {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	watcher.closed = true
	close(watcher.events)
}
