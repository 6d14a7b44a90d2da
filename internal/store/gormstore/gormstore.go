package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollInterval  = 2 * time.Second
	watchBufferSize      = 16
	errorOperationStore  = "store"
	errorSubjectState    = "state"
	errorSubjectAudit    = "audit"
	errorCodeRead        = "read"
	errorCodeWrite       = "write"
	errorCodePoll        = "poll"
	errorCodeInsert      = "insert"
	errorCodeList        = "list"
	errorCodeSum         = "sum"
	errorCodeMetadata    = "metadata"
	errorCodeInvalidPoll = "invalid_poll_interval"
)

var errMissingRevisionCounter = errors.New("revision counter row missing; run Migrate")

// Store implements journal.KeyValueStore and journal.Watcher using GORM.
// Every Store gets its own writer id; Watch reports rows written by other writers.
type Store struct {
	db           *gorm.DB
	writerID     string
	pollInterval time.Duration
	onPollError  func(error)
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets how often Watch checks for new revisions.
func WithPollInterval(interval time.Duration) Option {
	return func(store *Store) {
		store.pollInterval = interval
	}
}

// WithPollErrorHandler receives failed polls. Watch keeps polling after a failure.
func WithPollErrorHandler(handler func(error)) Option {
	return func(store *Store) {
		store.onPollError = handler
	}
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB, options ...Option) *Store {
	store := &Store{db: db, writerID: uuid.NewString(), pollInterval: defaultPollInterval}
	for _, option := range options {
		if option != nil {
			option(store)
		}
	}
	return store
}

// ReadAll returns the stored values for keys; absent keys are omitted.
func (store *Store) ReadAll(ctx context.Context, keys []string) (map[string]string, error) {
	var rows []StateValue
	err := store.db.WithContext(ctx).
		Where("state_key IN ?", keys).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectState, errorCodeRead, err)
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.StateKey] = row.Value
	}
	return values, nil
}

// WriteAll upserts every value in one transaction. Rows whose value changed get a new revision.
// Concurrent writers wait on the revision counter row, so a poller that has seen
// revision R has seen every commit up to R.
func (store *Store) WriteAll(ctx context.Context, values map[string]string) error {
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		revision, err := nextRevision(transaction)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		var existing []StateValue
		if err := transaction.Where("state_key IN ?", keys).Find(&existing).Error; err != nil {
			return err
		}
		current := make(map[string]string, len(existing))
		for _, row := range existing {
			current[row.StateKey] = row.Value
		}
		now := time.Now().UTC()
		rows := make([]StateValue, 0, len(values))
		for _, key := range keys {
			value := values[key]
			if previous, ok := current[key]; ok && previous == value {
				continue
			}
			rows = append(rows, StateValue{StateKey: key, Value: value, Revision: revision, WriterID: store.writerID, UpdatedAt: now})
		}
		if len(rows) == 0 {
			return nil
		}
		return transaction.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "state_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "revision", "writer_id", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return wrapStoreError(errorSubjectState, errorCodeWrite, err)
	}
	return nil
}

// Watch polls for values committed by other writers and streams them until ctx is done.
func (store *Store) Watch(ctx context.Context) (<-chan journal.ChangeEvent, error) {
	if store.pollInterval <= 0 {
		return nil, wrapStoreError(errorSubjectState, errorCodeInvalidPoll, journal.ErrInvalidServiceConfig)
	}
	var latest revisionRow
	err := store.db.WithContext(ctx).Model(&StateValue{}).Select("coalesce(max(revision),0) as revision").Scan(&latest).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectState, errorCodePoll, err)
	}
	events := make(chan journal.ChangeEvent, watchBufferSize)
	go store.poll(ctx, latest.Revision, events)
	return events, nil
}

func (store *Store) poll(ctx context.Context, seen int64, events chan<- journal.ChangeEvent) {
	defer close(events)
	ticker := time.NewTicker(store.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var rows []StateValue
		err := store.db.WithContext(ctx).
			Where("revision > ?", seen).
			Order("revision ASC").
			Find(&rows).Error
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if store.onPollError != nil {
				store.onPollError(wrapStoreError(errorSubjectState, errorCodePoll, err))
			}
			continue
		}
		for _, row := range rows {
			if row.Revision > seen {
				seen = row.Revision
			}
			if row.WriterID == store.writerID {
				continue
			}
			select {
			case events <- journal.ChangeEvent{Key: row.StateKey, NewValue: row.Value}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// nextRevision increments the counter row, holding its lock until the transaction ends.
func nextRevision(transaction *gorm.DB) (int64, error) {
	update := transaction.Model(&RevisionCounter{}).
		Where("counter_id = ?", revisionCounterID).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if update.Error != nil {
		return 0, update.Error
	}
	if update.RowsAffected == 0 {
		return 0, errMissingRevisionCounter
	}
	var counter RevisionCounter
	if err := transaction.Where("counter_id = ?", revisionCounterID).Take(&counter).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return journal.WrapError(errorOperationStore, subject, code, err)
}

type revisionRow struct {
	Revision int64
}
