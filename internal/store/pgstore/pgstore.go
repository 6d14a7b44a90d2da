package pgstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	notificationChannel     = "ledger_state_changes"
	watchBufferSize         = 16
	errorOperationStore     = "store"
	errorSubjectState       = "state"
	errorSubjectSchema      = "schema"
	errorSubjectTransaction = "transaction"
	errorSubjectWatch       = "watch"
	errorCodeBegin          = "begin"
	errorCodeCommit         = "commit"
	errorCodeCreate         = "create"
	errorCodeRead           = "read"
	errorCodeUpsert         = "upsert"
	errorCodeNotify         = "notify"
	errorCodeAcquire        = "acquire"
	errorCodeListen         = "listen"

	sqlCreateStateTable = `
		create table if not exists ledger_state (
			state_key text primary key,
			value text not null,
			revision bigint not null default 0,
			writer_id text not null,
			updated_at timestamptz not null default now()
		)
	`

	sqlSelectValues = `
		select state_key, value from ledger_state where state_key = any($1)
	`

	sqlSelectValue = `
		select value from ledger_state where state_key = $1
	`

	sqlUpsertValue = `
		insert into ledger_state(state_key, value, revision, writer_id, updated_at)
		values ($1, $2, 1, $3, now())
		on conflict (state_key) do update
		set value = excluded.value, revision = ledger_state.revision + 1, writer_id = excluded.writer_id, updated_at = now()
		where ledger_state.value is distinct from excluded.value
		returning state_key
	`

	sqlNotify   = `select pg_notify($1, $2)`
	sqlListen   = `listen ` + notificationChannel
	sqlUnlisten = `unlisten ` + notificationChannel
)

// Store implements journal.KeyValueStore and journal.Watcher using a pgx connection pool.
// Committed changes are announced with NOTIFY; Watch reports those of other writers.
type Store struct {
	pool     *pgxpool.Pool
	writerID string
}

type notification struct {
	Key    string `json:"key"`
	Writer string `json:"writer"`
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, writerID: uuid.NewString()}
}

// EnsureSchema creates the ledger_state table when it is missing.
func (store *Store) EnsureSchema(ctx context.Context) error {
	if _, err := store.pool.Exec(ctx, sqlCreateStateTable); err != nil {
		return wrapStoreError(errorSubjectSchema, errorCodeCreate, err)
	}
	return nil
}

// ReadAll returns the stored values for keys; absent keys are omitted.
func (store *Store) ReadAll(ctx context.Context, keys []string) (map[string]string, error) {
	rows, err := store.pool.Query(ctx, sqlSelectValues, keys)
	if err != nil {
		return nil, wrapStoreError(errorSubjectState, errorCodeRead, err)
	}
	defer rows.Close()
	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, wrapStoreError(errorSubjectState, errorCodeRead, err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectState, errorCodeRead, err)
	}
	return values, nil
}

// WriteAll upserts every value in one transaction and notifies listeners of each changed key on commit.
func (store *Store) WriteAll(ctx context.Context, values map[string]string) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	if err := store.writeValues(ctx, tx, values); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) writeValues(ctx context.Context, tx pgx.Tx, values map[string]string) error {
	for key, value := range values {
		var changedKey string
		err := tx.QueryRow(ctx, sqlUpsertValue, key, value, store.writerID).Scan(&changedKey)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return wrapStoreError(errorSubjectState, errorCodeUpsert, err)
		}
		payload, err := json.Marshal(notification{Key: changedKey, Writer: store.writerID})
		if err != nil {
			return wrapStoreError(errorSubjectState, errorCodeNotify, err)
		}
		if _, err := tx.Exec(ctx, sqlNotify, notificationChannel, string(payload)); err != nil {
			return wrapStoreError(errorSubjectState, errorCodeNotify, err)
		}
	}
	return nil
}

// Watch listens for notifications from other writers and streams the changed values until ctx is done.
func (store *Store) Watch(ctx context.Context) (<-chan journal.ChangeEvent, error) {
	conn, err := store.pool.Acquire(ctx)
	if err != nil {
		return nil, wrapStoreError(errorSubjectWatch, errorCodeAcquire, err)
	}
	if _, err := conn.Exec(ctx, sqlListen); err != nil {
		conn.Release()
		return nil, wrapStoreError(errorSubjectWatch, errorCodeListen, err)
	}
	events := make(chan journal.ChangeEvent, watchBufferSize)
	go store.listen(ctx, conn, events)
	return events, nil
}

func (store *Store) listen(ctx context.Context, conn *pgxpool.Conn, events chan<- journal.ChangeEvent) {
	defer close(events)
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), sqlUnlisten)
		conn.Release()
	}()
	for {
		received, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return
		}
		var payload notification
		if err := json.Unmarshal([]byte(received.Payload), &payload); err != nil {
			continue
		}
		if payload.Writer == store.writerID {
			continue
		}
		var value string
		if err := store.pool.QueryRow(ctx, sqlSelectValue, payload.Key).Scan(&value); err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case events <- journal.ChangeEvent{Key: payload.Key, NewValue: value}:
		case <-ctx.Done():
			return
		}
	}
}

func wrapStoreError(subject string, code string, err error) error {
	return journal.WrapError(errorOperationStore, subject, code, err)
}
