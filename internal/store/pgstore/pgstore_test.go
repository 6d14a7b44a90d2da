package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresURLEnv = "REFLECTIONS_TEST_POSTGRES_URL"

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	databaseURL := os.Getenv(postgresURLEnv)
	if databaseURL == "" {
		t.Skipf("%s not set", postgresURLEnv)
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("pool open failed: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := New(pool).EnsureSchema(ctx); err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if _, err := pool.Exec(ctx, "delete from ledger_state"); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	return pool
}

func TestStoreReadWriteAndNotify(t *testing.T) {
	pool := openTestPool(t)
	watcher := New(pool)
	writer := New(pool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := watcher.Watch(ctx)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if err := writer.WriteAll(ctx, map[string]string{journal.KeyGoldBalance: "6", journal.KeyStreak: "2"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	values, err := watcher.ReadAll(ctx, journal.StateKeys())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if values[journal.KeyGoldBalance] != "6" || values[journal.KeyStreak] != "2" {
		t.Fatalf("unexpected values %+v", values)
	}

	received := map[string]string{}
	deadline := time.After(5 * time.Second)
	for len(received) < 2 {
		select {
		case event := <-events:
			received[event.Key] = event.NewValue
		case <-deadline:
			t.Fatalf("timed out, received %+v", received)
		}
	}
	if received[journal.KeyGoldBalance] != "6" {
		t.Fatalf("unexpected events %+v", received)
	}
}

func TestStoreBacksJournalService(t *testing.T) {
	pool := openTestPool(t)
	clock := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	service, err := journal.NewService(New(pool), func() time.Time { return clock }, journal.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("service init failed: %v", err)
	}
	ctx := context.Background()
	if _, err := service.Submit(ctx, journal.SubmitRequest{Text: "stored in postgres"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	snapshot, err := service.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snapshot.Display.EntryCount != 1 || snapshot.Display.GoldBalance != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot.Display)
	}
}
