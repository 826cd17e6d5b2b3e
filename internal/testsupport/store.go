package testsupport

import (
	"context"
	"testing"

	"marquee/internal/config"
	"marquee/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AppendRecord inserts a history record for tests using the provided store.
func AppendRecord(t testing.TB, store *history.Store, rec history.Record) int64 {
	t.Helper()

	id, err := store.Append(context.Background(), rec)
	if err != nil {
		t.Fatalf("store.Append: %v", err)
	}
	return id
}
