package probestore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "probes.db"), maxEntries)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndLookup(t *testing.T) {
	store := openTestStore(t, 0)
	ctx := context.Background()

	if _, ok, err := store.Lookup(ctx, "missing"); err != nil || ok {
		t.Fatalf("Lookup(missing) = %v, %v", ok, err)
	}
	if err := store.Save(ctx, "ffprobe\x00-show_format\x00a.mkv", []byte(`{"format":{}}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	payload, ok, err := store.Lookup(ctx, "ffprobe\x00-show_format\x00a.mkv")
	if err != nil || !ok {
		t.Fatalf("Lookup = %v, %v", ok, err)
	}
	if string(payload) != `{"format":{}}` {
		t.Fatalf("payload = %q", payload)
	}

	if err := store.Save(ctx, "ffprobe\x00-show_format\x00a.mkv", []byte(`{"format":{"x":1}}`)); err != nil {
		t.Fatalf("Save replace: %v", err)
	}
	payload, _, _ = store.Lookup(ctx, "ffprobe\x00-show_format\x00a.mkv")
	if string(payload) != `{"format":{"x":1}}` {
		t.Fatalf("payload after replace = %q", payload)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 1 || stats.Hits != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Oldest.IsZero() || stats.Newest.IsZero() {
		t.Fatalf("expected timestamps in %+v", stats)
	}
}

func TestSaveKeepsStoreBounded(t *testing.T) {
	store := openTestStore(t, 3)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		if err := store.Save(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Save(%s): %v", key, err)
		}
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 3 {
		t.Fatalf("expected 3 entries, got %d", stats.Entries)
	}
	for _, key := range []string{"a", "b"} {
		if _, ok, _ := store.Lookup(ctx, key); ok {
			t.Fatalf("expected %s pruned", key)
		}
	}
	if _, ok, _ := store.Lookup(ctx, "e"); !ok {
		t.Fatal("newest entry missing")
	}
}

func TestPruneAndClear(t *testing.T) {
	store := openTestStore(t, 0)
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	removed, err := store.Prune(ctx, 1)
	if err != nil || removed != 2 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	removed, err = store.Clear(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
	stats, _ := store.Stats(ctx)
	if stats.Entries != 0 || !stats.Oldest.IsZero() {
		t.Fatalf("expected empty store, got %+v", stats)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.db")
	ctx := context.Background()

	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Save(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if payload, ok, err := reopened.Lookup(ctx, "k"); err != nil || !ok || string(payload) != "v" {
		t.Fatalf("Lookup after reopen = %q, %v, %v", payload, ok, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := Open(path, 0); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  ", 0); err == nil {
		t.Fatal("expected error")
	}
}
