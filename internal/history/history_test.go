package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	stores := make(map[string]Store)
	for _, backend := range []string{"json", "sqlite"} {
		store, err := Open(backend, filepath.Join(dir, "history."+backend))
		if err != nil {
			t.Fatalf("Open(%s): %v", backend, err)
		}
		t.Cleanup(func() { store.Close() })
		stores[backend] = store
	}
	return stores
}

func TestStoreLatestPerID(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)
	for backend, store := range openStores(t) {
		t.Run(backend, func(t *testing.T) {
			log := []Entry{
				{ID: "aaaa-1", URL: "https://example.com/a", Filename: "a", Threads: 4, TotalSize: 10, Status: StatusPending, Timestamp: now},
				{ID: "bbbb-2", URL: "https://example.com/b", Filename: "b", Threads: 2, TotalSize: 20, Status: StatusPending, Timestamp: now},
				{ID: "aaaa-1", URL: "https://example.com/a", Filename: "a", Threads: 4, TotalSize: 10, Status: StatusFailed, Error: "chunk 1: boom", Timestamp: now.Add(time.Second)},
			}
			for _, entry := range log {
				if err := store.Append(ctx, entry); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}
			entries, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("List returned %d entries, want 2", len(entries))
			}
			if entries[0].ID != "aaaa-1" || entries[0].Status != StatusFailed || entries[0].Error != "chunk 1: boom" {
				t.Errorf("first entry = %+v, want latest failed record of aaaa-1", entries[0])
			}
			if !entries[0].Timestamp.Equal(now.Add(time.Second)) {
				t.Errorf("timestamp = %v, want %v", entries[0].Timestamp, now.Add(time.Second))
			}

			got, err := store.Get(ctx, "bbbb")
			if err != nil || got.ID != "bbbb-2" || got.TotalSize != 20 {
				t.Errorf("Get by prefix = %+v, %v", got, err)
			}
			if _, err := store.Get(ctx, "cccc"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get unknown id: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestFindAmbiguousPrefix(t *testing.T) {
	entries := []Entry{{ID: "ab12"}, {ID: "ab34"}}
	if _, err := find(entries, "ab"); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
	if got, err := find(entries, "ab34"); err != nil || got.ID != "ab34" {
		t.Errorf("exact match = %+v, %v", got, err)
	}
}

func TestJSONStoreReadsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("[\n\n]"), 0644); err != nil {
		t.Fatal(err)
	}
	entries, err := NewJSONStore(path).List(context.Background())
	if err != nil || len(entries) != 0 {
		t.Errorf("List on empty history = %v, %v", entries, err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("redis", "x"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
