// Package history records download jobs in an append-only log so they can
// be listed and resumed later. The latest record for a job ID describes it.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound  = errors.New("history: entry not found")
	ErrAmbiguous = errors.New("history: id prefix matches more than one entry")
)

type Entry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	OutputDir string    `json:"output_dir"`
	TempDir   string    `json:"temp_dir"`
	Threads   int       `json:"threads"`
	TotalSize int64     `json:"total_size"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Store interface {
	Append(ctx context.Context, entry Entry) error
	// List returns the latest record of every job, oldest job first.
	List(ctx context.Context) ([]Entry, error)
	// Get returns the latest record of the job whose ID equals or starts with id.
	Get(ctx context.Context, id string) (Entry, error)
	Close() error
}

// Open returns the store for backend ("json" or "sqlite") at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "json":
		return NewJSONStore(path), nil
	case "sqlite":
		store, err := OpenSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("history: unknown backend %q", backend)
	}
}

// Latest collapses a log into the last record per ID, keeping the order in
// which IDs first appeared.
func Latest(log []Entry) []Entry {
	index := make(map[string]int)
	var result []Entry
	for _, entry := range log {
		if i, ok := index[entry.ID]; ok {
			result[i] = entry
			continue
		}
		index[entry.ID] = len(result)
		result = append(result, entry)
	}
	return result
}

func find(entries []Entry, id string) (Entry, error) {
	if id == "" {
		return Entry{}, ErrNotFound
	}
	var match *Entry
	for i := range entries {
		if entries[i].ID == id {
			return entries[i], nil
		}
		if strings.HasPrefix(entries[i].ID, id) {
			if match != nil {
				return Entry{}, ErrAmbiguous
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return Entry{}, ErrNotFound
	}
	return *match, nil
}
