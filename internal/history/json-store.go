package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore keeps the log as a JSON array in a single file.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, err := s.read()
	if err != nil {
		return err
	}
	log = append(log, entry)
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("error creating history directory: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("error writing history: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("error replacing history file: %w", err)
	}
	return nil
}

func (s *JSONStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, err := s.read()
	if err != nil {
		return nil, err
	}
	return Latest(log), nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	return find(entries, id)
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) read() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}
	var log []Entry
	if len(data) == 0 {
		return log, nil
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("error parsing history file %s: %w", s.path, err)
	}
	return log, nil
}
