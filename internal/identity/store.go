package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store persists one identity aggregate as a JSON document. Saves are atomic:
// the document is written to a temp file in the same directory and renamed
// over the old one, so a crash mid-write never leaves a torn file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the persisted identity, or creates a fresh one when no file
// exists yet. Fields missing from older documents are filled with defaults.
func (s *Store) Load(name string, now time.Time) (*Identity, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return New(name, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	id.normalize(now)
	return &id, nil
}

// Save writes the identity atomically. A failed save is fatal to the caller's
// exchange: growth state must never silently diverge from disk.
func (s *Store) Save(id *Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace identity: %w", err)
	}
	return nil
}
