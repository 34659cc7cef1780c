package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateEntry records one spawned server: which slug it serves, the process
// id, the port it was given and the model file it was started against.
type StateEntry struct {
	PID       int32     `json:"pid"`
	Port      int       `json:"port"`
	ModelPath string    `json:"model_path"`
	LogPath   string    `json:"log_path"`
	StartedAt time.Time `json:"started_at"`
}

// StateFile is the lifecycle manager's slug -> pid/port registry, kept as
// a small JSON file so a later invocation can find servers it did not
// spawn itself. Entries are advisory: the process table is the ground
// truth and entries are verified against it before use.
type StateFile struct {
	path string
}

// NewStateFile binds a registry to path. The file is created on first write.
func NewStateFile(path string) *StateFile { return &StateFile{path: path} }

func (s *StateFile) load() (map[string]StateEntry, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]StateEntry{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	entries := map[string]StateEntry{}
	if len(b) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(b, &entries); err != nil {
		// A corrupt state file must not brick the manager; treat as empty.
		return map[string]StateEntry{}, nil
	}
	return entries, nil
}

func (s *StateFile) save(entries map[string]StateEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Get returns the entry for slug, if any.
func (s *StateFile) Get(slug string) (StateEntry, bool, error) {
	entries, err := s.load()
	if err != nil {
		return StateEntry{}, false, err
	}
	e, ok := entries[slug]
	return e, ok, nil
}

// All returns every recorded entry keyed by slug.
func (s *StateFile) All() (map[string]StateEntry, error) {
	return s.load()
}

// Put records or replaces the entry for slug.
func (s *StateFile) Put(slug string, e StateEntry) error {
	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[slug] = e
	return s.save(entries)
}

// Delete drops the entry for slug; absent slugs are a no-op.
func (s *StateFile) Delete(slug string) error {
	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[slug]; !ok {
		return nil
	}
	delete(entries, slug)
	return s.save(entries)
}

// Clear truncates the registry.
func (s *StateFile) Clear() error {
	return s.save(map[string]StateEntry{})
}
