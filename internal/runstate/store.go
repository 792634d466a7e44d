package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Store reads and writes the run ledger document.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// stateDocument is the on-disk shape. Older documents stored
// processed_articles as a bare list of ids and pending jobs under
// "pending_notebooks"; both are accepted on read and rewritten in the
// current shape on the next save.
type stateDocument struct {
	LastRun       *time.Time      `json:"last_run"`
	Processed     json.RawMessage `json:"processed_articles,omitempty"`
	Pending       []PendingJob    `json:"pending_jobs,omitempty"`
	PendingLegacy []PendingJob    `json:"pending_notebooks,omitempty"`
}

// Load returns the current state. A missing file yields an empty state;
// legacy document shapes are normalized on read.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return NewState(), nil
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}

	processed, err := decodeProcessed(doc.Processed)
	if err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}

	pending := doc.Pending
	if len(pending) == 0 {
		pending = doc.PendingLegacy
	}

	return &State{
		LastRun:   doc.LastRun,
		Processed: processed,
		Pending:   pending,
	}, nil
}

// Save atomically replaces the state document: the new content is written to
// a temporary file and moved into place in one step, so a reader never
// observes a partial write.
func (s *Store) Save(state *State) error {
	doc := stateDocument{
		LastRun: state.LastRun,
		Pending: state.Pending,
	}
	processed, err := json.Marshal(state.Processed)
	if err != nil {
		return fmt.Errorf("marshal processed set: %w", err)
	}
	doc.Processed = processed

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return writeAtomic(s.path, data)
}

// decodeProcessed accepts either the current map[id]timestamp shape or the
// legacy list-of-ids shape, assigning "now" to migrated entries.
func decodeProcessed(raw json.RawMessage) (map[string]time.Time, error) {
	if len(raw) == 0 {
		return make(map[string]time.Time), nil
	}

	var processed map[string]time.Time
	if err := json.Unmarshal(raw, &processed); err == nil {
		if processed == nil {
			processed = make(map[string]time.Time)
		}
		return processed, nil
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, errors.New("processed_articles is neither a mapping nor a list")
	}
	now := time.Now().UTC()
	processed = make(map[string]time.Time, len(ids))
	for _, id := range ids {
		processed[id] = now
	}
	return processed, nil
}

// writeAtomic persists data via temp file + rename in the target directory.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
