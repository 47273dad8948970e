package thread

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MetaFileName is the record document inside each thread directory.
const MetaFileName = "meta.json"

const fileMode = 0o600

// Store reads and writes thread records under a threads directory, where
// each immediate subdirectory is a thread key containing a meta.json.
type Store struct {
	dir string
}

// NewStore creates a Store for the given threads directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the threads directory path.
func (s *Store) Dir() string { return s.dir }

// Keys lists thread keys in sorted order. Only subdirectories containing a
// meta.json count; anything else is invisible.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading threads directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(s.MetaPath(entry.Name())); err != nil {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists reports whether a thread directory with a meta.json is present.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.MetaPath(key))
	return err == nil
}

// MetaPath returns the path to a thread's meta.json.
func (s *Store) MetaPath(key string) string {
	return filepath.Join(s.dir, key, MetaFileName)
}

// Read parses a thread's meta.json into a Record.
func (s *Store) Read(key string) (*Record, error) {
	data, err := os.ReadFile(s.MetaPath(key)) //nolint:gosec // thread path from trusted store dir
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.MetaPath(key), err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing %s/%s: %w", key, MetaFileName, err)
	}
	return &rec, nil
}

// WriteSyncResult writes the calendar event id and sync timestamp into a
// thread's sync block. The document is edited at the raw-field level so no
// other data is disturbed, whatever shape it has.
func (s *Store) WriteSyncResult(key, eventID string, syncedAt time.Time) error {
	path := s.MetaPath(key)
	data, err := os.ReadFile(path) //nolint:gosec // thread path from trusted store dir
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	syncFields := map[string]json.RawMessage{}
	if raw, ok := fields["sync"]; ok {
		if err := json.Unmarshal(raw, &syncFields); err != nil {
			return fmt.Errorf("parsing sync block in %s: %w", path, err)
		}
	}

	syncFields["calendar_event_id"] = mustRaw(eventID)
	syncFields["calendar_synced_at"] = mustRaw(syncedAt.UTC().Format(time.RFC3339))

	syncRaw, err := json.Marshal(syncFields)
	if err != nil {
		return fmt.Errorf("marshaling sync block: %w", err)
	}
	fields["sync"] = syncRaw

	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return os.WriteFile(path, append(out, '\n'), fileMode)
}

func mustRaw(s string) json.RawMessage {
	raw, err := json.Marshal(s)
	if err != nil {
		// Strings always marshal; this is unreachable.
		panic(err)
	}
	return raw
}
