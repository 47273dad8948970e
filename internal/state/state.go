// Package state persists the sync state: the mapping from thread keys to
// calendar event identities plus lifetime counters. The whole structure is
// read and written as one file; partial writes are never visible.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ShawnOwen/threadcal/internal/thread"
)

const fileMode = 0o600

// Entry is the store's belief about the calendar event for one thread.
type Entry struct {
	// EventID is the external event identifier, or calendar.UnknownEventID
	// when the event exists but cannot be addressed.
	EventID     string          `json:"event_id"`
	SyncedAt    time.Time       `json:"synced_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	IssueNumber int             `json:"issue_number,omitempty"`
	Fingerprint string          `json:"hash"`
	Priority    thread.Priority `json:"priority"`
}

// Counters holds cumulative lifetime mutation counts across all runs.
type Counters struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// State is the whole persisted store. An entry exists if and only if the
// tool currently believes a live calendar event exists for that thread.
type State struct {
	Threads  map[string]Entry `json:"synced_threads"`
	LastSync *time.Time       `json:"last_sync"`
	Lifetime Counters         `json:"sync_stats"`
}

// New returns a fresh empty state.
func New() *State {
	return &State{Threads: make(map[string]Entry)}
}

// Load reads the state from path. A missing file is not an error: the first
// run starts from a fresh empty state.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path) //nolint:gosec // state path from trusted config
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	if st.Threads == nil {
		st.Threads = make(map[string]Entry)
	}
	return &st, nil
}

// Save stamps the last-run timestamp and persists the whole state with
// write-new-then-replace semantics, so a crash mid-save leaves the previous
// file intact and a concurrent load never sees a truncated file.
func (s *State) Save(path string) error {
	now := time.Now().UTC()
	s.LastSync = &now

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, fileMode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting state file mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// Keys returns the tracked thread keys in sorted order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.Threads))
	for k := range s.Threads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CountByPriority returns the number of tracked entries per priority rank.
func (s *State) CountByPriority() map[thread.Priority]int {
	counts := make(map[thread.Priority]int, len(thread.Priorities))
	for _, e := range s.Threads {
		p := e.Priority
		if p == "" {
			p = thread.P4
		}
		counts[p]++
	}
	return counts
}
