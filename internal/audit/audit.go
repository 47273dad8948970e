// Package audit keeps a best-effort JSONL trail of calendar mutations next
// to the sync state file.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	logFileName   = "sync-activity.jsonl"
	logFileMode   = 0o600
	maxLogEntries = 10000 // truncate oldest entries when log exceeds this size

	// minEntryBytes is a lower bound on a serialized entry line. Files
	// smaller than maxLogEntries*minEntryBytes cannot exceed the cap, so
	// appends skip the line scan entirely.
	minEntryBytes = 48
)

// Entry represents a single sync activity log entry.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Thread    string    `json:"thread"`
	Detail    string    `json:"detail,omitempty"`
}

// Append appends a log entry to the activity log in dir.
// If the log exceeds maxLogEntries, the oldest entries are truncated.
func Append(dir string, entry Entry) error {
	path := filepath.Join(dir, logFileName)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode) //nolint:gosec // log path from trusted workspace dir
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing log entry: %w", err)
	}

	// Truncate if needed (best-effort; errors are non-fatal).
	_ = truncateLogIfNeeded(path)

	return nil
}

// truncateLogIfNeeded reads the log file and, if it exceeds maxLogEntries,
// rewrites it keeping only the most recent entries. A cheap size check
// screens out small files before any line counting happens.
func truncateLogIfNeeded(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() < int64(maxLogEntries)*minEntryBytes {
		return nil
	}

	f, err := os.Open(path) //nolint:gosec // trusted path
	if err != nil {
		return err
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	_ = f.Close()

	if err := scanner.Err(); err != nil {
		return err
	}

	if len(lines) <= maxLogEntries {
		return nil
	}

	// Keep only the last maxLogEntries lines.
	lines = lines[len(lines)-maxLogEntries:]

	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	return os.WriteFile(path, []byte(buf.String()), logFileMode)
}

// Record appends a mutation entry. Errors are silently discarded because
// logging should never fail a sync run.
func Record(dir, action, threadKey, detail string) {
	entry := Entry{
		Timestamp: time.Now(),
		Action:    action,
		Thread:    threadKey,
		Detail:    detail,
	}
	_ = Append(dir, entry)
}
