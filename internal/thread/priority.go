// Package thread handles task thread records and their meta.json documents.
package thread

import "strings"

// Priority is the canonical priority rank of a thread, P1 (most urgent)
// through P4. A record's raw priority field may be "P2", "2", "priority-2",
// or a bare number; Normalize collapses all of them to one rank.
type Priority string

// Canonical priority ranks, highest urgency first.
const (
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
	P4 Priority = "P4"
)

// Priorities lists the canonical ranks in display order.
var Priorities = []Priority{P1, P2, P3, P4}

// priorityEmoji maps ranks to their display emoji.
var priorityEmoji = map[Priority]string{
	P1: "🔴",
	P2: "🟠",
	P3: "🟡",
	P4: "⚪",
}

// defaultOffsetDays maps ranks to the fallback deadline offset used when no
// deadline can be resolved from the record itself. P4 has no fixed offset;
// it uses the configured default.
var defaultOffsetDays = map[Priority]int{
	P1: 3,
	P2: 7,
	P3: 14,
}

// NormalizePriority collapses a raw priority value to a canonical rank.
// Unrecognized or empty values normalize to P4.
func NormalizePriority(raw string) Priority {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "P1", "1", "PRIORITY-1":
		return P1
	case "P2", "2", "PRIORITY-2":
		return P2
	case "P3", "3", "PRIORITY-3":
		return P3
	default:
		return P4
	}
}

// Emoji returns the display emoji for the rank.
func (p Priority) Emoji() string {
	if e, ok := priorityEmoji[p]; ok {
		return e
	}
	return priorityEmoji[P4]
}

// DefaultOffsetDays returns the fallback deadline offset in days for the
// rank. Ranks without a fixed offset (P4 and anything unrecognized) return
// the given default.
func (p Priority) DefaultOffsetDays(defaultDays int) int {
	if d, ok := defaultOffsetDays[p]; ok {
		return d
	}
	return defaultDays
}
