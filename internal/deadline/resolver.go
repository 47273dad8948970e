// Package deadline derives an absolute due date for a thread record from
// multiple heterogeneous sources, in priority order, always terminating with
// a priority-keyed default. Resolution never fails: every strategy has a
// fallback.
package deadline

import (
	"strings"
	"time"

	"github.com/ShawnOwen/threadcal/internal/date"
	"github.com/ShawnOwen/threadcal/internal/thread"
)

// strategy attempts to derive a date from one source on the record.
// Strategies are tried in fixed order; the first success wins.
type strategy func(rec *thread.Record, now time.Time) (date.Date, bool)

var strategies = []strategy{
	fromDeadlineField,
	fromDueDateField,
	fromLabels,
	fromDescription,
	fromNotes,
}

// timestampLayouts are accepted for the explicit deadline field.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Resolve returns the due date for a record. When no strategy matches, the
// result is now plus an offset keyed by the record's normalized priority
// (P1 3 days, P2 7, P3 14, otherwise defaultDays).
func Resolve(rec *thread.Record, now time.Time, defaultDays int) date.Date {
	for _, s := range strategies {
		if d, ok := s(rec, now); ok {
			return d
		}
	}

	days := rec.NormalizedPriority().DefaultOffsetDays(defaultDays)
	return date.FromTime(now).AddDays(days)
}

// fromDeadlineField parses the explicit deadline field as a timestamp and,
// failing that, re-attempts it as free text.
func fromDeadlineField(rec *thread.Record, now time.Time) (date.Date, bool) {
	if rec.Deadline == "" {
		return date.Date{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, rec.Deadline); err == nil {
			return date.FromTime(t), true
		}
	}
	return ExtractFromText(rec.Deadline, now)
}

// fromDueDateField parses the alternate due_date field as a plain date.
func fromDueDateField(rec *thread.Record, _ time.Time) (date.Date, bool) {
	if rec.DueDate == "" {
		return date.Date{}, false
	}
	d, err := date.Parse(rec.DueDate)
	if err != nil {
		return date.Date{}, false
	}
	return d, true
}

// fromLabels scans labels in their original order for deadline encodings:
// "deadline:YYYY-MM-DD", "due-YYYY-MM-DD", and the relative tokens
// "this-week" / "next-week".
func fromLabels(rec *thread.Record, now time.Time) (date.Date, bool) {
	for _, label := range rec.Labels {
		l := strings.ToLower(label)

		if rest, ok := strings.CutPrefix(l, "deadline:"); ok {
			if d, err := date.Parse(rest); err == nil {
				return d, true
			}
		}

		if rest, ok := strings.CutPrefix(l, "due-"); ok {
			if d, err := date.Parse(rest); err == nil {
				return d, true
			}
		}

		switch l {
		case "this-week":
			return date.FromTime(now).AddDays(daysUntilWeekEnd(now)), true
		case "next-week":
			return date.FromTime(now).AddDays(daysUntilWeekEnd(now) + 7), true
		}
	}
	return date.Date{}, false
}

func fromDescription(rec *thread.Record, now time.Time) (date.Date, bool) {
	return ExtractFromText(rec.Description, now)
}

func fromNotes(rec *thread.Record, now time.Time) (date.Date, bool) {
	return ExtractFromText(rec.Notes, now)
}

// daysUntilWeekEnd returns the number of days until the end of the current
// week (the upcoming Monday).
func daysUntilWeekEnd(now time.Time) int {
	// time.Weekday counts Sunday as 0; shift so Monday is 0.
	wd := (int(now.Weekday()) + 6) % 7
	return 7 - wd
}
