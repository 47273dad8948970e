package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShawnOwen/threadcal/internal/state"
	"github.com/ShawnOwen/threadcal/internal/syncer"
	"github.com/ShawnOwen/threadcal/internal/thread"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Priority colors matching the calendar color semantics.
	priorityStyles = map[string]lipgloss.Style{
		string(thread.P1): lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		string(thread.P2): lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		string(thread.P3): lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		string(thread.P4): lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
)

// DisableColor strips all styling from table output.
func DisableColor() {
	titleStyle = lipgloss.NewStyle()
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	errorStyle = lipgloss.NewStyle()
	priorityStyles = map[string]lipgloss.Style{}
}

// PriorityCount is the number of tracked entries at one priority rank.
type PriorityCount struct {
	Priority thread.Priority `json:"priority"`
	Count    int             `json:"count"`
}

// Summary is the run report: this run's stats plus the tracked-state totals.
type Summary struct {
	Stats      syncer.Stats    `json:"stats"`
	Tracked    int             `json:"tracked"`
	LastSync   *time.Time      `json:"last_sync"`
	Priorities []PriorityCount `json:"priorities,omitempty"`
	DryRun     bool            `json:"dry_run,omitempty"`
}

// EntryRow is one tracked entry, flattened for display.
type EntryRow struct {
	Thread      string          `json:"thread"`
	Priority    thread.Priority `json:"priority"`
	EventID     string          `json:"event_id"`
	SyncedAt    time.Time       `json:"synced_at"`
	IssueNumber int             `json:"issue_number,omitempty"`
}

// BuildSummary assembles the run report from this run's stats and the state.
func BuildSummary(stats syncer.Stats, st *state.State, dryRun bool) Summary {
	counts := st.CountByPriority()
	var priorities []PriorityCount
	for _, p := range thread.Priorities {
		if counts[p] > 0 {
			priorities = append(priorities, PriorityCount{Priority: p, Count: counts[p]})
		}
	}

	return Summary{
		Stats:      stats,
		Tracked:    len(st.Threads),
		LastSync:   st.LastSync,
		Priorities: priorities,
		DryRun:     dryRun,
	}
}

// BuildEntries flattens the tracked entries in sorted key order.
func BuildEntries(st *state.State) []EntryRow {
	rows := make([]EntryRow, 0, len(st.Threads))
	for _, key := range st.Keys() {
		e := st.Threads[key]
		rows = append(rows, EntryRow{
			Thread:      key,
			Priority:    e.Priority,
			EventID:     e.EventID,
			SyncedAt:    e.SyncedAt,
			IssueNumber: e.IssueNumber,
		})
	}
	return rows
}

// SummaryTable renders the run report as a formatted block.
func SummaryTable(w io.Writer, s Summary) {
	title := "Calendar Sync Summary"
	if s.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w, titleStyle.Render(title))

	printCount(w, "Created", s.Stats.Created)
	printCount(w, "Updated", s.Stats.Updated)
	printCount(w, "Deleted", s.Stats.Deleted)
	printCount(w, "Skipped", s.Stats.Skipped)
	errs := strconv.Itoa(s.Stats.Errors)
	if s.Stats.Errors > 0 {
		errs = errorStyle.Render(errs)
	}
	fmt.Fprintf(w, "  %-10s %s\n", "Errors:", errs)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-10s %d\n", "Tracked:", s.Tracked)
	last := dimStyle.Render("never")
	if s.LastSync != nil {
		last = s.LastSync.Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(w, "  %-10s %s\n", "Last sync:", last)

	if len(s.Priorities) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("Tracked by priority"))
		for _, pc := range s.Priorities {
			fmt.Fprintf(w, "  %s %s: %d events\n",
				pc.Priority.Emoji(), styledPriority(pc.Priority), pc.Count)
		}
	}
}

// SummaryCompact renders the run report as two lines.
func SummaryCompact(w io.Writer, s Summary) {
	line := fmt.Sprintf("created=%d updated=%d deleted=%d skipped=%d errors=%d",
		s.Stats.Created, s.Stats.Updated, s.Stats.Deleted, s.Stats.Skipped, s.Stats.Errors)
	if s.DryRun {
		line = "dry-run " + line
	}
	fmt.Fprintln(w, line)

	last := "never"
	if s.LastSync != nil {
		last = s.LastSync.Format("2006-01-02T15:04:05Z07:00")
	}
	fmt.Fprintf(w, "tracked=%d last_sync=%s\n", s.Tracked, last)
}

// EntriesTable renders the tracked entries as a formatted table.
func EntriesTable(w io.Writer, rows []EntryRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No tracked events."))
		return
	}

	// Calculate column widths.
	const pad = 2
	threadW, eventW := 8, 10
	for _, r := range rows {
		threadW = max(threadW, len(r.Thread)+pad)
		eventW = max(eventW, min(len(r.EventID)+pad, 30)) //nolint:mnd // max event id column width
	}

	header := fmt.Sprintf("%-*s %-8s %-*s %-12s %s", threadW, "THREAD", "PRIORITY", eventW, "EVENT", "SYNCED", "ISSUE")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for _, r := range rows {
		eventID := r.EventID
		const maxEventID = 28
		if len(eventID) > maxEventID {
			eventID = eventID[:maxEventID-3] + "..."
		}
		issue := dimStyle.Render("--")
		if r.IssueNumber > 0 {
			issue = "#" + strconv.Itoa(r.IssueNumber)
		}

		row := fmt.Sprintf("%-*s %s %-*s %-12s %s",
			threadW, r.Thread,
			padRight(styledPriority(r.Priority), 8), //nolint:mnd // priority column width
			eventW, eventID,
			r.SyncedAt.Format("2006-01-02"),
			issue)
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// EntriesCompact renders tracked entries one per line.
func EntriesCompact(w io.Writer, rows []EntryRow) {
	for _, r := range rows {
		line := r.Thread + " [" + string(r.Priority) + "] " + r.EventID
		if r.IssueNumber > 0 {
			line += " #" + strconv.Itoa(r.IssueNumber)
		}
		fmt.Fprintln(w, line)
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printCount(w io.Writer, label string, n int) {
	fmt.Fprintf(w, "  %-10s %d\n", label+":", n)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// styledPriority renders a priority rank using its style, if colors are on.
func styledPriority(p thread.Priority) string {
	if st, ok := priorityStyles[string(p)]; ok {
		return st.Render(string(p))
	}
	return string(p)
}
