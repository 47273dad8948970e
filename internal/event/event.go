// Package event renders the desired calendar content for a thread record
// and fingerprints the attributes that content depends on.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShawnOwen/threadcal/internal/date"
	"github.com/ShawnOwen/threadcal/internal/thread"
)

// Event windows are placeholders: one hour on the morning of the due date.
const (
	startHour = 9
	endHour   = 10
)

// Content is the desired calendar state for one thread: what the event
// should look like, independent of whether it exists yet.
type Content struct {
	Title       string
	Description string
	ColorID     string
	Start       time.Time
	End         time.Time
}

// Builder renders Content deterministically from thread records.
type Builder struct {
	// Repo is the owner/name GitHub repository used for issue links.
	Repo string
	// ThreadsDir is the local threads path used for thread links.
	ThreadsDir string
	// Colors maps priority ranks to calendar color codes.
	Colors map[string]string
}

// Build renders the full desired calendar content for a record due on the
// given date.
func (b *Builder) Build(key string, rec *thread.Record, due date.Date) Content {
	return Content{
		Title:       b.Title(key, rec),
		Description: b.Description(key, rec, due),
		ColorID:     b.ColorID(rec),
		Start:       due.At(startHour),
		End:         due.At(endHour),
	}
}

// Title renders the event title: priority emoji and rank, the external issue
// number when present, and the thread name.
func (b *Builder) Title(key string, rec *thread.Record) string {
	name := rec.DisplayName(key)
	p := rec.NormalizedPriority()

	if n := rec.Sync.IssueNumber; n > 0 {
		return fmt.Sprintf("%s %s: #%d - %s", p.Emoji(), p, n, name)
	}
	return fmt.Sprintf("%s %s: %s", p.Emoji(), p, name)
}

// Description renders the structured multi-line event description: thread
// name, priority, a links section, the resolved deadline, and the status.
func (b *Builder) Description(key string, rec *thread.Record, due date.Date) string {
	name := rec.DisplayName(key)
	issue := rec.Sync.IssueNumber

	parts := []string{
		"📋 Task Thread: " + name,
		fmt.Sprintf("Priority: %s", rec.NormalizedPriority()),
		"",
		"🔗 Links:",
	}

	if issue > 0 {
		parts = append(parts, fmt.Sprintf("• GitHub: https://github.com/%s/issues/%d", b.Repo, issue))
	}
	if url := rec.Sync.GDriveFolderURL; url != "" {
		parts = append(parts, "• GDrive: "+url)
	}

	parts = append(parts,
		fmt.Sprintf("• Thread: %s/%s/", b.ThreadsDir, key),
		"• Session: "+sessionID(key, issue),
		"",
		"📅 Deadline: "+due.String(),
		"📊 Status: "+rec.Status,
	)

	return strings.Join(parts, "\n")
}

// ColorID returns the calendar color code for the record's priority rank,
// defaulting to the lowest-urgency color.
func (b *Builder) ColorID(rec *thread.Record) string {
	p := rec.NormalizedPriority()
	if code, ok := b.Colors[string(p)]; ok {
		return code
	}
	if code, ok := b.Colors[string(thread.P4)]; ok {
		return code
	}
	return "8"
}

// sessionID derives a synthetic agent session identifier from the issue
// number, falling back to the thread key.
func sessionID(key string, issue int) string {
	if issue > 0 {
		return fmt.Sprintf("agent:main:task-thread:%d", issue)
	}
	return "agent:main:task-thread:" + key
}
