package thread

import (
	"encoding/json"
	"slices"
	"strings"
)

// Record represents one task thread's meta.json document. Every field is
// optional: resolution never fails on absent data. Unknown fields are
// captured in Extra so rewriting a document never drops data.
type Record struct {
	Name        string
	Priority    string // raw value as written: "P2", "2", "priority-2", ...
	Status      string
	Deadline    string // raw deadline field, may be a timestamp or free text
	DueDate     string
	Labels      []string
	Description string
	Notes       string
	Sync        SyncInfo

	// Extra holds top-level fields this tool does not interpret.
	Extra map[string]json.RawMessage
}

// SyncInfo is the nested sync metadata block of a record.
type SyncInfo struct {
	IssueNumber      int
	GDriveFolderURL  string
	CalendarEventID  string
	CalendarSyncedAt string

	// Extra holds sync fields this tool does not interpret.
	Extra map[string]json.RawMessage
}

// terminalStatuses are the status values that mean a thread is finished and
// its calendar event should be removed.
var terminalStatuses = map[string]bool{
	"done":      true,
	"closed":    true,
	"completed": true,
}

// UnmarshalJSON decodes a record leniently: scalar fields tolerate numbers
// where strings are expected, and unrecognized fields are preserved verbatim.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.Extra = make(map[string]json.RawMessage)
	for key, raw := range fields {
		switch key {
		case "name":
			r.Name = asString(raw)
		case "priority":
			r.Priority = asString(raw)
		case "status":
			r.Status = asString(raw)
		case "deadline":
			r.Deadline = asString(raw)
		case "due_date":
			r.DueDate = asString(raw)
		case "labels":
			r.Labels = asStringSlice(raw)
		case "description":
			r.Description = asString(raw)
		case "notes":
			r.Notes = asString(raw)
		case "sync":
			if err := r.Sync.unmarshal(raw); err != nil {
				return err
			}
		default:
			r.Extra[key] = raw
		}
	}

	if r.Status == "" {
		r.Status = "active"
	}
	return nil
}

func (s *SyncInfo) unmarshal(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	s.Extra = make(map[string]json.RawMessage)
	for key, raw := range fields {
		switch key {
		case "github_issue_number":
			var n int
			if err := json.Unmarshal(raw, &n); err == nil {
				s.IssueNumber = n
			}
		case "gdrive_folder_url":
			s.GDriveFolderURL = asString(raw)
		case "calendar_event_id":
			s.CalendarEventID = asString(raw)
		case "calendar_synced_at":
			s.CalendarSyncedAt = asString(raw)
		default:
			s.Extra[key] = raw
		}
	}
	return nil
}

// DisplayName returns the record's name, falling back to the thread key.
func (r *Record) DisplayName(key string) string {
	if r.Name != "" {
		return r.Name
	}
	return key
}

// NormalizedPriority returns the canonical rank of the record's raw priority.
func (r *Record) NormalizedPriority() Priority {
	return NormalizePriority(r.Priority)
}

// Terminal reports whether the record's status means the thread is finished.
func (r *Record) Terminal() bool {
	return terminalStatuses[strings.ToLower(strings.TrimSpace(r.Status))]
}

// SortedLabels returns a copy of the labels in canonical (sorted) order.
func (r *Record) SortedLabels() []string {
	if len(r.Labels) == 0 {
		return nil
	}
	labels := make([]string, len(r.Labels))
	copy(labels, r.Labels)
	slices.Sort(labels)
	return labels
}

// asString decodes a JSON value as a string, rendering numbers and other
// scalars to their literal text. Objects and arrays yield "".
func asString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true"
		}
		return "false"
	}
	return ""
}

// asStringSlice decodes a JSON array into strings, coercing scalar elements.
func asStringSlice(raw json.RawMessage) []string {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, asString(e))
	}
	return out
}
