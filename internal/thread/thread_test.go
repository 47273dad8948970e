package thread

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalLenient(t *testing.T) {
	doc := `{
		"name": "Ship v2",
		"priority": 2,
		"status": "active",
		"deadline": "2026-03-01T00:00:00Z",
		"labels": ["backend", "due-2026-03-01"],
		"custom_field": {"nested": true},
		"sync": {
			"github_issue_number": 273,
			"gdrive_folder_url": "https://drive.example/folder",
			"agent_session": "abc"
		}
	}`

	var rec Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if rec.Name != "Ship v2" {
		t.Errorf("Name = %q, want %q", rec.Name, "Ship v2")
	}
	if rec.Priority != "2" {
		t.Errorf("Priority = %q, want %q (numeric coerced to string)", rec.Priority, "2")
	}
	if rec.Sync.IssueNumber != 273 {
		t.Errorf("IssueNumber = %d, want 273", rec.Sync.IssueNumber)
	}
	if rec.Sync.GDriveFolderURL != "https://drive.example/folder" {
		t.Errorf("GDriveFolderURL = %q", rec.Sync.GDriveFolderURL)
	}
	if _, ok := rec.Extra["custom_field"]; !ok {
		t.Error("unknown top-level field not captured in Extra")
	}
	if _, ok := rec.Sync.Extra["agent_session"]; !ok {
		t.Error("unknown sync field not captured in Extra")
	}
}

func TestUnmarshalDefaultsStatusToActive(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`{"name": "x"}`), &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if rec.Status != "active" {
		t.Errorf("Status = %q, want %q", rec.Status, "active")
	}
	if rec.Terminal() {
		t.Error("empty record must not be terminal")
	}
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		raw  string
		want Priority
	}{
		{"P1", P1},
		{"p1", P1},
		{"1", P1},
		{"priority-1", P1},
		{"PRIORITY-1", P1},
		{"P2", P2},
		{"2", P2},
		{"3", P3},
		{"P4", P4},
		{"4", P4},
		{"", P4},
		{"urgent", P4},
		{"5", P4},
	}
	for _, tt := range tests {
		if got := NormalizePriority(tt.raw); got != tt.want {
			t.Errorf("NormalizePriority(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestDefaultOffsetDays(t *testing.T) {
	if got := P1.DefaultOffsetDays(7); got != 3 {
		t.Errorf("P1 offset = %d, want 3", got)
	}
	if got := P2.DefaultOffsetDays(7); got != 7 {
		t.Errorf("P2 offset = %d, want 7", got)
	}
	if got := P3.DefaultOffsetDays(7); got != 14 {
		t.Errorf("P3 offset = %d, want 14", got)
	}
	if got := P4.DefaultOffsetDays(9); got != 9 {
		t.Errorf("P4 offset = %d, want default 9", got)
	}
}

func TestTerminal(t *testing.T) {
	for _, status := range []string{"done", "closed", "completed", "Done", "CLOSED"} {
		rec := Record{Status: status}
		if !rec.Terminal() {
			t.Errorf("status %q should be terminal", status)
		}
	}
	for _, status := range []string{"active", "in-progress", "blocked", ""} {
		rec := Record{Status: status}
		if rec.Terminal() {
			t.Errorf("status %q should not be terminal", status)
		}
	}
}

func TestSortedLabels(t *testing.T) {
	rec := Record{Labels: []string{"zeta", "alpha", "mid"}}
	got := rec.SortedLabels()

	if got[0] != "alpha" || got[1] != "mid" || got[2] != "zeta" {
		t.Errorf("SortedLabels = %v, want sorted order", got)
	}
	if rec.Labels[0] != "zeta" {
		t.Error("SortedLabels must not mutate the original slice")
	}
}

func TestDisplayNameFallsBackToKey(t *testing.T) {
	rec := Record{}
	if got := rec.DisplayName("thread-42"); got != "thread-42" {
		t.Errorf("DisplayName = %q, want key fallback", got)
	}
	rec.Name = "Real name"
	if got := rec.DisplayName("thread-42"); got != "Real name" {
		t.Errorf("DisplayName = %q, want %q", got, "Real name")
	}
}
