// Package config handles threadcal workspace configuration.
package config

import "github.com/ShawnOwen/threadcal/internal/thread"

const (
	// DefaultDir is the default workspace directory name.
	DefaultDir = "threadcal"
	// DefaultThreadsDir is the default threads subdirectory name.
	DefaultThreadsDir = "threads"
	// DefaultStateFile is the default sync state filename.
	DefaultStateFile = "calendar-sync-state.json"
	// DefaultTimeout is the default per-call calendar command timeout.
	DefaultTimeout = "30s"
	// DefaultDeadlineDays is the fallback deadline offset for P4 threads.
	DefaultDeadlineDays = 7
	// DefaultGitHubRepo is the repository used for issue links in event
	// descriptions.
	DefaultGitHubRepo = "ShawnOwen/stacks-ranking-priorities"

	// ConfigFileName is the name of the config file within the workspace.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 1
)

// DefaultColors maps priority ranks to calendar color codes (slices and maps
// cannot be const).
var DefaultColors = map[string]string{
	string(thread.P1): "11", // red
	string(thread.P2): "6",  // orange
	string(thread.P3): "5",  // yellow
	string(thread.P4): "8",  // gray
}

// DefaultCalendarCommand is the external calendar CLI invoked for mutations.
var DefaultCalendarCommand = []string{"python3", "scripts/google-workspace/google_calendar.py"}
