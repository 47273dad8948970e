package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShawnOwen/threadcal/internal/clierr"
	"github.com/ShawnOwen/threadcal/internal/output"
	"github.com/ShawnOwen/threadcal/internal/state"
	"github.com/ShawnOwen/threadcal/internal/syncer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted sync state",
	Long: `Displays lifetime sync counters, the last run timestamp, and the tracked
calendar events, without touching the calendar.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the JSON envelope for the status command.
type statusReport struct {
	Summary output.Summary    `json:"summary"`
	Entries []output.EntryRow `json:"entries"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return clierr.Newf(clierr.StateError, "loading sync state: %v", err)
	}

	// Status reports lifetime counters rather than a single run's stats.
	lifetime := syncer.Stats{
		Created: st.Lifetime.Created,
		Updated: st.Lifetime.Updated,
		Deleted: st.Lifetime.Deleted,
		Errors:  st.Lifetime.Errors,
	}
	summary := output.BuildSummary(lifetime, st, false)
	entries := output.BuildEntries(st)

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, statusReport{Summary: summary, Entries: entries})
	case output.FormatCompact:
		output.SummaryCompact(os.Stdout, summary)
		output.EntriesCompact(os.Stdout, entries)
		return nil
	default:
		output.SummaryTable(os.Stdout, summary)
		fmt.Fprintln(os.Stdout)
		output.EntriesTable(os.Stdout, entries)
		return nil
	}
}
