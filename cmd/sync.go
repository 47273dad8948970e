package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ShawnOwen/threadcal/internal/calendar"
	"github.com/ShawnOwen/threadcal/internal/clierr"
	"github.com/ShawnOwen/threadcal/internal/config"
	"github.com/ShawnOwen/threadcal/internal/event"
	"github.com/ShawnOwen/threadcal/internal/filelock"
	"github.com/ShawnOwen/threadcal/internal/output"
	"github.com/ShawnOwen/threadcal/internal/state"
	"github.com/ShawnOwen/threadcal/internal/syncer"
	"github.com/ShawnOwen/threadcal/internal/thread"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass",
	Long: `Reconciles all thread records against the calendar: cleans up orphaned
entries, then creates, updates, deletes, or skips an event per thread.
Exits non-zero if any per-thread error occurred.`,
	RunE: runSync,
}

func init() {
	addSyncFlags(syncCmd.Flags())
	rootCmd.AddCommand(syncCmd)
}

// addSyncFlags registers the flags shared by sync and watch.
func addSyncFlags(fs *pflag.FlagSet) {
	fs.Bool("dry-run", false, "compute decisions without calling the calendar or writing state")
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	summary, err := runSyncPass(cmd.Context(), cfg, dryRun)
	if err != nil {
		return err
	}

	if err := printSummary(summary); err != nil {
		return err
	}

	if summary.Stats.Errors > 0 {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}

// runSyncPass executes one reconciliation pass against the workspace and
// returns the run summary. Unless dryRun is set, the state file lock is held
// for the duration and the updated state is persisted at the end.
func runSyncPass(ctx context.Context, cfg *config.Config, dryRun bool) (output.Summary, error) {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return output.Summary{}, clierr.Newf(clierr.StateError, "loading sync state: %v", err)
	}

	if !dryRun {
		unlock, lockErr := filelock.Lock(cfg.StatePath() + ".lock")
		if lockErr != nil {
			return output.Summary{}, fmt.Errorf("locking state file: %w", lockErr)
		}
		defer func() { _ = unlock() }()
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rec := &syncer.Reconciler{
		Store:   thread.NewStore(cfg.ThreadsPath()),
		Gateway: calendar.NewCommandGateway(cfg.Calendar.Command, cfg.TimeoutDuration()),
		State:   st,
		Builder: &event.Builder{
			Repo:       cfg.GitHubRepo,
			ThreadsDir: cfg.ThreadsPath(),
			Colors:     cfg.Calendar.Colors,
		},
		DefaultDeadlineDays: cfg.DefaultDeadlineDays,
		AuditDir:            cfg.Dir(),
		Log:                 os.Stderr,
		DryRun:              dryRun,
	}

	stats, err := rec.Run(ctx)
	if err != nil {
		return output.Summary{}, err
	}

	if !dryRun {
		if err := st.Save(cfg.StatePath()); err != nil {
			return output.Summary{}, clierr.Newf(clierr.StateError, "saving sync state: %v", err)
		}
	}

	return output.BuildSummary(stats, st, dryRun), nil
}

func printSummary(s output.Summary) error {
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, s)
	case output.FormatCompact:
		output.SummaryCompact(os.Stdout, s)
		return nil
	default:
		output.SummaryTable(os.Stdout, s)
		return nil
	}
}
