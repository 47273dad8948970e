package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShawnOwen/threadcal/internal/config"
	"github.com/ShawnOwen/threadcal/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the threads directory and sync on changes",
	Long: `Runs an initial reconciliation pass, then watches the threads directory
and re-runs a pass whenever records change. Stops on interrupt.`,
	RunE: runWatch,
}

func init() {
	addSyncFlags(watchCmd.Flags())
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Coalesce watcher callbacks into a single pending trigger so sync
	// passes never overlap.
	changes := make(chan struct{}, 1)
	w, err := watcher.New([]string{cfg.ThreadsPath()}, func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	go w.Run(ctx, func(err error) {
		fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
	})

	runOnce := func() {
		summary, err := runSyncPass(ctx, cfg, dryRun)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if err := printSummary(summary); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		watchThreadDirs(cfg, w)
	}

	runOnce()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			runOnce()
		}
	}
}

// watchThreadDirs registers each thread subdirectory with the watcher.
// meta.json edits happen inside the subdirectories, which the top-level
// watch does not see.
func watchThreadDirs(cfg *config.Config, w *watcher.Watcher) {
	entries, err := os.ReadDir(cfg.ThreadsPath())
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = w.Add(filepath.Join(cfg.ThreadsPath(), e.Name()))
		}
	}
}
