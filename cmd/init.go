package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShawnOwen/threadcal/internal/clierr"
	"github.com/ShawnOwen/threadcal/internal/config"
	"github.com/ShawnOwen/threadcal/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new threadcal workspace",
	Long:  `Creates a workspace directory with config.yml and a threads/ subdirectory.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringSlice("calendar-command", nil, "calendar CLI argv (comma-separated)")
	initCmd.Flags().String("github-repo", "", "owner/name repository for issue links")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	// Check if already initialized.
	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.WorkspaceAlreadyExists, "workspace already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	cfg, err := config.Init(absDir)
	if err != nil {
		return err
	}

	changed := false
	if argv, _ := cmd.Flags().GetStringSlice("calendar-command"); len(argv) > 0 {
		cfg.Calendar.Command = argv
		changed = true
	}
	if repo, _ := cmd.Flags().GetString("github-repo"); repo != "" {
		cfg.GitHubRepo = repo
		changed = true
	}
	if changed {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	}

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status":  "initialized",
			"dir":     absDir,
			"config":  cfg.ConfigPath(),
			"threads": cfg.ThreadsPath(),
			"command": strings.Join(cfg.Calendar.Command, " "),
		})
	}

	output.Messagef(os.Stdout, "Initialized workspace in %s", absDir)
	output.Messagef(os.Stdout, "  Config:   %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Threads:  %s", cfg.ThreadsPath())
	output.Messagef(os.Stdout, "  Command:  %s", strings.Join(cfg.Calendar.Command, " "))
	output.Messagef(os.Stdout, "  Hint:     Drop a <key>/meta.json under threads/ and run: threadcal sync")
	return nil
}
