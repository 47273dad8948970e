package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ShawnOwen/threadcal/internal/clierr"
	"github.com/ShawnOwen/threadcal/internal/thread"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no threadcal workspace found (run 'threadcal init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the threadcal workspace configuration.
type Config struct {
	Version             int            `yaml:"version"`
	ThreadsDir          string         `yaml:"threads_dir"`
	StateFile           string         `yaml:"state_file"`
	Calendar            CalendarConfig `yaml:"calendar"`
	GitHubRepo          string         `yaml:"github_repo,omitempty"`
	DefaultDeadlineDays int            `yaml:"default_deadline_days"`

	// dir is the absolute path to the workspace directory (not serialized).
	dir string `yaml:"-"`
}

// CalendarConfig describes the external calendar command and its behavior.
type CalendarConfig struct {
	// Command is the argv prefix of the calendar CLI; the operation name
	// and its arguments are appended per call.
	Command []string          `yaml:"command"`
	Timeout string            `yaml:"timeout,omitempty"`
	Colors  map[string]string `yaml:"colors,omitempty"`
}

// Dir returns the absolute path to the workspace directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the workspace directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ThreadsPath returns the absolute path to the threads directory.
func (c *Config) ThreadsPath() string {
	return filepath.Join(c.dir, c.ThreadsDir)
}

// StatePath returns the absolute path to the sync state file.
func (c *Config) StatePath() string {
	return filepath.Join(c.dir, c.StateFile)
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// NewDefault creates a Config with default values.
func NewDefault() *Config {
	colors := make(map[string]string, len(DefaultColors))
	for k, v := range DefaultColors {
		colors[k] = v
	}
	return &Config{
		Version:    CurrentVersion,
		ThreadsDir: DefaultThreadsDir,
		StateFile:  DefaultStateFile,
		Calendar: CalendarConfig{
			Command: append([]string{}, DefaultCalendarCommand...),
			Timeout: DefaultTimeout,
			Colors:  colors,
		},
		GitHubRepo:          DefaultGitHubRepo,
		DefaultDeadlineDays: DefaultDeadlineDays,
	}
}

// TimeoutDuration parses the calendar timeout string into a time.Duration.
// Returns the default timeout if the field is empty or unparseable.
func (c *Config) TimeoutDuration() time.Duration {
	fallback, _ := time.ParseDuration(DefaultTimeout)
	if c.Calendar.Timeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.Calendar.Timeout)
	if err != nil {
		return fallback
	}
	return d
}

// ColorFor returns the calendar color code for a priority rank. Unrecognized
// ranks get the lowest-urgency color.
func (c *Config) ColorFor(p thread.Priority) string {
	if code, ok := c.Calendar.Colors[string(p)]; ok {
		return code
	}
	if code, ok := c.Calendar.Colors[string(thread.P4)]; ok {
		return code
	}
	return DefaultColors[string(thread.P4)]
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.ThreadsDir == "" {
		return fmt.Errorf("%w: threads_dir is required", ErrInvalid)
	}
	if c.StateFile == "" {
		return fmt.Errorf("%w: state_file is required", ErrInvalid)
	}
	if len(c.Calendar.Command) == 0 {
		return fmt.Errorf("%w: calendar.command is required", ErrInvalid)
	}
	if c.Calendar.Timeout != "" {
		if _, err := time.ParseDuration(c.Calendar.Timeout); err != nil {
			return fmt.Errorf("%w: invalid calendar.timeout %q: %w", ErrInvalid, c.Calendar.Timeout, err)
		}
	}
	if c.DefaultDeadlineDays < 1 {
		return fmt.Errorf("%w: default_deadline_days must be >= 1", ErrInvalid)
	}
	return nil
}

// Init creates a new threadcal workspace in the given directory with default
// settings. It creates the workspace directory, threads subdirectory, and
// config file.
func Init(dir string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault()
	cfg.SetDir(absDir)

	if err := os.MkdirAll(cfg.ThreadsPath(), dirMode); err != nil {
		return nil, fmt.Errorf("creating threads directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads and validates a config from the given workspace directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	if cfg.DefaultDeadlineDays == 0 {
		cfg.DefaultDeadlineDays = DefaultDeadlineDays
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a workspace directory
// containing config.yml. Returns the absolute path to the workspace.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		// Also check if we're inside the workspace directory itself.
		candidate = filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.WorkspaceNotFound,
				"no threadcal workspace found (run 'threadcal init' to create one)")
		}
		dir = parent
	}
}
