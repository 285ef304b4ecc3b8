package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/data/store"
	"github.com/penwyp/go-ontrack/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Logging related
	debug bool

	// Config and data paths
	configPath string
	dataPath   string
	backend    string

	timezone string

	rootCmd = &cobra.Command{
		Use:   "go-ontrack",
		Short: "Track where your time goes, program by program",
		Long: `go-ontrack records how long each program is in focus and reports it as
hourly or daily charts, category breakdowns and summaries.

Examples:
  xdotool-watch | go-ontrack track                      # Track focus changes read from stdin
  go-ontrack track --command 'my-focus-probe'           # Poll a command for the active program
  go-ontrack report activity --from 7d --step day       # Daily activity for the last week
  go-ontrack report activity --split-program -o json    # Stacked per-program chart as JSON
  go-ontrack report pie --split-category                # Time share per category
  go-ontrack programs set code --category Productivity  # Categorize a program`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

const (
	defaultLogFile = "~/.go-ontrack/logs/app.log"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default ~/.go-ontrack/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "",
		"Profile location, overriding [storage] path")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "",
		"Storage backend, overriding [storage] backend (json, sqlite)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone for time buckets (e.g., Asia/Shanghai, UTC); defaults to the config value")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
}

func setup(cmd *cobra.Command, args []string) error {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}

	logFile := expandPath(defaultLogFile)
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := util.InitLogger(logLevel, logFile, debug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	util.LogDebug("Command started", util.F("command", cmd.CommandPath()))
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

// resolvedConfigPath returns the --config value or the default location
func resolvedConfigPath() string {
	if configPath != "" {
		return expandPath(configPath)
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file, applies the storage and timezone
// overrides from the command line and installs the timezone. A config file
// that cannot be read or parsed is logged and replaced by the defaults.
func loadConfig() (*config.Config, error) {
	path := resolvedConfigPath()
	result, err := config.LoadFrom(path)
	if err != nil {
		util.LogErrorf("Using default config: %s: %v", path, err)
		result = &config.LoadResult{Config: config.DefaultConfig()}
	}
	for _, w := range result.Warnings {
		util.LogWarnf("%s: %s", path, w)
	}

	cfg := result.Config
	if dataPath != "" {
		cfg.Storage.Path = expandPath(dataPath)
	}
	if backend != "" {
		cfg.Storage.Backend = strings.ToLower(backend)
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if err := util.InitializeTimeProvider(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return &cfg, nil
}

// openProfile loads config, store and profile together. The caller closes
// the returned store.
func openProfile() (*profile.Profile, store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open profile store: %w", err)
	}
	p, err := profile.Load(st, cfg)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return p, st, nil
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
