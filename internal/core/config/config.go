package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	AutosaveInterval     float64           `toml:"autosave_interval"`
	UpdateInterval       float64           `toml:"update_interval"`
	AFKTimeout           float64           `toml:"afk_timeout"`
	Timezone             string            `toml:"timezone"`
	Categories           []string          `toml:"categories"`
	DefaultCategory      string            `toml:"default_category"`
	AutohideSubstrings   []string          `toml:"autohide_substrings"`
	MaxPlotBuckets       int               `toml:"max_plot_buckets"`
	MaxPlotLabels        int               `toml:"max_plot_labels"`
	MinPieceFraction     float64           `toml:"min_piece_fraction"`
	MinPieceFractionBars float64           `toml:"min_piece_fraction_bars"`
	Colors               map[string]string `toml:"colors"`
	MiscColors           []string          `toml:"misc_colors"`
	Storage              StorageConfig     `toml:"storage"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

var defaultColors = map[string]string{
	"active":        "#55ff55",
	"idle":          "#ff7777",
	"afk":           "#55a0ff",
	"unselected":    "#dddddd",
	"text":          "#000000",
	"social":        "#88ff88",
	"productivity":  "#ff8888",
	"entertainment": "#8888ff",
	"miscellaneous": "#aaaaaa",
}

var defaultMiscColors = []string{
	"#faedcb", "#c9e4d3", "#c6def1", "#dbcdf0", "#f2c6de", "#f7d9c4",
	"#f2da3d", "#39a862", "#327ab3", "#583191", "#992c68", "#c97132",
	"#664a00", "#003614", "#002f54", "#1e004a", "#4a0028", "#3d1900",
}

func DefaultConfig() Config {
	colors := make(map[string]string, len(defaultColors))
	for k, v := range defaultColors {
		colors[k] = v
	}
	return Config{
		AutosaveInterval:     60,
		UpdateInterval:       1,
		AFKTimeout:           60,
		Timezone:             "Local",
		Categories:           []string{"Productivity", "Entertainment", "Social", "Miscellaneous"},
		DefaultCategory:      "Miscellaneous",
		AutohideSubstrings:   []string{`C:\`},
		MaxPlotBuckets:       100,
		MaxPlotLabels:        10,
		MinPieceFraction:     0.05,
		MinPieceFractionBars: 0.05,
		Colors:               colors,
		MiscColors:           append([]string(nil), defaultMiscColors...),
		Storage: StorageConfig{
			Backend: BackendJSON,
			Path:    "~/.go-ontrack/db.json",
		},
	}
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".go-ontrack", "config.toml")
}

// LoadFrom reads the config at path on top of DefaultConfig. A missing file
// yields the defaults. Unknown keys and out-of-range values are reported as
// warnings; only unreadable or unparsable files are errors.
func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadResult{Config: DefaultConfig()}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromString(string(data))
}

func LoadFromString(data string) (*LoadResult, error) {
	result := &LoadResult{Config: DefaultConfig()}
	if strings.TrimSpace(data) == "" {
		return result, nil
	}

	md, err := toml.Decode(data, &result.Config)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	for _, key := range md.Undecoded() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key.String()))
	}

	result.Warnings = append(result.Warnings, normalize(&result.Config)...)
	result.Warnings = append(result.Warnings, sanitize(&result.Config)...)
	return result, nil
}

// Save writes cfg to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// normalize repairs values that have an obvious fix and returns a warning
// for each repair.
func normalize(cfg *Config) []string {
	var warnings []string

	seen := make(map[string]bool, len(cfg.Categories))
	categories := cfg.Categories[:0:0]
	for _, c := range cfg.Categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
	}
	cfg.Categories = categories

	if cfg.DefaultCategory == "" && len(cfg.Categories) > 0 {
		cfg.DefaultCategory = cfg.Categories[len(cfg.Categories)-1]
		warnings = append(warnings, fmt.Sprintf("default_category is empty, using %q", cfg.DefaultCategory))
	}
	if cfg.DefaultCategory != "" && !seen[cfg.DefaultCategory] {
		cfg.Categories = append(cfg.Categories, cfg.DefaultCategory)
		warnings = append(warnings, fmt.Sprintf("default_category %q is not in categories, appending it", cfg.DefaultCategory))
	}

	if cfg.Colors == nil {
		cfg.Colors = make(map[string]string, len(defaultColors))
	}
	for k, v := range defaultColors {
		if _, ok := cfg.Colors[k]; !ok {
			cfg.Colors[k] = v
		}
	}
	if len(cfg.MiscColors) == 0 {
		cfg.MiscColors = append([]string(nil), defaultMiscColors...)
		warnings = append(warnings, "misc_colors is empty, using defaults")
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendJSON
	}
	return warnings
}

// sanitize resets each out-of-range field to its default and returns a
// warning per reset.
func sanitize(cfg *Config) []string {
	def := DefaultConfig()
	var warnings []string
	reset := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if cfg.UpdateInterval <= 0 {
		reset("update_interval must be positive, got %g, using %g", cfg.UpdateInterval, def.UpdateInterval)
		cfg.UpdateInterval = def.UpdateInterval
	}
	if cfg.AutosaveInterval <= 0 {
		reset("autosave_interval must be positive, got %g, using %g", cfg.AutosaveInterval, def.AutosaveInterval)
		cfg.AutosaveInterval = def.AutosaveInterval
	}
	if cfg.AFKTimeout < 0 {
		reset("afk_timeout must not be negative, got %g, using %g", cfg.AFKTimeout, def.AFKTimeout)
		cfg.AFKTimeout = def.AFKTimeout
	}
	if len(cfg.Categories) == 0 {
		reset("categories must not be empty, using %s", strings.Join(def.Categories, ", "))
		cfg.Categories = def.Categories
		cfg.DefaultCategory = def.DefaultCategory
	}
	if cfg.MaxPlotBuckets < 1 {
		reset("max_plot_buckets must be positive, got %d, using %d", cfg.MaxPlotBuckets, def.MaxPlotBuckets)
		cfg.MaxPlotBuckets = def.MaxPlotBuckets
	}
	if cfg.MaxPlotLabels < 1 {
		reset("max_plot_labels must be positive, got %d, using %d", cfg.MaxPlotLabels, def.MaxPlotLabels)
		cfg.MaxPlotLabels = def.MaxPlotLabels
	}
	if cfg.MinPieceFraction < 0 || cfg.MinPieceFraction >= 1 {
		reset("min_piece_fraction must be in [0, 1), got %g, using %g", cfg.MinPieceFraction, def.MinPieceFraction)
		cfg.MinPieceFraction = def.MinPieceFraction
	}
	if cfg.MinPieceFractionBars < 0 || cfg.MinPieceFractionBars >= 1 {
		reset("min_piece_fraction_bars must be in [0, 1), got %g, using %g", cfg.MinPieceFractionBars, def.MinPieceFractionBars)
		cfg.MinPieceFractionBars = def.MinPieceFractionBars
	}
	if cfg.Storage.Backend != BackendJSON && cfg.Storage.Backend != BackendSQLite {
		reset("storage backend must be %q or %q, got %q, using %q", BackendJSON, BackendSQLite, cfg.Storage.Backend, def.Storage.Backend)
		cfg.Storage.Backend = def.Storage.Backend
	}
	return warnings
}

// Color returns the configured color for name, or black.
func (c *Config) Color(name string) string {
	if v, ok := c.Colors[strings.ToLower(name)]; ok {
		return v
	}
	return "#000000"
}

// MiscColor returns the rank-th color of the repeating misc palette.
func (c *Config) MiscColor(rank int) string {
	if rank < 0 {
		rank = -rank
	}
	if len(c.MiscColors) == 0 {
		return defaultMiscColors[rank%len(defaultMiscColors)]
	}
	return c.MiscColors[rank%len(c.MiscColors)]
}

// ShouldAutohide reports whether a newly seen program should start hidden.
func (c *Config) ShouldAutohide(id string) bool {
	for _, ss := range c.AutohideSubstrings {
		if ss != "" && strings.Contains(id, ss) {
			return true
		}
	}
	return false
}

// IsCategory reports whether name is a configured category.
func (c *Config) IsCategory(name string) bool {
	for _, cat := range c.Categories {
		if cat == name {
			return true
		}
	}
	return false
}

// NormalizeCategory returns name if it is configured, else DefaultCategory.
func (c *Config) NormalizeCategory(name string) string {
	if c.IsCategory(name) {
		return name
	}
	return c.DefaultCategory
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func (c *Config) UpdateEvery() time.Duration   { return seconds(c.UpdateInterval) }
func (c *Config) AutosaveEvery() time.Duration { return seconds(c.AutosaveInterval) }
