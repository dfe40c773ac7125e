// Package config holds blockwatch configuration: the TOML file, model
// weight rules, and static pricing tables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all blockwatch configuration.
type Config struct {
	General GeneralConfig      `toml:"general"`
	Monitor MonitorConfig      `toml:"monitor"`
	Blocks  BlocksConfig       `toml:"blocks"`
	Limits  LimitsConfig       `toml:"limits"`
	Pricing PricingOverrides   `toml:"pricing"`
	Weights []WeightRuleConfig `toml:"weights,omitempty"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	ClaudeDir string `toml:"claude_dir,omitempty"`
	Timezone  string `toml:"timezone,omitempty"`
	Debug     bool   `toml:"debug"`
}

// MonitorConfig holds monitor-mode defaults.
type MonitorConfig struct {
	Plan           string `toml:"plan,omitempty"`
	ResetHour      *int   `toml:"reset_hour,omitempty"`
	RefreshSeconds int    `toml:"refresh_seconds"`
}

// BlocksConfig exposes the block-construction heuristics. The defaults
// match observed upstream behavior but carry no documented guarantee,
// hence configuration rather than constants.
type BlocksConfig struct {
	DurationHours     int `toml:"duration_hours"`
	GapThresholdMin   int `toml:"gap_threshold_minutes"`
	ActiveWindowHours int `toml:"active_window_hours"`
}

// LimitsConfig tunes the limit-error matcher, an upstream wording
// contract that may drift.
type LimitsConfig struct {
	ErrorPhrase string `toml:"error_phrase,omitempty"`
}

// WeightRuleConfig is one user-supplied weight rule.
type WeightRuleConfig struct {
	Prefix     string  `toml:"prefix"`
	Multiplier float64 `toml:"multiplier"`
}

// PricingOverrides allows user-defined pricing for specific models.
type PricingOverrides struct {
	Overrides map[string]ModelPricingOverride `toml:"overrides,omitempty"`
}

// ModelPricingOverride holds per-model pricing overrides.
type ModelPricingOverride struct {
	InputPerMTok      *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok     *float64 `toml:"output_per_mtok,omitempty"`
	CacheWritePerMTok *float64 `toml:"cache_write_per_mtok,omitempty"`
	CacheReadPerMTok  *float64 `toml:"cache_read_per_mtok,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Monitor: MonitorConfig{RefreshSeconds: 2},
		Blocks: BlocksConfig{
			DurationHours:     5,
			GapThresholdMin:   30,
			ActiveWindowHours: 6,
		},
	}
}

// BlockDuration returns the configured block width.
func (c Config) BlockDuration() time.Duration {
	return time.Duration(c.Blocks.DurationHours) * time.Hour
}

// GapThreshold returns the configured idle-gap threshold.
func (c Config) GapThreshold() time.Duration {
	return time.Duration(c.Blocks.GapThresholdMin) * time.Minute
}

// ActiveWindow returns the recency window for active-block marking.
func (c Config) ActiveWindow() time.Duration {
	return time.Duration(c.Blocks.ActiveWindowHours) * time.Hour
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "blockwatch")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "blockwatch")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// DefaultClaudeDir returns the claude data directory, honoring the
// CLAUDE_CONFIG_DIR override and the configured path, in that order.
func DefaultClaudeDir(cfg Config) string {
	if env := os.Getenv("CLAUDE_CONFIG_DIR"); env != "" {
		return env
	}
	if cfg.General.ClaudeDir != "" {
		return cfg.General.ClaudeDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
