// Package config handles loading, validating, and saving kv configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/kv/config.yaml
//
// Every tunable of the visualization engine lives here: layout gap ranges,
// LOD thresholds and hysteresis, viewport margins, cache capacity, and the
// progressive-loading debounce window. Out-of-range values are rejected at
// load time with a descriptive ConfigError, never silently clamped.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigError describes a rejected configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// GapRange is a clamped sizing constant: the effective value is Default
// clamped into [Min, Max].
type GapRange struct {
	Min     float64 `yaml:"min"`
	Default float64 `yaml:"default"`
	Max     float64 `yaml:"max"`
}

// Clamped returns Default clamped into [Min, Max].
func (g GapRange) Clamped() float64 {
	v := g.Default
	if v < g.Min {
		v = g.Min
	}
	if v > g.Max {
		v = g.Max
	}
	return v
}

func (g GapRange) validate(field string) error {
	if g.Min > g.Max {
		return &ConfigError{Field: field, Reason: fmt.Sprintf("min %g greater than max %g", g.Min, g.Max)}
	}
	if g.Min <= 0 {
		return &ConfigError{Field: field, Reason: fmt.Sprintf("min must be positive, got %g", g.Min)}
	}
	return nil
}

// TierThresholds holds the two scale boundaries of the LOD state machine.
// T0T1 is the full/reduced boundary, T1T2 the reduced/minimal one; since T0
// is the most-zoomed-in tier, T0T1 must be greater than T1T2.
type TierThresholds struct {
	T0T1 float64 `yaml:"t0_t1"`
	T1T2 float64 `yaml:"t1_t2"`
}

// LODConfig tunes the level-of-detail tier calculator.
type LODConfig struct {
	Enabled bool `yaml:"enabled"`

	// ScaleQuantum quantizes camera scale before threshold comparison so the
	// calculator runs on a stable step sequence rather than float noise.
	ScaleQuantum float64 `yaml:"scale_quantum"`

	// HysteresisMargin is the fraction of a threshold the scale must travel
	// past it before a tier transition fires (0.25 = ±25%).
	HysteresisMargin float64 `yaml:"hysteresis_margin"`

	Thresholds TierThresholds `yaml:"tier_thresholds"`
}

// ViewportMargin is the asymmetric world-space lookahead padding added
// around the visible rectangle.
type ViewportMargin struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// LayoutConfig holds the sizing constants of the layout engine.
type LayoutConfig struct {
	NodeWidth     float64  `yaml:"node_width"`
	NodeHeight    float64  `yaml:"node_height"`
	SpouseGap     float64  `yaml:"spouse_gap"`
	SiblingGap    GapRange `yaml:"sibling_gap"`
	GenerationGap GapRange `yaml:"generation_gap"`
}

// LoaderConfig tunes the progressive loader and its cache.
type LoaderConfig struct {
	// ProgressiveEnabled selects viewport-driven fetching. When false the
	// whole dataset is materialized once at startup.
	ProgressiveEnabled bool `yaml:"progressive_enabled"`

	// CacheCapacity is the soft cap on materialized nodes. Visible nodes are
	// never evicted, so the set may temporarily exceed it.
	CacheCapacity int `yaml:"cache_capacity"`

	// DebounceWindowMs coalesces camera-change bursts before a fetch fires.
	DebounceWindowMs int `yaml:"debounce_window_ms"`

	// QueryTimeoutMs bounds a single viewport query; a query with no
	// response within it is treated as a failure, not left pending.
	QueryTimeoutMs int `yaml:"query_timeout_ms"`

	// MaxResults caps a single viewport query's result size.
	MaxResults int `yaml:"max_results"`
}

// Config is the top-level configuration for kv.
type Config struct {
	Layout   LayoutConfig   `yaml:"layout"`
	LOD      LODConfig      `yaml:"lod"`
	Viewport ViewportMargin `yaml:"viewport_margin"`
	Loader   LoaderConfig   `yaml:"loader"`
}

// DefaultConfig returns a Config with sensible defaults. The defaults pass
// Validate; tests rely on that.
func DefaultConfig() Config {
	return Config{
		Layout: LayoutConfig{
			NodeWidth:     120,
			NodeHeight:    80,
			SpouseGap:     24,
			SiblingGap:    GapRange{Min: 16, Default: 40, Max: 160},
			GenerationGap: GapRange{Min: 80, Default: 140, Max: 400},
		},
		LOD: LODConfig{
			Enabled:          true,
			ScaleQuantum:     0.05,
			HysteresisMargin: 0.25,
			Thresholds:       TierThresholds{T0T1: 0.8, T1T2: 0.4},
		},
		Viewport: ViewportMargin{X: 300, Y: 200},
		Loader: LoaderConfig{
			ProgressiveEnabled: true,
			CacheCapacity:      2000,
			DebounceWindowMs:   500,
			QueryTimeoutMs:     5000,
			MaxResults:         1000,
		},
	}
}

// DebounceWindow returns the debounce window as a duration.
func (c LoaderConfig) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowMs) * time.Millisecond
}

// QueryTimeout returns the query timeout as a duration.
func (c LoaderConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMs) * time.Millisecond
}

// Validate rejects out-of-range values with a descriptive error. It returns
// the first problem found.
func (c Config) Validate() error {
	if c.Layout.NodeWidth <= 0 {
		return &ConfigError{Field: "layout.node_width", Reason: fmt.Sprintf("must be positive, got %g", c.Layout.NodeWidth)}
	}
	if c.Layout.NodeHeight <= 0 {
		return &ConfigError{Field: "layout.node_height", Reason: fmt.Sprintf("must be positive, got %g", c.Layout.NodeHeight)}
	}
	if c.Layout.SpouseGap < 0 {
		return &ConfigError{Field: "layout.spouse_gap", Reason: fmt.Sprintf("must be non-negative, got %g", c.Layout.SpouseGap)}
	}
	if err := c.Layout.SiblingGap.validate("layout.sibling_gap"); err != nil {
		return err
	}
	if err := c.Layout.GenerationGap.validate("layout.generation_gap"); err != nil {
		return err
	}

	if c.LOD.ScaleQuantum <= 0 {
		return &ConfigError{Field: "lod.scale_quantum", Reason: fmt.Sprintf("must be positive, got %g", c.LOD.ScaleQuantum)}
	}
	if c.LOD.HysteresisMargin < 0 || c.LOD.HysteresisMargin >= 1 {
		return &ConfigError{Field: "lod.hysteresis_margin", Reason: fmt.Sprintf("must be in [0, 1), got %g", c.LOD.HysteresisMargin)}
	}
	if c.LOD.Thresholds.T0T1 <= 0 || c.LOD.Thresholds.T1T2 <= 0 {
		return &ConfigError{Field: "lod.tier_thresholds", Reason: "thresholds must be positive"}
	}
	if c.LOD.Thresholds.T0T1 <= c.LOD.Thresholds.T1T2 {
		return &ConfigError{
			Field:  "lod.tier_thresholds",
			Reason: fmt.Sprintf("t0_t1 (%g) must be greater than t1_t2 (%g)", c.LOD.Thresholds.T0T1, c.LOD.Thresholds.T1T2),
		}
	}

	if c.Viewport.X < 0 || c.Viewport.Y < 0 {
		return &ConfigError{Field: "viewport_margin", Reason: "margins must be non-negative"}
	}

	if c.Loader.CacheCapacity <= 0 {
		return &ConfigError{Field: "loader.cache_capacity", Reason: fmt.Sprintf("must be positive, got %d", c.Loader.CacheCapacity)}
	}
	if c.Loader.DebounceWindowMs < 0 {
		return &ConfigError{Field: "loader.debounce_window_ms", Reason: "must be non-negative"}
	}
	if c.Loader.QueryTimeoutMs <= 0 {
		return &ConfigError{Field: "loader.query_timeout_ms", Reason: "must be positive"}
	}
	if c.Loader.MaxResults <= 0 {
		return &ConfigError{Field: "loader.max_results", Reason: "must be positive"}
	}

	return nil
}

// ConfigDir returns the XDG config directory for kv.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "kv")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "kv")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Missing fields keep their
// defaults; the merged result is validated before being returned.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
