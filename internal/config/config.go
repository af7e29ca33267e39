// Package config provides configuration loading for lfkit.
//
// Configuration is read from an optional YAML file and overridden by
// LFKIT_* environment variables. Sections owned by other packages (logging,
// telemetry) are decoded on demand with Section so this package stays free
// of their imports.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/v2"
)

// Default values applied when a setting is absent.
const (
	DefaultSplit     = "dev"
	DefaultAnnotator = "gold"
	DefaultFormat    = "table"
	DefaultDebounce  = 200 * time.Millisecond
)

// Config holds the complete lfkit configuration.
type Config struct {
	Engine  EngineConfig  `koanf:"engine"`
	Inputs  InputsConfig  `koanf:"inputs"`
	Report  ReportConfig  `koanf:"report"`
	Metrics MetricsConfig `koanf:"metrics"`
	Watch   WatchConfig   `koanf:"watch"`

	k *koanf.Koanf
}

// EngineConfig controls label matrix construction.
type EngineConfig struct {
	// Parallelism is the worker count. Zero uses GOMAXPROCS.
	Parallelism int `koanf:"parallelism"`
}

// InputsConfig names the default corpus and definition files so commands
// can run without flags.
type InputsConfig struct {
	Corpus    string `koanf:"corpus"`
	LFs       string `koanf:"lfs"`
	Split     string `koanf:"split"`
	Annotator string `koanf:"annotator"`
}

// ReportConfig controls command output.
type ReportConfig struct {
	Format string `koanf:"format"` // table, json or yaml
}

// MetricsConfig controls Prometheus metrics export.
type MetricsConfig struct {
	// Textfile, when set, receives the registry in the node_exporter
	// textfile format after each run.
	Textfile string `koanf:"textfile"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce Duration `koanf:"debounce"`
}

// Section decodes the configuration subtree at path into out. Fields of out
// absent from the configuration keep their current values, so callers pass
// a struct pre-filled with defaults.
func (c *Config) Section(path string, out any) error {
	if c.k == nil || !c.k.Exists(path) {
		return nil
	}
	if err := c.k.Unmarshal(path, out); err != nil {
		return fmt.Errorf("decoding %s config: %w", path, err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.Parallelism < 0 {
		return fmt.Errorf("engine.parallelism must be >= 0, got %d", c.Engine.Parallelism)
	}
	if c.Inputs.Annotator == "" {
		return errors.New("inputs.annotator is required")
	}
	switch c.Inputs.Split {
	case "train", "dev", "test":
	default:
		return fmt.Errorf("inputs.split must be train, dev or test, got %q", c.Inputs.Split)
	}
	switch c.Report.Format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("report.format must be table, json or yaml, got %q", c.Report.Format)
	}
	if c.Watch.Debounce.Duration() <= 0 {
		return errors.New("watch.debounce must be positive")
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Inputs.Split == "" {
		cfg.Inputs.Split = DefaultSplit
	}
	if cfg.Inputs.Annotator == "" {
		cfg.Inputs.Annotator = DefaultAnnotator
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = DefaultFormat
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = Duration(DefaultDebounce)
	}
}
