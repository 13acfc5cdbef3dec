// Package config loads labbrowse settings from defaults, a YAML file, LABBROWSE_*
// environment variables and command-line flags.
package config

import (
	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/pipeline"
	"github.com/leapstack-labs/labbrowse/internal/refresh"
	"github.com/leapstack-labs/labbrowse/internal/render"
)

// Config holds all CLI configuration options.
type Config struct {
	DataRoot     string           `koanf:"data_root" yaml:"data_root"`
	LogLevel     string           `koanf:"log_level" yaml:"log_level"`
	OutputFormat render.Mode      `koanf:"output" yaml:"output"`
	NoColor      bool             `koanf:"no_color" yaml:"no_color"`
	HistoryPath  string           `koanf:"history_path" yaml:"history_path"`
	ListSize     int              `koanf:"list_size" yaml:"list_size"`
	GridOnLoad   bool             `koanf:"grid_on_load" yaml:"grid_on_load"`
	Refresh      refresh.Interval `koanf:"refresh" yaml:"refresh"`
	Watch        bool             `koanf:"watch" yaml:"watch"`
	Preprocess   PreprocessConfig `koanf:"preprocess" yaml:"preprocess"`
	Scan         ScanConfig       `koanf:"scan" yaml:"scan"`
}

// PreprocessConfig selects the reduction applied on load.
type PreprocessConfig struct {
	Operation pipeline.Operation `koanf:"operation" yaml:"operation"`
	Dim       string             `koanf:"dim" yaml:"dim"`
}

// ScanConfig filters what a catalog scan returns.
type ScanConfig struct {
	OnlyComplete bool `koanf:"only_complete" yaml:"only_complete"`
	IncludeTrash bool `koanf:"include_trash" yaml:"include_trash"`
}

// Default configuration values.
const (
	DefaultDataRoot    = "."
	DefaultLogLevel    = "warn"
	DefaultOutput      = render.ModeText
	DefaultHistoryPath = ".labbrowse/history.db"
	DefaultListSize    = 50
)

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		DataRoot:     DefaultDataRoot,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		HistoryPath:  DefaultHistoryPath,
		ListSize:     DefaultListSize,
		GridOnLoad:   true,
		Refresh:      refresh.Off,
		Watch:        true,
		Preprocess:   PreprocessConfig{Operation: pipeline.OpAverage, Dim: "repetition"},
		Scan:         ScanConfig{IncludeTrash: true},
	}
}

// PipelineOptions returns the load options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Operation:  c.Preprocess.Operation,
		Dimension:  c.Preprocess.Dim,
		GridOnLoad: c.GridOnLoad,
	}
}

// ScanOptions returns the catalog scan options.
func (c *Config) ScanOptions() catalog.ScanOptions {
	return catalog.ScanOptions{
		OnlyComplete: c.Scan.OnlyComplete,
		IncludeTrash: c.Scan.IncludeTrash,
	}
}
