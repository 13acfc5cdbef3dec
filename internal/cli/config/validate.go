package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/labbrowse/internal/render"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("data_root is required")
	}
	if !c.Refresh.Valid() {
		return fmt.Errorf("unsupported refresh interval %d s (choose from off, 2s, 5s, 10s, 1m, 10m)", int(c.Refresh))
	}
	if c.OutputFormat != render.ModeText && c.OutputFormat != render.ModeJSON {
		return fmt.Errorf("unknown output format %q (want text or json)", c.OutputFormat)
	}
	if c.ListSize < 0 {
		return fmt.Errorf("list_size must not be negative, got %d", c.ListSize)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// ValidateDataRoot checks that the data root is an existing directory.
func (c *Config) ValidateDataRoot() error {
	info, err := os.Stat(c.DataRoot)
	if os.IsNotExist(err) {
		return fmt.Errorf("data root does not exist: %s\nHint: use --data-root to point at the folder holding your datasets", c.DataRoot)
	}
	if err != nil {
		return fmt.Errorf("failed to stat data root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data root is not a directory: %s", c.DataRoot)
	}
	return nil
}
