package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/cli/config"
	"github.com/leapstack-labs/labbrowse/internal/pipeline"
	"github.com/leapstack-labs/labbrowse/internal/reader"
	"github.com/leapstack-labs/labbrowse/internal/render"
	"github.com/leapstack-labs/labbrowse/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *render.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.GetConfig(ctx)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: render.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.OutputFormat),
	}
}

// Catalog scans the data root and groups it. Skipped folders are reported as warnings.
func (c *CommandContext) Catalog(ctx context.Context) (catalog.Groups, error) {
	if err := c.Cfg.ValidateDataRoot(); err != nil {
		return nil, err
	}
	groups, skipped, err := catalog.Build(ctx, c.Cfg.DataRoot, c.Cfg.ScanOptions(), c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", c.Cfg.DataRoot, err)
	}
	if len(skipped) > 0 {
		c.Renderer.Warnf("skipped %d folders without a timestamp in their name", len(skipped))
	}
	return groups, nil
}

// OpenHistory opens the load-history store. Callers must Close it.
func (c *CommandContext) OpenHistory() (*state.SQLiteStore, error) {
	store, err := state.OpenMigrated(c.Cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", c.Cfg.HistoryPath, err)
	}
	return store, nil
}

// Pipeline creates a pipeline over Arrow data files, recording runs in store when
// store is non-nil.
func (c *CommandContext) Pipeline(store *state.SQLiteStore) *pipeline.Pipeline {
	var opts []pipeline.Option
	if store != nil {
		opts = append(opts, pipeline.WithRecorder(store))
	}
	return pipeline.New(reader.NewArrowReader(), c.Logger, opts...)
}
