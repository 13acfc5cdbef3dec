package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
	Path  string
	Prune time.Duration
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dataset loads",
		Long: `Show the load history kept in the history database (history_path).

Every load that reads a data file is recorded with its options, duration, result shape
and error, if any.`,
		Example: `  # Last 20 loads
  labbrowse history

  # Loads of one data file
  labbrowse history --path ./data/2024-01-15T103045_a1b2c3d4-rabi/data.arrow

  # Forget loads older than a week
  labbrowse history --prune 168h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "number", "n", 20, "Number of loads to show (0 for all)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "Only show loads of this data file")
	cmd.Flags().DurationVar(&opts.Prune, "prune", 0, "Delete loads older than this duration instead of listing")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := cmdCtx.OpenHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if opts.Prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-opts.Prune))
		if err != nil {
			return err
		}
		r.Println(fmt.Sprintf("Pruned %d loads.", n))
		return nil
	}

	if opts.Path != "" {
		runs, err := store.RecentForPath(ctx, opts.Path, opts.Limit)
		if err != nil {
			return err
		}
		return r.History(runs)
	}

	runs, err := store.Recent(ctx, opts.Limit)
	if err != nil {
		return err
	}
	return r.History(runs)
}
