package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/render"
	"github.com/leapstack-labs/labbrowse/internal/selection"
	"github.com/leapstack-labs/labbrowse/internal/state"
	"github.com/spf13/cobra"
)

// LoadOptions holds options for the load command.
type LoadOptions struct {
	NoHistory bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	opts := &LoadOptions{}

	cmd := &cobra.Command{
		Use:   "load <path|folder|id>",
		Short: "Load one dataset and print it as a table or grid",
		Long: `Load a dataset's data file, pre-process it and print the result.

The argument is a dataset folder, a data file, or the folder name or 8-character id of
a dataset under the data root. By default the data is arranged on a grid and averaged
over the "repetition" axis when it has one; use --grid=false for the flat table form
and --op none to skip the reduction.`,
		Example: `  # Load by id
  labbrowse load a1b2c3d4

  # Load a folder as a table without averaging
  labbrowse load ./data/2024-01-15T103045_a1b2c3d4-rabi --grid=false --op none

  # Average over a different axis
  labbrowse load a1b2c3d4 --dim shot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0], opts)
		},
	}

	cmd.Flags().String("op", "average", "Pre-process operation (none|average)")
	cmd.Flags().String("dim", "repetition", "Dimension reduced by the operation")
	cmd.Flags().Bool("grid", true, "Arrange data on a grid instead of a flat table")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record this load in the history")

	_ = cmd.RegisterFlagCompletionFunc("op", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"none", "average"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runLoad(cmd *cobra.Command, target string, opts *LoadOptions) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	dataFile, err := resolveDataFile(cmdCtx, cmd, target)
	if err != nil {
		return err
	}

	var store *state.SQLiteStore
	if !opts.NoHistory {
		if store, err = cmdCtx.OpenHistory(); err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	res, err := cmdCtx.Pipeline(store).Run(ctx, dataFile, cmdCtx.Cfg.PipelineOptions())
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", dataFile, err)
	}

	if err := r.Processed(res.Data, cmdCtx.Cfg.ListSize); err != nil {
		return err
	}
	if r.Mode() == render.ModeText {
		r.Status(res.Status, false)
	}
	return nil
}

// resolveDataFile turns a load target into a data file path. Existing paths are used
// as given; anything else is looked up in the catalog by folder name, id or label.
func resolveDataFile(cmdCtx *CommandContext, cmd *cobra.Command, target string) (string, error) {
	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return filepath.Join(target, catalog.DataFile), nil
		}
		return target, nil
	}

	groups, err := cmdCtx.Catalog(cmd.Context())
	if err != nil {
		return "", err
	}
	matches := findDatasets(groups, target)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no dataset matches %q under %s", target, cmdCtx.Cfg.DataRoot)
	case 1:
		return filepath.Join(matches[0], catalog.DataFile), nil
	}
	return "", fmt.Errorf("%q matches %d datasets; use the folder path instead", target, len(matches))
}

// findDatasets returns the dataset folders whose name, id or label equals target.
func findDatasets(groups catalog.Groups, target string) []string {
	target = strings.TrimSpace(target)
	var out []string
	for _, key := range groups.Keys() {
		for _, path := range groups.Sorted(key) {
			base := filepath.Base(path)
			if base == target || strings.Contains(base, "_"+target+"-") {
				out = append(out, path)
				continue
			}
			rec, err := catalog.NewRecord(path, groups[key][path])
			if err == nil && strings.TrimSpace(selection.Label(rec)) == target {
				out = append(out, path)
			}
		}
	}
	return out
}
