package commands

import (
	"fmt"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/selection"
	"github.com/spf13/cobra"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Search string
	All    bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list [date...]",
		Short: "List date groups or the datasets recorded on given dates",
		Long: `List the datasets found under the data root.

Without arguments, list prints one row per calendar date with the number of datasets
recorded that day, newest first. Given one or more dates (as printed, e.g. 2024-1-15),
it prints the datasets of those dates with their labels:

  HH:MM:SS - <id> - <name> <tags>

where the tags are ✅ (complete), 😁 (star) and ❌ (trash).`,
		Example: `  # Show the date groups
  labbrowse list

  # Datasets of one day
  labbrowse list 2024-1-15

  # Search every date with a regular expression
  labbrowse list --all --search 'rabi|ramsey'

  # JSON output
  labbrowse list 2024-1-15 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Regular expression matched against path and timestamp")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "List the datasets of every date")

	return cmd
}

func runList(cmd *cobra.Command, args []string, opts *ListOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	groups, err := cmdCtx.Catalog(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) == 0 && !opts.All && opts.Search == "" {
		return r.Groups(groups)
	}

	keys, err := dateKeys(groups, args, opts.All || len(args) == 0)
	if err != nil {
		return err
	}

	st := selection.New(groups, cmdCtx.Logger)
	st.SelectGroups(keys...)
	if err := st.SetSearch(opts.Search); err != nil {
		return err
	}
	return r.Items(st.Visible(), "")
}

// dateKeys parses date labels. With all set, every group's key is returned instead.
func dateKeys(groups catalog.Groups, labels []string, all bool) ([]catalog.DateKey, error) {
	if all {
		return groups.Keys(), nil
	}
	keys := make([]catalog.DateKey, 0, len(labels))
	for _, l := range labels {
		k, err := catalog.ParseDateKey(l)
		if err != nil {
			return nil, err
		}
		if _, ok := groups[k]; !ok {
			return nil, fmt.Errorf("no datasets recorded on %s", k.Label())
		}
		keys = append(keys, k)
	}
	return keys, nil
}
