package commands

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/node"
	"github.com/leapstack-labs/labbrowse/internal/pipeline"
	"github.com/leapstack-labs/labbrowse/internal/refresh"
	"github.com/leapstack-labs/labbrowse/internal/render"
	"github.com/leapstack-labs/labbrowse/internal/selection"
	"github.com/leapstack-labs/labbrowse/internal/state"
	"github.com/leapstack-labs/labbrowse/internal/watch"
	"github.com/spf13/cobra"
)

// BrowseOptions holds options for the browse command.
type BrowseOptions struct {
	NoHistory bool
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactively pick, load and auto-refresh datasets",
		Long: `Start an interactive session over the data root.

Choose one or more dates, narrow the list with a regular-expression search, pick a
dataset and load it. With an auto-refresh interval set, the picked dataset is reloaded
periodically. The catalog is rescanned when files under the data root change.

Type help inside the session for the list of commands. When standard input is not a
terminal, commands are read line by line, which makes browse scriptable.`,
		Example: `  # Interactive session
  labbrowse browse --data-root ./data

  # Scripted session
  printf 'group 2024-1-15\npick 1\nload\n' | labbrowse browse --watch=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd, opts)
		},
	}

	cmd.Flags().String("op", "average", "Pre-process operation (none|average)")
	cmd.Flags().String("dim", "repetition", "Dimension reduced by the operation")
	cmd.Flags().Bool("grid", true, "Arrange data on a grid instead of a flat table")
	cmd.Flags().String("refresh", "off", "Initial auto-refresh interval (off|2s|5s|10s|1m|10m)")
	cmd.Flags().Bool("watch", true, "Rescan the catalog when the data root changes")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record loads in the history")

	return cmd
}

func runBrowse(cmd *cobra.Command, opts *BrowseOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	base := NewCommandContext(cmd)
	out := &lockedWriter{w: cmd.OutOrStdout()}
	cmdCtx := &CommandContext{
		Cfg:      base.Cfg,
		Logger:   base.Logger,
		Renderer: render.NewRenderer(out, cmd.ErrOrStderr(), base.Cfg.OutputFormat),
	}

	groups, err := cmdCtx.Catalog(ctx)
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

	s := &session{
		cmdCtx: cmdCtx,
		r:      cmdCtx.Renderer,
		out:    out,
		store:  store,
	}
	s.loader = node.New(
		selection.New(groups, cmdCtx.Logger),
		cmdCtx.Pipeline(store),
		cmdCtx.Logger,
		node.WithOptions(cmdCtx.Cfg.PipelineOptions()),
		node.OnResult(s.onResult),
	)
	s.loader.SetRefresh(ctx, cmdCtx.Cfg.Refresh)
	defer func() {
		s.loader.SetRefresh(ctx, refresh.Off)
		cancel()
		s.loader.Scheduler().Wait()
	}()

	if cmdCtx.Cfg.Watch {
		w := watch.New(cmdCtx.Cfg.DataRoot, s.rescan, cmdCtx.Logger)
		changes := w.Notifier().Subscribe()
		defer w.Notifier().Unsubscribe(changes)
		errc := w.Start(ctx)
		go s.reportChanges(ctx, changes, errc)
	}

	return s.run(ctx, cmd.InOrStdin())
}

// rescan rebuilds the catalog and hands it to the selection state.
func (s *session) rescan(ctx context.Context) error {
	groups, skipped, err := catalog.Build(ctx, s.cmdCtx.Cfg.DataRoot, s.cmdCtx.Cfg.ScanOptions(), s.cmdCtx.Logger)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		s.cmdCtx.Logger.Debug("rescan skipped folders", "count", len(skipped))
	}
	return s.loader.Select(func(st *selection.State) error {
		st.SetGroups(groups)
		return nil
	})
}

func (s *session) reportChanges(ctx context.Context, changes chan watch.Change, errc <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errc:
			if ok && err != nil {
				s.r.Warnf("not watching the data root: %v", err)
			}
			errc = nil
		case c, ok := <-changes:
			if !ok {
				return
			}
			if c.Err != nil {
				s.r.Warnf("rescan failed: %v", c.Err)
				continue
			}
			var n int
			_ = s.loader.Select(func(st *selection.State) error {
				n = st.Groups().Len()
				return nil
			})
			s.r.Println(s.r.Styles().Muted.Render(fmt.Sprintf("catalog updated: %d datasets", n)))
		}
	}
}

// onResult reports every run, manual or scheduled.
func (s *session) onResult(res pipeline.Result, err error) {
	if err != nil {
		s.r.Status(fmt.Sprintf("Error: %v", err), true)
		return
	}
	s.r.Status(res.Status, false)
}

// lockedWriter serializes writes from the prompt loop, the scheduler and the watcher.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (l *lockedWriter) swap(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = w
}
