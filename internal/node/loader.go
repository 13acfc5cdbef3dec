// Package node binds a dataset selection, the load pipeline and an auto-refresh
// scheduler into one loader node.
//
// A Loader is the single thread of control for its state: every selection change and
// every pipeline run happens under the node's lock, so at most one run is in flight
// and manual loads never interleave with scheduled ones. Nodes share nothing; several
// can run side by side.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/labbrowse/internal/pipeline"
	"github.com/leapstack-labs/labbrowse/internal/refresh"
	"github.com/leapstack-labs/labbrowse/internal/selection"
)

// InitialStatus is the status before the first load.
const InitialStatus = "No data loaded."

// Loader is one loader node.
type Loader struct {
	logger   *slog.Logger
	pipe     *pipeline.Pipeline
	sched    *refresh.Scheduler
	onResult func(pipeline.Result, error)

	mu      sync.Mutex
	state   *selection.State
	opts    pipeline.Options
	last    pipeline.Result
	lastErr error
	status  string
}

// Option configures a Loader.
type Option func(*loaderConfig)

type loaderConfig struct {
	opts      pipeline.Options
	schedOpts []refresh.SchedulerOption
	onResult  func(pipeline.Result, error)
}

// WithOptions sets the initial pipeline options.
func WithOptions(o pipeline.Options) Option {
	return func(c *loaderConfig) { c.opts = o }
}

// WithSchedulerOptions passes options to the node's scheduler.
func WithSchedulerOptions(opts ...refresh.SchedulerOption) Option {
	return func(c *loaderConfig) { c.schedOpts = append(c.schedOpts, opts...) }
}

// OnResult registers a callback invoked after every run, outside the node's lock.
func OnResult(fn func(pipeline.Result, error)) Option {
	return func(c *loaderConfig) { c.onResult = fn }
}

// New creates a Loader over state and pipe.
func New(state *selection.State, pipe *pipeline.Pipeline, logger *slog.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := loaderConfig{opts: pipeline.DefaultOptions()}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := &Loader{
		logger:   logger,
		pipe:     pipe,
		onResult: cfg.onResult,
		state:    state,
		opts:     cfg.opts,
		status:   InitialStatus,
	}
	l.sched = refresh.NewScheduler(func(ctx context.Context) {
		_, _ = l.Load(ctx)
	}, logger, cfg.schedOpts...)
	return l
}

// Load runs the pipeline on the active dataset. It is the manual trigger and leaves
// a pending scheduled sleep alone.
func (l *Loader) Load(ctx context.Context) (pipeline.Result, error) {
	l.mu.Lock()
	res, err := l.pipe.Run(ctx, l.state.DataFilePath(), l.opts)
	l.last, l.lastErr = res, err
	if err != nil {
		l.status = fmt.Sprintf("Error: %v", err)
	} else {
		l.status = res.Status
	}
	cb := l.onResult
	l.mu.Unlock()

	if cb != nil {
		cb(res, err)
	}
	return res, err
}

// Select runs fn against the node's selection state under the node's lock.
func (l *Loader) Select(fn func(*selection.State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.state)
}

// SetRefresh changes the auto-refresh interval. ctx bounds a task started here.
func (l *Loader) SetRefresh(ctx context.Context, iv refresh.Interval) {
	l.sched.Set(ctx, iv)
}

// Refresh returns the auto-refresh interval.
func (l *Loader) Refresh() refresh.Interval {
	return l.sched.Interval()
}

// Scheduler exposes the node's scheduler.
func (l *Loader) Scheduler() *refresh.Scheduler {
	return l.sched
}

// SetOptions replaces the pipeline options used by subsequent runs.
func (l *Loader) SetOptions(o pipeline.Options) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts = o
}

// Options returns the current pipeline options.
func (l *Loader) Options() pipeline.Options {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opts
}

// Status returns the info line of the last run.
func (l *Loader) Status() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Last returns the result and error of the last run.
func (l *Loader) Last() (pipeline.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.lastErr
}
