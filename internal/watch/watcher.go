// Package watch rescans the data root when files under it change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a rescan.
const DefaultDebounce = 100 * time.Millisecond

// RescanFunc rebuilds whatever depends on the watched tree.
type RescanFunc func(ctx context.Context) error

// Watcher watches a directory tree and calls a RescanFunc once events settle.
type Watcher struct {
	root     string
	rescan   RescanFunc
	debounce time.Duration
	logger   *slog.Logger
	notifier *Notifier

	mu  sync.Mutex
	seq uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithNotifier broadcasts rescans on n instead of a private notifier.
func WithNotifier(n *Notifier) Option {
	return func(w *Watcher) { w.notifier = n }
}

// New creates a Watcher for root.
func New(root string, rescan RescanFunc, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		root:     root,
		rescan:   rescan,
		debounce: DefaultDebounce,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.notifier == nil {
		w.notifier = NewNotifier()
	}
	return w
}

// Notifier returns the notifier rescans are broadcast on.
func (w *Watcher) Notifier() *Notifier {
	return w.notifier
}

// Run watches until ctx is done. It returns an error only when the watch cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := addTree(fw, w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	w.logger.Debug("watching data root", "root", w.root)

	w.loop(ctx, fw)
	return nil
}

// Start runs the watcher in the background. Setup errors are reported on the returned
// channel, which is closed when the watcher exits.
func (w *Watcher) Start(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		if err := w.Run(ctx); err != nil {
			errc <- err
		}
	}()
	return errc
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				// new dataset folders need their own watch for tag files
				if err := addTree(fw, event.Name); err != nil {
					w.logger.Debug("failed to watch new path", "path", event.Name, "error", err)
				}
			}

			if timer != nil {
				timer.Stop()
			}
			name := event.Name
			timer = time.AfterFunc(w.debounce, func() {
				w.fire(ctx, name)
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// fire runs one rescan; rescans never overlap.
func (w *Watcher) fire(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("change detected", "path", path)
	err := w.rescan(ctx)
	if err != nil {
		w.logger.Error("rescan failed", "error", err)
	}
	w.seq++
	w.notifier.Broadcast(Change{Seq: w.seq, At: time.Now(), Path: path, Err: err})
}

// addTree adds dir and every non-hidden directory below it. Non-directories are ignored.
func addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
