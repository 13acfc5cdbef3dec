package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxParallelReads bounds concurrent directory reads during a scan.
const maxParallelReads = 8

// ScanOptions filter which dataset folders a scan reports.
type ScanOptions struct {
	// OnlyComplete keeps only folders tagged complete.
	OnlyComplete bool
	// IncludeTrash keeps folders tagged trash.
	IncludeTrash bool
	// Logger receives a warning for every unreadable directory below the root.
	// Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultScanOptions reports every dataset folder.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{IncludeTrash: true}
}

// Scan walks root and returns every folder that contains DataFile. Directories below
// the root that cannot be read are logged and skipped; only an unreadable root fails.
func Scan(ctx context.Context, root string, opts ScanOptions) (Listing, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat data root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data root %s is not a directory", root)
	}

	var dirs []string
	unreadable := make(map[string]bool)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping unreadable directory", "path", path, "error", err)
			unreadable[path] = true
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk data root: %w", err)
	}

	var mu sync.Mutex
	listing := make(Listing)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for _, dir := range dirs {
		if unreadable[dir] {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, ok, err := readDataset(dir)
			if err != nil {
				if dir == root {
					return err
				}
				logger.Warn("skipping unreadable directory", "path", dir, "error", err)
				return nil
			}
			if !ok || !opts.keep(entry) {
				return nil
			}
			mu.Lock()
			listing[dir] = entry
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return listing, nil
}

func (o ScanOptions) keep(e Entry) bool {
	if o.OnlyComplete && !e.HasTag(TagComplete) {
		return false
	}
	if !o.IncludeTrash && e.HasTag(TagTrash) {
		return false
	}
	return true
}

// readDataset lists dir and reports whether it is a dataset folder.
func readDataset(dir string) (Entry, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var e Entry
	found := false
	for _, de := range entries {
		if de.IsDir() {
			e.Dirs = append(e.Dirs, de.Name())
			continue
		}
		if de.Name() == DataFile {
			found = true
		}
		e.Files = append(e.Files, de.Name())
	}
	return e, found, nil
}

// Build scans root and groups the result, skipping folders whose names carry no
// timestamp. The skipped paths are returned as errors alongside the groups.
func Build(ctx context.Context, root string, opts ScanOptions, logger *slog.Logger) (Groups, []error, error) {
	if opts.Logger == nil {
		opts.Logger = logger
	}
	listing, err := Scan(ctx, root, opts)
	if err != nil {
		return nil, nil, err
	}
	groups, skipped := GroupLenient(listing, logger)
	return groups, skipped, nil
}
