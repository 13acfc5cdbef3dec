// Package selection derives the visible, labeled dataset list from the chosen date
// groups and search term, and tracks the active dataset.
//
// A State is not safe for concurrent use. Subscribers are called synchronously, in
// subscription order, after every change that re-derives the view.
package selection

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/search"
)

var (
	// ErrUnknownLabel is returned when a label is not in the visible list.
	ErrUnknownLabel = errors.New("no visible dataset with that label")
	// ErrNotVisible is returned when a path is not in the visible list.
	ErrNotVisible = errors.New("dataset is not in the visible list")
)

// Selection is the user's current choice. It is replaced, never mutated.
type Selection struct {
	Groups []catalog.DateKey
	Path   string
	Search string
}

// Item is one visible dataset.
type Item struct {
	Label string
	Path  string
}

// View is what subscribers receive after a change.
type View struct {
	Selection Selection
	Items     []Item
}

// State holds a Selection over a catalog and the view derived from it.
type State struct {
	groups  catalog.Groups
	sel     Selection
	matcher search.Matcher
	items   []Item
	subs    []subscriber
	nextSub int
	logger  *slog.Logger
}

type subscriber struct {
	id int
	fn func(View)
}

// New creates a State over groups with nothing selected.
func New(groups catalog.Groups, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	if groups == nil {
		groups = catalog.Groups{}
	}
	return &State{groups: groups, matcher: search.All, logger: logger}
}

// Subscribe registers fn for change notifications and returns a function removing it.
func (s *State) Subscribe(fn func(View)) (cancel func()) {
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

// Selection returns the current selection.
func (s *State) Selection() Selection {
	sel := s.sel
	sel.Groups = slices.Clone(s.sel.Groups)
	return sel
}

// Groups returns the catalog the state selects from.
func (s *State) Groups() catalog.Groups {
	return s.groups
}

// Visible returns the labeled datasets of the chosen groups that pass the search.
func (s *State) Visible() []Item {
	return slices.Clone(s.items)
}

// SetGroups replaces the catalog, e.g. after a rescan.
func (s *State) SetGroups(groups catalog.Groups) {
	if groups == nil {
		groups = catalog.Groups{}
	}
	s.groups = groups
	s.update(s.sel)
}

// SelectGroups chooses the date groups to list, in display order.
func (s *State) SelectGroups(keys ...catalog.DateKey) {
	next := s.sel
	next.Groups = slices.Clone(keys)
	s.update(next)
}

// SetSearch applies a new search term. An invalid pattern leaves the state unchanged.
func (s *State) SetSearch(term string) error {
	m, err := search.Compile(term)
	if err != nil {
		return err
	}
	if m.Active() {
		s.logger.Debug("filter term", "term", term)
	}
	s.matcher = m
	next := s.sel
	next.Search = term
	s.update(next)
	return nil
}

// SelectLabel activates the first visible dataset carrying label.
func (s *State) SelectLabel(label string) error {
	for _, it := range s.items {
		if it.Label == label {
			return s.SelectPath(it.Path)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownLabel, label)
}

// SelectPath activates a visible dataset by folder path.
func (s *State) SelectPath(path string) error {
	if !s.visible(path) {
		return fmt.Errorf("%w: %s", ErrNotVisible, path)
	}
	next := s.sel
	next.Path = path
	s.update(next)
	return nil
}

// ClearPath deselects the active dataset.
func (s *State) ClearPath() {
	next := s.sel
	next.Path = ""
	s.update(next)
}

// ActivePath returns the active dataset folder, or "" when none is chosen.
func (s *State) ActivePath() string {
	return s.sel.Path
}

// DataFilePath returns the data file of the active dataset, or "" when none is chosen.
func (s *State) DataFilePath() string {
	if s.sel.Path == "" {
		return ""
	}
	return filepath.Join(s.sel.Path, catalog.DataFile)
}

// Info describes the active data file.
func (s *State) Info() string {
	p := s.DataFilePath()
	if p == "" {
		p = "None"
	}
	return "Path: " + p
}

// SearchInfo echoes the term of the active matcher.
func (s *State) SearchInfo() string {
	return "Current Search: " + s.matcher.Term()
}

// update installs next, re-derives the view and notifies subscribers.
// An active dataset that is no longer visible is cleared.
func (s *State) update(next Selection) {
	s.sel = next
	s.items = s.derive()
	if s.sel.Path != "" && !s.visible(s.sel.Path) {
		s.logger.Debug("active dataset left the view", "path", s.sel.Path)
		s.sel.Path = ""
	}
	view := View{Selection: s.Selection(), Items: s.Visible()}
	for _, sub := range slices.Clone(s.subs) {
		sub.fn(view)
	}
}

func (s *State) derive() []Item {
	var items []Item
	for _, key := range s.sel.Groups {
		sets, ok := s.groups[key]
		if !ok {
			continue
		}
		for _, path := range s.groups.Sorted(key) {
			rec, err := catalog.NewRecord(path, sets[path])
			if err != nil {
				s.logger.Warn("skipping dataset", "path", path, "error", err)
				continue
			}
			if !s.matcher.MatchDataset(path, rec.Timestamp) {
				continue
			}
			items = append(items, Item{Label: Label(rec), Path: path})
		}
	}
	return items
}

func (s *State) visible(path string) bool {
	return slices.ContainsFunc(s.items, func(it Item) bool { return it.Path == path })
}
