// Package catalog discovers dataset folders under a data root and groups them by date.
//
// A dataset is a directory holding DataFile plus optional zero-byte tag files named
// "__<tag>__.tag". Folder names follow the convention
//
//	2006-01-02T150405_<8 char id>-<name>
//
// which is what TimestampFromPath and the label builder in package selection rely on.
package catalog

import (
	"slices"
	"time"
)

// DataFile is the name of the primary data file inside a dataset folder.
const DataFile = "data.arrow"

// Tag is a dataset status marker recorded by the presence of a tag file.
type Tag string

// Known tags. TagBad has no producer in this tool but is recognized.
const (
	TagComplete Tag = "complete"
	TagStar     Tag = "star"
	TagBad      Tag = "bad"
	TagTrash    Tag = "trash"
)

// FileName returns the marker file name for the tag, e.g. "__star__.tag".
func (t Tag) FileName() string {
	return "__" + string(t) + "__.tag"
}

// Entry holds the immediate subdirectory and file names of a dataset folder.
type Entry struct {
	Dirs  []string
	Files []string
}

// HasTag reports whether the folder carries the tag file for t.
func (e Entry) HasTag(t Tag) bool {
	return slices.Contains(e.Files, t.FileName())
}

// Listing is a raw scan result keyed by dataset folder path.
type Listing map[string]Entry

// Record is a discovered dataset. Records are immutable; a rescan produces new ones.
type Record struct {
	Path      string
	Timestamp time.Time
	Entry
}

// NewRecord resolves the timestamp of path and returns its record.
func NewRecord(path string, e Entry) (Record, error) {
	ts, err := TimestampFromPath(path)
	if err != nil {
		return Record{}, err
	}
	return Record{Path: path, Timestamp: ts, Entry: e}, nil
}
