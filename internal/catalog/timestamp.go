package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the layout of the timestamp prefix of a dataset folder name.
const TimestampLayout = "2006-01-02T150405"

// DisplayLayout is how timestamps are rendered in search text and info lines.
const DisplayLayout = "2006-01-02 15:04:05"

// ErrUnresolvableTimestamp is returned when a dataset path has no parsable timestamp.
var ErrUnresolvableTimestamp = errors.New("unresolvable timestamp")

// TimestampError reports the path whose timestamp could not be resolved.
type TimestampError struct {
	Path   string
	Reason string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrUnresolvableTimestamp, e.Path, e.Reason)
}

// Unwrap lets errors.Is match ErrUnresolvableTimestamp.
func (e *TimestampError) Unwrap() error {
	return ErrUnresolvableTimestamp
}

// Stem returns the final path element without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}

// TimestampFromPath parses the timestamp encoded in the first characters of the
// folder stem. Timestamps carry no zone and are returned as UTC wall-clock values.
func TimestampFromPath(path string) (time.Time, error) {
	stem := Stem(path)
	if len(stem) < len(TimestampLayout) {
		return time.Time{}, &TimestampError{Path: path, Reason: "folder name too short"}
	}
	ts, err := time.Parse(TimestampLayout, stem[:len(TimestampLayout)])
	if err != nil {
		return time.Time{}, &TimestampError{Path: path, Reason: err.Error()}
	}
	return ts, nil
}
