// Package state keeps the load history of labbrowse in SQLite.
//
// Every pipeline run that reads a data file is recorded, successful or not, so the
// history answers "what did I look at, and how long did it take".
package state

import "time"

// LoadRun is one recorded pipeline run.
type LoadRun struct {
	ID          string
	Path        string
	Operation   string
	Dimension   string
	GridOnLoad  bool
	StartedAt   time.Time
	Duration    time.Duration
	Kind        string
	Size        int
	Independent []string
	Dependent   []string
	Error       string
}

// Failed reports whether the run returned an error.
func (r LoadRun) Failed() bool {
	return r.Error != ""
}
