// Package search compiles user search terms into dataset matchers.
//
// A term is embedded into the expression ".*<term>.*" without escaping, so regular
// expression metacharacters keep their meaning: "2024.*run" matches any dataset whose
// text contains "2024" followed later by "run".
package search

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
)

// ErrInvalidPattern is returned when a term is not a valid regular expression.
var ErrInvalidPattern = errors.New("invalid search pattern")

// Matcher decides whether a dataset's search text is visible.
type Matcher struct {
	term string
	re   *regexp.Regexp
}

// All accepts everything.
var All = Matcher{}

// Compile turns term into a Matcher. An empty term accepts everything.
func Compile(term string) (Matcher, error) {
	if term == "" {
		return All, nil
	}
	re, err := regexp.Compile(".*" + term + ".*")
	if err != nil {
		return Matcher{}, fmt.Errorf("%w %q: %v", ErrInvalidPattern, term, err)
	}
	return Matcher{term: term, re: re}, nil
}

// Term returns the term the matcher was compiled from.
func (m Matcher) Term() string { return m.term }

// Active reports whether the matcher filters anything.
func (m Matcher) Active() bool { return m.re != nil }

// Match reports whether text is accepted.
func (m Matcher) Match(text string) bool {
	if m.re == nil {
		return true
	}
	return m.re.MatchString(text)
}

// MatchDataset matches against the dataset path followed by its formatted timestamp.
func (m Matcher) MatchDataset(path string, ts time.Time) bool {
	return m.Match(Text(path, ts))
}

// Text builds the string a dataset is matched against.
func Text(path string, ts time.Time) string {
	return path + " " + ts.Format(catalog.DisplayLayout)
}
