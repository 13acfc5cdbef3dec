// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/labbrowse/internal/dataset"
	"github.com/leapstack-labs/labbrowse/internal/reader"
	"github.com/leapstack-labs/labbrowse/internal/render"
	"github.com/leapstack-labs/labbrowse/internal/testutil"
)

// Dataset folders created by SetupDataRoot.
const (
	RabiFolder   = "2024-01-15T090000_aaaaaaaa-rabi"
	RamseyFolder = "2024-01-15T101500_bbbbbbbb-ramsey"
	T1Folder     = "2024-02-01T083000_cccccccc-t1"
)

// SetupDataRoot creates a temporary data root with three datasets on two dates:
//
//	2024-1-15  rabi   (complete)  amp[V] over repetition x freq[Hz]
//	2024-1-15  ramsey (star)      complex iq over delay[us]
//	2024-2-1   t1     (trash)     population over wait[us]
//
// Every data file is a real Arrow file readable by the reader package.
func SetupDataRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	rabi := testutil.MakeDataset(t, root, RabiFolder, "complete")
	writeData(t, rabi,
		dataset.Field{Name: "repetition", Values: []float64{0, 1, 0, 1, 0, 1}},
		dataset.Field{Name: "freq", Unit: "Hz", HasUnit: true, Values: []float64{1, 1, 2, 2, 3, 3}},
		dataset.Field{Name: "amp", Unit: "V", HasUnit: true, Axes: []string{"repetition", "freq"},
			Values: []float64{1, 3, 2, 4, 5, 7}},
	)

	ramsey := testutil.MakeDataset(t, root, RamseyFolder, "star")
	writeData(t, ramsey,
		dataset.Field{Name: "delay", Unit: "us", HasUnit: true, Values: []float64{0, 1, 2}},
		dataset.Field{Name: "iq", Axes: []string{"delay"}, Complex: []complex128{1 + 1i, 0 + 2i, -1 + 0i}},
	)

	t1 := testutil.MakeDataset(t, root, T1Folder, "trash")
	writeData(t, t1,
		dataset.Field{Name: "wait", Unit: "us", HasUnit: true, Values: []float64{0, 10}},
		dataset.Field{Name: "population", Axes: []string{"wait"}, Values: []float64{1, 0.4}},
	)

	return root
}

func writeData(t *testing.T, dir string, fields ...dataset.Field) {
	t.Helper()
	dd, err := dataset.New(fields...)
	if err != nil {
		t.Fatalf("invalid fixture data in %s: %v", dir, err)
	}
	if err := reader.WriteArrow(filepath.Join(dir, testutil.DataFileName), dd); err != nil {
		t.Fatalf("failed to write fixture data in %s: %v", dir, err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*render.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a renderer for mode whose output is captured in buffers.
func NewTestRenderer(mode render.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: render.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails the test if output contains ANSI escape codes.
func AssertNoANSI(t *testing.T, output string) {
	t.Helper()
	if ansiRegex.MatchString(output) {
		t.Errorf("output contains ANSI escape codes:\n%s", output)
	}
}

// StripANSI removes ANSI escape codes from output.
func StripANSI(output string) string {
	return ansiRegex.ReplaceAllString(output, "")
}

// AssertContains fails the test if output does not contain all expected strings.
func AssertContains(t *testing.T, output string, expected ...string) {
	t.Helper()
	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			t.Errorf("output does not contain %q:\n%s", exp, output)
		}
	}
}

// AssertNotContains fails the test if output contains any of the unexpected strings.
func AssertNotContains(t *testing.T, output string, unexpected ...string) {
	t.Helper()
	for _, unexp := range unexpected {
		if strings.Contains(output, unexp) {
			t.Errorf("output unexpectedly contains %q:\n%s", unexp, output)
		}
	}
}
