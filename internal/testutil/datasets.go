package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// DataFileName mirrors catalog.DataFile; testutil cannot import catalog without a cycle
// in catalog's own tests.
const DataFileName = "data.arrow"

// DatasetName builds a folder name following the dataset naming convention:
// "<stamp>_<id>-<name>", e.g. "2024-01-15T103045_a1b2c3d4-rabi".
func DatasetName(stamp, id, name string) string {
	return stamp + "_" + id + "-" + name
}

// MakeDataset creates a dataset folder under root with a placeholder data file and one
// tag file per tag. It returns the folder path.
func MakeDataset(t testing.TB, root, folder string, tags ...string) string {
	t.Helper()
	dir := filepath.Join(root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create dataset dir %s: %v", dir, err)
	}
	touch(t, filepath.Join(dir, DataFileName))
	for _, tag := range tags {
		touch(t, filepath.Join(dir, "__"+tag+"__.tag"))
	}
	return dir
}

func touch(t testing.TB, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}
