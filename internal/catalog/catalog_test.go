package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/labbrowse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampFromPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    time.Time
		wantErr bool
	}{
		{
			name: "convention folder",
			path: "/data/2024/01/15/2024-01-15T103045_a1b2c3d4-rabi",
			want: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
		},
		{
			name: "extension is stripped",
			path: "2023-12-31T235959_deadbeef-scan.v2",
			want: time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
		},
		{name: "too short", path: "/data/2024-01-15", wantErr: true},
		{name: "not a timestamp", path: "/data/notes_about_this_folder", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TimestampFromPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnresolvableTimestamp)
				var tsErr *TimestampError
				require.True(t, errors.As(err, &tsErr))
				assert.Equal(t, tt.path, tsErr.Path)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroup_EveryRecordInExactlyOneGroup(t *testing.T) {
	listing := Listing{
		"/d/2024-01-15T103045_aaaaaaaa-one":   {Files: []string{DataFile}},
		"/d/2024-01-15T235959_bbbbbbbb-two":   {Files: []string{DataFile}},
		"/d/2024-01-16T000000_cccccccc-three": {Files: []string{DataFile}},
		"/d/2023-11-02T120000_dddddddd-four":  {Dirs: []string{"plots"}, Files: []string{DataFile}},
	}

	groups, err := Group(listing)
	require.NoError(t, err)

	assert.Equal(t, len(listing), groups.Len())
	assert.Len(t, groups, 3)

	for path := range listing {
		ts, err := TimestampFromPath(path)
		require.NoError(t, err)
		hits := 0
		for key, sets := range groups {
			if _, ok := sets[path]; ok {
				hits++
				assert.Equal(t, DateKey{ts.Year(), int(ts.Month()), ts.Day()}, key)
			}
		}
		assert.Equal(t, 1, hits, "path %s", path)
	}

	e, ok := groups.Lookup("/d/2023-11-02T120000_dddddddd-four")
	require.True(t, ok)
	assert.Equal(t, []string{"plots"}, e.Dirs)
}

func TestGroup_UnresolvableTimestampPropagates(t *testing.T) {
	listing := Listing{
		"/d/2024-01-15T103045_aaaaaaaa-one": {},
		"/d/scratch":                        {},
	}

	_, err := Group(listing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvableTimestamp)
}

func TestGroupLenient_SkipsAndReports(t *testing.T) {
	listing := Listing{
		"/d/2024-01-15T103045_aaaaaaaa-one": {},
		"/d/scratch":                        {},
	}

	logger, logs := testutil.NewCaptureLogger()
	groups, skipped := GroupLenient(listing, logger)
	assert.Equal(t, 1, groups.Len())
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], ErrUnresolvableTimestamp)
	assert.Contains(t, logs.String(), "skipping dataset")
	assert.Contains(t, logs.String(), "path=/d/scratch")
}

func TestGroups_OrderingAndOptions(t *testing.T) {
	listing := Listing{
		"/d/2024-01-15T090000_aaaaaaaa-a": {},
		"/d/2024-01-15T110000_bbbbbbbb-b": {},
		"/d/2024-01-15T100000_cccccccc-c": {},
		"/d/2024-02-01T100000_dddddddd-d": {},
	}
	groups, err := Group(listing)
	require.NoError(t, err)

	assert.Equal(t, []DateKey{{2024, 2, 1}, {2024, 1, 15}}, groups.Keys())
	assert.Equal(t, []string{
		"/d/2024-01-15T110000_bbbbbbbb-b",
		"/d/2024-01-15T100000_cccccccc-c",
		"/d/2024-01-15T090000_aaaaaaaa-a",
	}, groups.Sorted(DateKey{2024, 1, 15}))

	opts := Options(groups)
	require.Len(t, opts, 2)
	assert.Equal(t, "2024-2-1 [1]", opts[0].Label)
	assert.Equal(t, "2024-1-15 [3]", opts[1].Label)

	key, err := ParseDateKey(opts[1].Label)
	require.NoError(t, err)
	assert.Equal(t, DateKey{2024, 1, 15}, key)
}

func TestParseDateKey_Invalid(t *testing.T) {
	for _, label := range []string{"", "2024-01", "2024-x-15 [2]"} {
		_, err := ParseDateKey(label)
		assert.Error(t, err, "label %q", label)
	}
}

func TestScan(t *testing.T) {
	assert.Equal(t, DataFile, testutil.DataFileName)

	root := t.TempDir()
	done := testutil.MakeDataset(t, root, testutil.DatasetName("2024-01-15T103045", "a1b2c3d4", "rabi"), "complete", "star")
	trashed := testutil.MakeDataset(t, filepath.Join(root, "2024", "01"), testutil.DatasetName("2024-01-15T110000", "b1b2c3d4", "ramsey"), "trash")
	plain := testutil.MakeDataset(t, root, testutil.DatasetName("2024-01-16T080000", "c1b2c3d4", "t1"))

	// a folder without a data file is not a dataset
	testutil.MakeDataset(t, root, "not-a-dataset")
	require.NoError(t, removeDataFile(filepath.Join(root, "not-a-dataset")))

	t.Run("default options", func(t *testing.T) {
		listing, err := Scan(context.Background(), root, DefaultScanOptions())
		require.NoError(t, err)
		assert.Len(t, listing, 3)
		assert.Contains(t, listing, done)
		assert.Contains(t, listing, trashed)
		assert.Contains(t, listing, plain)
		assert.True(t, listing[done].HasTag(TagComplete))
		assert.True(t, listing[done].HasTag(TagStar))
		assert.False(t, listing[done].HasTag(TagTrash))
	})

	t.Run("only complete", func(t *testing.T) {
		listing, err := Scan(context.Background(), root, ScanOptions{OnlyComplete: true, IncludeTrash: true})
		require.NoError(t, err)
		assert.Equal(t, []string{done}, keys(listing))
	})

	t.Run("exclude trash", func(t *testing.T) {
		listing, err := Scan(context.Background(), root, ScanOptions{})
		require.NoError(t, err)
		assert.Len(t, listing, 2)
		assert.NotContains(t, listing, trashed)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := Scan(context.Background(), filepath.Join(root, "missing"), DefaultScanOptions())
		assert.Error(t, err)
	})
}

// lockDir removes all permissions from dir for the rest of the test. It skips the test
// when permissions are not enforced, e.g. when running as root.
func lockDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.Chmod(dir, 0))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	if _, err := os.ReadDir(dir); err == nil {
		t.Skip("directory permissions are not enforced")
	}
}

func TestScan_SkipsUnreadableDirectories(t *testing.T) {
	root := t.TempDir()
	ok := testutil.MakeDataset(t, root, testutil.DatasetName("2024-01-15T090000", "aaaaaaaa", "rabi"))
	locked := filepath.Join(root, "other-user")
	testutil.MakeDataset(t, locked, testutil.DatasetName("2024-01-15T100000", "bbbbbbbb", "ramsey"))
	lockDir(t, locked)

	logger, logs := testutil.NewCaptureLogger()
	listing, err := Scan(context.Background(), root, ScanOptions{IncludeTrash: true, Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, []string{ok}, keys(listing))
	assert.Contains(t, logs.String(), "skipping unreadable directory")
	assert.Contains(t, logs.String(), "other-user")

	// Build routes the warning to its own logger
	logger, logs = testutil.NewCaptureLogger()
	groups, _, err := Build(context.Background(), root, DefaultScanOptions(), logger)
	require.NoError(t, err)
	assert.Equal(t, 1, groups.Len())
	assert.Contains(t, logs.String(), "other-user")
}

func TestScan_UnreadableRootFails(t *testing.T) {
	root := t.TempDir()
	testutil.MakeDataset(t, root, testutil.DatasetName("2024-01-15T090000", "aaaaaaaa", "rabi"))
	lockDir(t, root)

	_, err := Scan(context.Background(), root, DefaultScanOptions())
	assert.Error(t, err)
}

func TestBuild_SkipsUnstampedFolders(t *testing.T) {
	root := t.TempDir()
	testutil.MakeDataset(t, root, testutil.DatasetName("2024-01-15T090000", "aaaaaaaa", "rabi"))
	testutil.MakeDataset(t, root, "scratch")

	groups, skipped, err := Build(context.Background(), root, DefaultScanOptions(), testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, groups.Len())
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], ErrUnresolvableTimestamp)

	_, _, err = Build(context.Background(), filepath.Join(root, "missing"), DefaultScanOptions(), nil)
	assert.Error(t, err)
}

func keys(l Listing) []string {
	out := make([]string, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	return out
}

func removeDataFile(dir string) error {
	return os.Remove(filepath.Join(dir, DataFile))
}
