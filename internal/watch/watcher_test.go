package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/labbrowse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitChange pokes the tree with poke until a change arrives. The watcher sets up its
// watches asynchronously, so the first events may be missed.
func waitChange(t *testing.T, ch chan Change, poke func(i int)) Change {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for i := 0; ; i++ {
		poke(i)
		select {
		case c := <-ch:
			return c
		case <-time.After(250 * time.Millisecond):
		case <-deadline:
			t.Fatal("timed out waiting for rescan")
		}
	}
}

func TestWatcher_RescansOnNewDataset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := t.TempDir()
	var scans atomic.Int32
	w := New(root, func(context.Context) error {
		scans.Add(1)
		return nil
	}, testutil.NewTestLogger(t), WithDebounce(20*time.Millisecond))

	ch := w.Notifier().Subscribe()
	defer w.Notifier().Unsubscribe(ch)
	errc := w.Start(ctx)

	c := waitChange(t, ch, func(i int) {
		stamp := fmt.Sprintf("2024-01-15T0900%02d", i)
		testutil.MakeDataset(t, root, testutil.DatasetName(stamp, "aaaaaaaa", "rabi"))
	})
	require.NoError(t, c.Err)
	assert.GreaterOrEqual(t, c.Seq, uint64(1))
	assert.GreaterOrEqual(t, scans.Load(), int32(1))

	cancel()
	select {
	case err, ok := <-errc:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_TagFileInExistingDataset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := t.TempDir()
	folder := testutil.MakeDataset(t, root, testutil.DatasetName("2024-01-15T090000", "aaaaaaaa", "rabi"))

	boom := errors.New("scan failed")
	w := New(root, func(context.Context) error { return boom }, nil, WithDebounce(20*time.Millisecond))
	ch := w.Notifier().Subscribe()
	defer w.Notifier().Unsubscribe(ch)
	w.Start(ctx)

	c := waitChange(t, ch, func(i int) {
		require.NoError(t, os.WriteFile(filepath.Join(folder, "__star__.tag"), []byte{byte(i)}, 0o644))
	})
	assert.ErrorIs(t, c.Err, boom)
	assert.Equal(t, folder, filepath.Dir(c.Path))
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), func(context.Context) error { return nil }, nil)
	err := w.Run(context.Background())
	assert.Error(t, err)
}
