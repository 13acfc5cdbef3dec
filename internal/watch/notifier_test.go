package watch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := NewNotifier()

	ch := n.Subscribe()
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Len())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	_, open := <-ch
	assert.False(t, open)

	// a second unsubscribe is harmless
	n.Unsubscribe(ch)
}

func TestNotifier_Broadcast(t *testing.T) {
	n := NewNotifier()
	ch1 := n.Subscribe()
	ch2 := n.Subscribe()
	defer n.Unsubscribe(ch1)
	defer n.Unsubscribe(ch2)

	n.Broadcast(Change{Seq: 1})

	for _, ch := range []chan Change{ch1, ch2} {
		select {
		case c := <-ch:
			assert.Equal(t, uint64(1), c.Seq)
		case <-time.After(100 * time.Millisecond):
			t.Error("subscriber did not receive broadcast")
		}
	}
}

func TestNotifier_LatestChangeWins(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	boom := errors.New("boom")
	done := make(chan struct{})
	go func() {
		n.Broadcast(Change{Seq: 1})
		n.Broadcast(Change{Seq: 2, Err: boom})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}

	c := <-ch
	assert.Equal(t, uint64(2), c.Seq)
	assert.ErrorIs(t, c.Err, boom)
	assert.Empty(t, ch)
}

func TestNotifier_Concurrent(t *testing.T) {
	n := NewNotifier()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch := n.Subscribe()
			n.Broadcast(Change{Seq: uint64(i)})
			n.Unsubscribe(ch)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, n.Len())
}
