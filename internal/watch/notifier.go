package watch

import (
	"sync"
	"time"
)

// Change describes one finished rescan. Err is the rescan error, if any.
type Change struct {
	Seq  uint64
	At   time.Time
	Path string
	Err  error
}

// Notifier broadcasts rescan results to subscribers. Each subscriber holds at most one
// pending Change; a newer one replaces an unread older one.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Change]struct{}
}

// NewNotifier creates a Notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{
		listeners: make(map[chan Change]struct{}),
	}
}

// Subscribe returns a channel receiving changes.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Change {
	ch := make(chan Change, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Len returns the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcast delivers c to every subscriber without blocking.
func (n *Notifier) Broadcast(c Change) {
	// the write lock keeps drain-and-send atomic per channel
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		select {
		case ch <- c:
			continue
		default:
		}
		// stale change still pending: drop it
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}
