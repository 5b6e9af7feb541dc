package framework

import (
	"sync"
	"time"
)

// PendingItem is one payload being held by a PendingResponseLatch, tagged
// with an opaque handle identifying the producer that deposited it (for a
// latching echo server, the connection the payload arrived on).
type PendingItem struct {
	Producer interface{}
	Payload  []byte
}

// ReleaseFunc is invoked once per item by ReleaseAll, outside the latch's
// lock. It may block (for example, writing the payload back to a socket).
type ReleaseFunc func(item PendingItem)

// PendingResponseLatch is a counting gate for making "truly concurrent"
// requests deterministic. Producers each deposit one pending item; a
// coordinator waits until a threshold number of items are pending, which
// guarantees that many requests are in flight simultaneously, and then
// releases them all at once. Waiting on a count replaces the usual fixed
// sleep, which is timing-dependent and flaky.
type PendingResponseLatch struct {
	release ReleaseFunc
	pending []PendingItem
	changed chan struct{}
	lock    sync.Mutex
}

func NewPendingResponseLatch(release ReleaseFunc) *PendingResponseLatch {
	if release == nil {
		release = func(PendingItem) {}
	}
	return &PendingResponseLatch{
		release: release,
		changed: make(chan struct{}),
	}
}

// Deposit records a pending item and wakes any waiter. It never blocks.
func (l *PendingResponseLatch) Deposit(producer interface{}, payload []byte) {
	l.lock.Lock()
	l.pending = append(l.pending, PendingItem{Producer: producer, Payload: payload})
	close(l.changed) // broadcast to waiters
	l.changed = make(chan struct{})
	l.lock.Unlock()
}

// WaitForPending blocks until at least count items are pending or the
// timeout elapses, and reports which occurred. The change channel is
// captured under the same lock as the count check, so a deposit that lands
// between the check and the wait still wakes the waiter.
func (l *PendingResponseLatch) WaitForPending(count int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		l.lock.Lock()
		if len(l.pending) >= count {
			l.lock.Unlock()
			return true
		}
		changed := l.changed
		l.lock.Unlock()

		select {
		case <-changed:
		case <-deadline.C:
			return false
		}
	}
}

// ReleaseAll atomically takes the current pending items, clears the pending
// set, and invokes the release action for each taken item outside the lock.
// A Deposit racing with ReleaseAll either makes it into the snapshot and is
// released now, or stays pending for a later call; items are never lost or
// released twice. Returns the number of items released.
func (l *PendingResponseLatch) ReleaseAll() int {
	l.lock.Lock()
	items := l.pending
	l.pending = nil
	l.lock.Unlock()

	for _, item := range items {
		l.release(item)
	}
	return len(items)
}

// PendingCount is a non-blocking snapshot for diagnostics.
func (l *PendingResponseLatch) PendingCount() int {
	l.lock.Lock()
	n := len(l.pending)
	l.lock.Unlock()
	return n
}
