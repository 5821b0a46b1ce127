package controller

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Entry is one combined state and how long it is held.
type Entry struct {
	State    State
	Duration time.Duration
}

// commandQueue is the bounded FIFO shared by the producer and the
// dispatcher. Everything in it is guarded by mu; changed is closed and
// replaced on every mutation so waiters can select on it together with a
// context or a timer.
type commandQueue struct {
	mu       sync.Mutex
	changed  chan struct{}
	entries  []Entry
	capacity int

	// active is set while the front entry is being held by the dispatcher.
	active        bool
	replaceOnNext bool
	stopping      bool
	failed        error

	// epoch is bumped by cancelAll and setReplaceOnNext so the producer
	// knows to drop its unflushed timeline.
	epoch uint64
}

func newCommandQueue(capacity int) *commandQueue {
	return &commandQueue{
		changed:  make(chan struct{}),
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// broadcastLocked wakes every waiter. Must be called with mu held.
func (q *commandQueue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// waitLocked releases mu until the next broadcast or until ctx ends, then
// re-acquires it.
func (q *commandQueue) waitLocked(ctx context.Context) {
	ch := q.changed
	q.mu.Unlock()
	select {
	case <-ch:
	case <-ctx.Done():
	}
	q.mu.Lock()
}

// usableLocked reports why producer calls must fail, if they must.
func (q *commandQueue) usableLocked() error {
	if q.failed != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, q.failed)
	}
	if q.stopping {
		return fmt.Errorf("%w: controller stopped", ErrNotReady)
	}
	return nil
}

func (q *commandQueue) usable() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.usableLocked()
}

// push appends e, blocking while the queue is full. When replace-on-next is
// pending the queue is cleared first and e becomes the only entry.
func (q *commandQueue) push(ctx context.Context, e Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if err := q.usableLocked(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		if len(q.entries) < q.capacity || q.replaceOnNext {
			break
		}
		q.waitLocked(ctx)
	}

	if q.replaceOnNext {
		clear(q.entries)
		q.entries = q.entries[:0]
		q.active = false
		q.replaceOnNext = false
	}
	q.entries = append(q.entries, e)
	q.broadcastLocked()
	return nil
}

// waitForAll blocks until the queue drains or replace-on-next is set.
func (q *commandQueue) waitForAll(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.entries) > 0 && !q.replaceOnNext {
		if err := q.usableLocked(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		q.waitLocked(ctx)
	}
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	return nil
}

func (q *commandQueue) setReplaceOnNext() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.replaceOnNext = true
	q.epoch++
	q.broadcastLocked()
	return len(q.entries)
}

// cancelAll drops every queued entry and returns how many were dropped.
func (q *commandQueue) cancelAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.entries)
	clear(q.entries)
	q.entries = q.entries[:0]
	q.active = false
	q.replaceOnNext = false
	q.epoch++
	q.broadcastLocked()
	return n
}

func (q *commandQueue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopping = true
	q.broadcastLocked()
}

func (q *commandQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = err
	q.broadcastLocked()
}

// popLocked removes the front entry. Dispatcher only.
func (q *commandQueue) popLocked() {
	n := copy(q.entries, q.entries[1:])
	q.entries[n] = Entry{}
	q.entries = q.entries[:n]
	q.active = false
	q.broadcastLocked()
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *commandQueue) currentEpoch() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.epoch
}
