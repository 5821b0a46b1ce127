package controller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/Alia5/padctl/internal/log"
)

// DispatchState is the phase of the dispatcher loop.
type DispatchState uint8

const (
	// DispatchIdle: queue empty, neutral sent.
	DispatchIdle DispatchState = iota
	// DispatchWaiting: queue empty, relaxing to neutral.
	DispatchWaiting
	// DispatchActive: the front entry is being held.
	DispatchActive
	// DispatchExpired: the front entry ran out and is being popped.
	DispatchExpired
	// DispatchStopped: the loop has exited.
	DispatchStopped
)

func (s DispatchState) String() string {
	switch s {
	case DispatchIdle:
		return "idle"
	case DispatchWaiting:
		return "waiting"
	case DispatchActive:
		return "active"
	case DispatchExpired:
		return "expired"
	case DispatchStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// dispatcher drains the queue on its own goroutine and forwards states to
// the transport at the right wall clock moments.
type dispatcher struct {
	topo     *Topology
	queue    *commandQueue
	mode     SendMode
	ops      OperationSender
	states   StateSender
	margin   time.Duration
	realtime bool
	logger   *slog.Logger
	done     chan struct{}

	// Guarded by queue.mu. current is what the transport last received.
	phase   DispatchState
	current State
	sent    uint64
}

func newDispatcher(topo *Topology, q *commandQueue, tr Transport, mode SendMode, cfg Config, logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		topo:     topo,
		queue:    q,
		mode:     mode,
		margin:   cfg.WakeMargin,
		realtime: cfg.Realtime,
		logger:   logger,
		done:     make(chan struct{}),
		current:  Neutral(),
	}
	switch mode {
	case SendDiff:
		d.ops = tr.(OperationSender)
	case SendFullState:
		d.states = tr.(StateSender)
	}
	return d
}

// send forwards the transition from prev to next. In diff mode nothing is
// sent when the states are equal.
func (d *dispatcher) send(prev, next State, hold time.Duration) error {
	if d.mode == SendFullState {
		if d.logger.Enabled(context.Background(), log.LevelTrace) {
			d.logger.Log(context.Background(), log.LevelTrace, "send state", "state", next, "hold", hold)
		}
		return d.states.SendState(next, hold)
	}
	ops := Diff(d.topo, prev, next)
	if len(ops) == 0 {
		return nil
	}
	if d.logger.Enabled(context.Background(), log.LevelTrace) {
		for _, op := range ops {
			d.logger.Log(context.Background(), log.LevelTrace, "send operation", "op", d.topo.Describe(op))
		}
	}
	return d.ops.SendOperations(ops)
}

// raisePriority is replaced in tests.
var raisePriority = raiseThreadPriority

func (d *dispatcher) run() {
	defer close(d.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if d.realtime {
		if err := raisePriority(); err != nil {
			d.logger.Warn("could not raise dispatcher priority", "error", err)
		}
	}

	q := d.queue
	q.mu.Lock()

	var (
		started time.Time
		// chainAt is the expiration of the entry popped last. The next entry
		// starts there rather than at time.Now(), as long as the queue was
		// not cleared in between (chainEpoch).
		chainAt    time.Time
		chainEpoch uint64
	)

	for !q.stopping && q.failed == nil {
		if len(q.entries) == 0 {
			chainAt = time.Time{}
			if d.current.IsNeutral() {
				d.phase = DispatchIdle
				q.broadcastLocked()
				ch := q.changed
				q.mu.Unlock()
				<-ch
				q.mu.Lock()
				continue
			}
			d.phase = DispatchWaiting
			prev := d.current
			q.mu.Unlock()
			err := d.send(prev, Neutral(), 0)
			q.mu.Lock()
			if err != nil {
				d.failLocked(err)
				break
			}
			d.current = Neutral()
			d.sent++
			q.broadcastLocked()
			continue
		}

		front := q.entries[0]
		if !q.active {
			now := time.Now()
			started = now
			if !chainAt.IsZero() && chainEpoch == q.epoch && chainAt.Before(now) {
				started = chainAt
			}
			q.active = true
			d.phase = DispatchActive
			prev := d.current
			q.mu.Unlock()
			err := d.send(prev, front.State, front.Duration)
			q.mu.Lock()
			if err != nil {
				d.failLocked(err)
				break
			}
			d.current = front.State
			d.sent++
			q.broadcastLocked()
			continue
		}

		expiration := started.Add(front.Duration)
		now := time.Now()
		if !now.Before(expiration) {
			d.phase = DispatchExpired
			q.popLocked()
			chainAt = expiration
			chainEpoch = q.epoch
			continue
		}

		if remaining := expiration.Sub(now) - d.margin; remaining > 0 {
			d.waitLocked(remaining)
			continue
		}
		d.spinLocked(expiration)
	}

	stopped := q.failed == nil
	prev := d.current
	q.mu.Unlock()

	if stopped {
		if err := d.send(prev, Neutral(), 0); err != nil {
			d.logger.Warn("failed to release controller on stop", "error", err)
		}
	}

	q.mu.Lock()
	if stopped {
		d.current = Neutral()
	}
	d.phase = DispatchStopped
	q.broadcastLocked()
	q.mu.Unlock()
}

// waitLocked blocks for at most timeout or until the queue changes.
func (d *dispatcher) waitLocked(timeout time.Duration) {
	q := d.queue
	ch := q.changed
	q.mu.Unlock()
	t := time.NewTimer(timeout)
	select {
	case <-ch:
	case <-t.C:
	}
	t.Stop()
	q.mu.Lock()
}

// spinLocked burns the last part of an entry without the lock so that the
// expiration is hit as closely as the clock allows. A queue change ends the
// spin early.
func (d *dispatcher) spinLocked(until time.Time) {
	q := d.queue
	ch := q.changed
	q.mu.Unlock()
	for time.Now().Before(until) {
		select {
		case <-ch:
			q.mu.Lock()
			return
		default:
		}
		runtime.Gosched()
	}
	q.mu.Lock()
}

func (d *dispatcher) failLocked(err error) {
	d.logger.Error("transport failed, stopping dispatcher", "error", err)
	d.queue.failed = fmt.Errorf("%w: %w", ErrFatalTransport, err)
	d.queue.broadcastLocked()
}
