package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/padctl/internal/log"
)

// Timing describes when and for how long a command drives its resources.
//
// The targets are activated at the current issue cursor and held for Hold.
// After release the resources stay unavailable for Cooldown. The cursor then
// advances by Delay, so Delay is the time until the next command may start,
// which can be shorter than Hold to overlap commands on different resources.
type Timing struct {
	Delay    time.Duration
	Hold     time.Duration
	Cooldown time.Duration
}

func (t Timing) validate() error {
	if t.Delay < 0 || t.Hold < 0 || t.Cooldown < 0 {
		return fmt.Errorf("negative timing %+v", t)
	}
	return nil
}

// Snapshot is a point-in-time view of a Controller.
type Snapshot struct {
	Dispatch DispatchState
	Current  State
	Pending  int
	Sent     uint64
	Mode     SendMode
	Err      error
}

// Controller schedules timed commands against one controller and streams the
// merged states to a transport.
//
// Producer methods (Issue, TryIssue, Wait, WaitForAll) are serialized
// internally; CancelAll, ReplaceOnNext and Close may be called from any
// goroutine, including while a producer call is blocked.
type Controller struct {
	topo      *Topology
	transport Transport
	mode      SendMode
	logger    *slog.Logger

	queue *commandQueue
	disp  *dispatcher

	issueMu sync.Mutex
	tl      *timeline

	closeOnce sync.Once
	closeErr  error
}

// New starts a controller on tr. tr must be ready and implement either
// OperationSender or StateSender; diffs are preferred when both are
// available.
func New(topo *Topology, tr Transport, cfg Config, logger *slog.Logger) (*Controller, error) {
	if topo == nil || topo.Len() == 0 {
		return nil, errors.New("controller needs a topology with resources")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := tr.Ready(); err != nil {
		return nil, err
	}

	var mode SendMode
	switch tr.(type) {
	case OperationSender:
		mode = SendDiff
	case StateSender:
		mode = SendFullState
	default:
		return nil, fmt.Errorf("%w: transport %T accepts neither operations nor states", ErrUnsupportedOperation, tr)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "controller", "topology", topo.Name())

	q := newCommandQueue(cfg.QueueSize)
	c := &Controller{
		topo:      topo,
		transport: tr,
		mode:      mode,
		logger:    logger,
		queue:     q,
		tl:        newTimeline(topo),
	}
	c.disp = newDispatcher(topo, q, tr, mode, cfg, logger)
	go c.disp.run()

	logger.Debug("controller started", "mode", mode, "queueSize", cfg.QueueSize, "wakeMargin", cfg.WakeMargin)
	return c, nil
}

func (c *Controller) Topology() *Topology { return c.topo }

func (c *Controller) Mode() SendMode { return c.mode }

// Issue schedules targets with the given timing. If a target's resource is
// still held or cooling down from an earlier command, Issue first lets the
// timeline run until the resource is free, which may block on a full queue.
// If ctx ends during that wait the error matches both ErrResourceConflict and
// ErrCancelled.
func (c *Controller) Issue(ctx context.Context, timing Timing, targets ...Target) error {
	return c.issue(ctx, timing, targets, false)
}

// TryIssue is Issue that fails with ErrResourceConflict instead of waiting
// for busy resources.
func (c *Controller) TryIssue(ctx context.Context, timing Timing, targets ...Target) error {
	return c.issue(ctx, timing, targets, true)
}

func (c *Controller) issue(ctx context.Context, timing Timing, targets []Target, try bool) error {
	if len(targets) == 0 {
		return errors.New("command has no targets")
	}
	if err := timing.validate(); err != nil {
		return err
	}
	if err := c.topo.validate(targets); err != nil {
		return err
	}
	if err := c.queue.usable(); err != nil {
		return err
	}

	c.issueMu.Lock()
	defer c.issueMu.Unlock()
	c.syncEpochLocked()

	if at := c.tl.readyAt(targets); at > c.tl.issueAt {
		if try {
			return fmt.Errorf("%w: %s busy for another %s", ErrResourceConflict, c.describeTargets(targets), at-c.tl.issueAt)
		}
		if err := c.tl.flush(at, c.pusher(ctx)); err != nil {
			if errors.Is(err, ErrCancelled) {
				return fmt.Errorf("%w: %w", ErrResourceConflict, err)
			}
			return err
		}
	}

	c.tl.activate(targets, timing.Hold, timing.Cooldown)
	c.tl.issueAt += timing.Delay
	return c.tl.flush(c.tl.issueAt, c.pusher(ctx))
}

// Wait advances the issue cursor by d without touching any resource.
func (c *Controller) Wait(ctx context.Context, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("negative wait %s", d)
	}
	if err := c.queue.usable(); err != nil {
		return err
	}
	c.issueMu.Lock()
	defer c.issueMu.Unlock()
	c.syncEpochLocked()
	c.tl.issueAt += d
	return c.tl.flush(c.tl.issueAt, c.pusher(ctx))
}

// WaitForAll flushes every outstanding commitment and blocks until the queue
// has drained or a replace-on-next was requested.
func (c *Controller) WaitForAll(ctx context.Context) error {
	if err := c.queue.usable(); err != nil {
		return err
	}
	c.issueMu.Lock()
	defer c.issueMu.Unlock()
	c.syncEpochLocked()
	if err := c.tl.flush(c.tl.horizon(), c.pusher(ctx)); err != nil {
		return err
	}
	if err := c.queue.waitForAll(ctx); err != nil {
		return err
	}
	c.tl.reset(c.queue.currentEpoch())
	return nil
}

// CancelAll drops every queued state and every unflushed commitment. The
// dispatcher releases the controller right away. It returns the number of
// dropped queue entries.
func (c *Controller) CancelAll() int {
	n := c.queue.cancelAll()
	c.logger.Debug("cancelled all commands", "dropped", n)
	return n
}

// ReplaceOnNext makes the next state pushed by a producer replace everything
// still queued. Blocked producers and WaitForAll callers wake up.
func (c *Controller) ReplaceOnNext() int {
	n := c.queue.setReplaceOnNext()
	c.logger.Debug("replace on next command", "queued", n)
	return n
}

// Request sends a raw request over the transport, if it supports it.
func (c *Controller) Request(ctx context.Context, payload []byte) ([]byte, error) {
	rs, ok := c.transport.(RequestSender)
	if !ok {
		return nil, fmt.Errorf("%w: transport %T has no request channel", ErrUnsupportedOperation, c.transport)
	}
	if err := c.queue.usable(); err != nil {
		return nil, err
	}
	if err := c.transport.Ready(); err != nil {
		return nil, err
	}
	return rs.Request(ctx, payload)
}

// Pending returns the number of queued states, including the one being held.
func (c *Controller) Pending() int { return c.queue.len() }

func (c *Controller) State() Snapshot {
	q := c.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	return Snapshot{
		Dispatch: c.disp.phase,
		Current:  c.disp.current,
		Pending:  len(q.entries),
		Sent:     c.disp.sent,
		Mode:     c.mode,
		Err:      q.failed,
	}
}

// Err returns the fatal transport error that stopped the dispatcher, if any.
func (c *Controller) Err() error {
	c.queue.mu.Lock()
	defer c.queue.mu.Unlock()
	return c.queue.failed
}

// Done is closed once the dispatcher has exited.
func (c *Controller) Done() <-chan struct{} { return c.disp.done }

// Close stops the dispatcher, which releases the controller, and closes the
// transport. Queued states that have not been sent are dropped.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.queue.stop()
		<-c.disp.done
		c.closeErr = c.transport.Close()
		c.logger.Debug("controller closed")
	})
	return c.closeErr
}

// syncEpochLocked drops the unflushed timeline if the queue was cancelled or
// replaced since the last producer call.
func (c *Controller) syncEpochLocked() {
	if e := c.queue.currentEpoch(); e != c.tl.epoch {
		c.tl.reset(e)
	}
}

func (c *Controller) pusher(ctx context.Context) func(Entry) error {
	return func(e Entry) error {
		if c.logger.Enabled(ctx, log.LevelTrace) {
			c.logger.Log(ctx, log.LevelTrace, "queue entry", "state", e.State, "duration", e.Duration)
		}
		return c.queue.push(ctx, e)
	}
}

func (c *Controller) describeTargets(targets []Target) string {
	names := make([]string, len(targets))
	for i, tg := range targets {
		names[i] = FormatTarget(c.topo, tg)
	}
	return fmt.Sprint(names)
}
