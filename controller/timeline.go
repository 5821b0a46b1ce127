package controller

import "time"

// slot is the latest commitment of one resource, in timeline time.
type slot struct {
	target  Target
	start   time.Duration
	release time.Duration
	free    time.Duration
}

func (s slot) busyAt(t time.Duration) bool { return s.start <= t && t < s.release }

// timeline merges per-resource commitments into a sequence of queue entries.
//
// Times are offsets from an arbitrary origin. issueAt is where the next
// command starts; everything before flushed has already been turned into
// entries and is never modified again. flushed <= issueAt always holds.
type timeline struct {
	topo    *Topology
	slots   []slot
	issueAt time.Duration
	flushed time.Duration
	epoch   uint64
}

func newTimeline(topo *Topology) *timeline {
	return &timeline{
		topo:  topo,
		slots: make([]slot, topo.Len()),
	}
}

// reset forgets every commitment and rebases time to zero.
func (tl *timeline) reset(epoch uint64) {
	clear(tl.slots)
	tl.issueAt = 0
	tl.flushed = 0
	tl.epoch = epoch
}

// readyAt returns the earliest time, not before issueAt, at which every
// target's resource is free again.
func (tl *timeline) readyAt(targets []Target) time.Duration {
	at := tl.issueAt
	for _, tg := range targets {
		if free := tl.slots[tg.Resource].free; free > at {
			at = free
		}
	}
	return at
}

// activate commits targets at issueAt.
func (tl *timeline) activate(targets []Target, hold, cooldown time.Duration) {
	for _, tg := range targets {
		tl.slots[tg.Resource] = slot{
			target:  tg,
			start:   tl.issueAt,
			release: tl.issueAt + hold,
			free:    tl.issueAt + hold + cooldown,
		}
	}
}

// stateAt unions the sub-states of every resource busy at t.
func (tl *timeline) stateAt(t time.Duration) State {
	s := Neutral()
	for _, sl := range tl.slots {
		if sl.busyAt(t) {
			tl.topo.apply(&s, sl.target)
		}
	}
	return s
}

// nextEdge returns the first activation or release strictly after t, capped
// at limit.
func (tl *timeline) nextEdge(t, limit time.Duration) time.Duration {
	next := limit
	for _, sl := range tl.slots {
		if sl.start > t && sl.start < next {
			next = sl.start
		}
		if sl.release > t && sl.release < next {
			next = sl.release
		}
	}
	return next
}

// horizon is the time at which every resource is free and the cursor has
// been reached.
func (tl *timeline) horizon() time.Duration {
	h := tl.issueAt
	for _, sl := range tl.slots {
		if sl.free > h {
			h = sl.free
		}
	}
	return h
}

// flush emits entries covering [flushed, until). Slices are cut at every
// edge; consecutive slices with the same state are merged. If emit fails the
// timeline stays consistent and flushed marks what was accepted. The issue
// cursor is pulled up to flushed on every return, so a later command never
// starts inside time that was already emitted.
func (tl *timeline) flush(until time.Duration, emit func(Entry) error) error {
	defer func() {
		if tl.issueAt < tl.flushed {
			tl.issueAt = tl.flushed
		}
	}()
	for tl.flushed < until {
		state := tl.stateAt(tl.flushed)
		end := tl.nextEdge(tl.flushed, until)
		for end < until && tl.stateAt(end) == state {
			end = tl.nextEdge(end, until)
		}
		if err := emit(Entry{State: state, Duration: end - tl.flushed}); err != nil {
			return err
		}
		tl.flushed = end
	}
	return nil
}
