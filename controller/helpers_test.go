package controller

import (
	"context"
	"errors"
	"sync"
	"time"
)

var testTopo = MustTopology("test",
	ButtonDef("A"),
	ButtonDef("B"),
	ButtonDef("X"),
	DpadDef("Dpad"),
	StickDef("LeftStick"),
	StickDef("RightStick"),
)

const (
	idA ResourceID = iota
	idB
	idX
	idDpad
	idLeft
	idRight
)

// batch is one call into a fake transport.
type batch struct {
	at    time.Time
	ops   []Operation
	state State
	hold  time.Duration
}

// recorder is shared by the fake transports.
type recorder struct {
	mu      sync.Mutex
	batches []batch
	failAt  int // fail the n-th send (1-based); 0 never fails
	sends   int
	closed  bool
	ready   error
}

func (r *recorder) Ready() error { return r.ready }

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) record(b batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends++
	if r.failAt > 0 && r.sends >= r.failAt {
		return errors.New("link down")
	}
	b.at = time.Now()
	r.batches = append(r.batches, b)
	return nil
}

func (r *recorder) snapshot() []batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]batch, len(r.batches))
	copy(out, r.batches)
	return out
}

// opsTransport accepts diffs.
type opsTransport struct{ recorder }

func (t *opsTransport) SendOperations(ops []Operation) error {
	cp := make([]Operation, len(ops))
	copy(cp, ops)
	return t.record(batch{ops: cp})
}

// stateTransport accepts full states.
type stateTransport struct{ recorder }

func (t *stateTransport) SendState(s State, hold time.Duration) error {
	return t.record(batch{state: s, hold: hold})
}

// requestTransport is a diff transport with a request channel.
type requestTransport struct {
	opsTransport
}

func (t *requestTransport) Request(_ context.Context, payload []byte) ([]byte, error) {
	return append([]byte("echo:"), payload...), nil
}

// replay applies every recorded diff to neutral and returns the states seen
// after each batch.
func replay(batches []batch) []State {
	s := Neutral()
	out := make([]State, 0, len(batches))
	for _, b := range batches {
		s = Apply(testTopo, s, b.ops)
		out = append(out, s)
	}
	return out
}

func stateOf(targets ...Target) State {
	s := Neutral()
	for _, tg := range targets {
		testTopo.apply(&s, tg)
	}
	return s
}
