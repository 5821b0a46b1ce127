// Package testing holds helpers shared by package tests: an in-process API
// server and a transport that records what the controller sends.
package testing

import (
	"context"
	"sync"
	"time"

	"github.com/Alia5/padctl/controller"
)

// Batch is one SendOperations call.
type Batch struct {
	At  time.Time
	Ops []controller.Operation
}

// RecordingTransport is a diff-mode transport that keeps every batch and
// answers requests by echoing the payload.
type RecordingTransport struct {
	mu      sync.Mutex
	batches []Batch
	closed  bool
	// Fail, when set, is returned by SendOperations.
	Fail error
}

func (r *RecordingTransport) Ready() error { return nil }

func (r *RecordingTransport) SendOperations(ops []controller.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.batches = append(r.batches, Batch{At: time.Now(), Ops: append([]controller.Operation(nil), ops...)})
	return nil
}

func (r *RecordingTransport) Request(_ context.Context, payload []byte) ([]byte, error) {
	return append([]byte("echo:"), payload...), nil
}

func (r *RecordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *RecordingTransport) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *RecordingTransport) Batches() []Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Batch(nil), r.batches...)
}

// States replays the recorded batches from neutral.
func (r *RecordingTransport) States(topo *controller.Topology) []controller.State {
	s := controller.Neutral()
	var out []controller.State
	for _, b := range r.Batches() {
		s = controller.Apply(topo, s, b.Ops)
		out = append(out, s)
	}
	return out
}
