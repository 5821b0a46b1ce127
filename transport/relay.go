package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Alia5/padctl/controller"
)

// Relay applies bridge messages to a local transport. It is the receiving end
// of wsbridge and natsbridge: operation batches are forwarded as they are to
// an OperationSender, or folded into a State for a StateSender.
type Relay struct {
	topo   *controller.Topology
	sink   controller.Transport
	logger *slog.Logger

	mu      sync.Mutex
	current controller.State
}

// NewRelay wraps sink, which must accept operations or states.
func NewRelay(topo *controller.Topology, sink controller.Transport, logger *slog.Logger) (*Relay, error) {
	switch sink.(type) {
	case controller.OperationSender, controller.StateSender:
	default:
		return nil, fmt.Errorf("%w: relay sink %T accepts neither operations nor states", controller.ErrUnsupportedOperation, sink)
	}
	return &Relay{topo: topo, sink: sink, logger: logger, current: controller.Neutral()}, nil
}

// Handle processes one message. The returned message is the reply to send
// back, or nil when none is due.
func (r *Relay) Handle(ctx context.Context, m Message) *Message {
	switch m.Type {
	case TypeOps:
		if err := r.apply(m.Ops); err != nil {
			r.logger.Error("relay operations", "seq", m.Seq, "error", err)
			return &Message{Type: TypeResponse, Seq: m.Seq, Error: err.Error()}
		}
		return nil
	case TypeRequest:
		out, err := r.request(ctx, m.Payload)
		reply := &Message{Type: TypeResponse, Seq: m.Seq, Payload: out}
		if err != nil {
			reply.Error = err.Error()
		}
		return reply
	default:
		return &Message{Type: TypeResponse, Seq: m.Seq, Error: fmt.Sprintf("unexpected message type %q", m.Type)}
	}
}

func (r *Relay) apply(wire []Op) error {
	ops, err := DecodeOps(r.topo, wire)
	if err != nil {
		return err
	}
	if err := r.sink.Ready(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := controller.Apply(r.topo, r.current, ops)
	switch s := r.sink.(type) {
	case controller.OperationSender:
		err = s.SendOperations(ops)
	case controller.StateSender:
		err = s.SendState(next, 0)
	}
	if err != nil {
		return err
	}
	r.current = next
	return nil
}

func (r *Relay) request(ctx context.Context, payload []byte) ([]byte, error) {
	rs, ok := r.sink.(controller.RequestSender)
	if !ok {
		return nil, fmt.Errorf("%w: relay sink %T has no request channel", controller.ErrUnsupportedOperation, r.sink)
	}
	return rs.Request(ctx, payload)
}

// Release sends the sink back to neutral, e.g. when the remote end went away.
func (r *Relay) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current.IsNeutral() {
		return nil
	}
	var err error
	switch s := r.sink.(type) {
	case controller.OperationSender:
		err = s.SendOperations(controller.Diff(r.topo, r.current, controller.Neutral()))
	case controller.StateSender:
		err = s.SendState(controller.Neutral(), 0)
	}
	if err != nil {
		return err
	}
	r.current = controller.Neutral()
	return nil
}

// State returns the state the sink was last driven to.
func (r *Relay) State() controller.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// ResponseError turns a response's error string into an error.
func ResponseError(m Message) error {
	if m.Error == "" {
		return nil
	}
	return errors.New(m.Error)
}
