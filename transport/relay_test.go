package transport

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opsSink struct {
	mu      sync.Mutex
	batches [][]controller.Operation
}

func (s *opsSink) Ready() error { return nil }
func (s *opsSink) Close() error { return nil }
func (s *opsSink) SendOperations(ops []controller.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, ops)
	return nil
}
func (s *opsSink) Request(_ context.Context, p []byte) ([]byte, error) {
	return append([]byte("re:"), p...), nil
}

type stateSink struct {
	states []controller.State
}

func (s *stateSink) Ready() error { return nil }
func (s *stateSink) Close() error { return nil }
func (s *stateSink) SendState(st controller.State, _ time.Duration) error {
	s.states = append(s.states, st)
	return nil
}

func pressOps(id controller.ResourceID) []Op {
	return EncodeOps(switchpro.Topology, []controller.Operation{{Kind: controller.OpPress, Resource: id}})
}

func TestRelayForwardsOperations(t *testing.T) {
	sink := &opsSink{}
	r, err := NewRelay(switchpro.Topology, sink, slog.Default())
	require.NoError(t, err)

	assert.Nil(t, r.Handle(context.Background(), Message{Type: TypeOps, Seq: 1, Ops: pressOps(switchpro.X)}))
	assert.True(t, r.State().Buttons.Has(uint8(switchpro.X)))

	reply := r.Handle(context.Background(), Message{Type: TypeRequest, Seq: 2, Payload: []byte("hi")})
	require.NotNil(t, reply)
	assert.Equal(t, Message{Type: TypeResponse, Seq: 2, Payload: []byte("re:hi")}, *reply)

	reply = r.Handle(context.Background(), Message{Type: TypeOps, Seq: 3, Ops: []Op{{Kind: "press", Resource: "Turbo"}}})
	require.NotNil(t, reply)
	require.Error(t, ResponseError(*reply))

	require.NoError(t, r.Release())
	require.Len(t, sink.batches, 2)
	assert.True(t, r.State().IsNeutral())
}

func TestRelayFoldsIntoStates(t *testing.T) {
	sink := &stateSink{}
	r, err := NewRelay(switchpro.Topology, sink, slog.Default())
	require.NoError(t, err)

	assert.Nil(t, r.Handle(context.Background(), Message{Type: TypeOps, Ops: pressOps(switchpro.A)}))
	assert.Nil(t, r.Handle(context.Background(), Message{Type: TypeOps, Ops: pressOps(switchpro.B)}))
	require.Len(t, sink.states, 2)
	assert.True(t, sink.states[1].Buttons.Has(uint8(switchpro.A)))
	assert.True(t, sink.states[1].Buttons.Has(uint8(switchpro.B)))

	reply := r.Handle(context.Background(), Message{Type: TypeRequest, Seq: 9})
	require.ErrorContains(t, ResponseError(*reply), controller.ErrUnsupportedOperation.Error())

	require.NoError(t, r.Release())
	assert.Equal(t, controller.Neutral(), sink.states[2])
}
