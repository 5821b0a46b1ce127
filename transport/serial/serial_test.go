package serial

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferPort struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	fail   bool
}

func (p *bufferPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return 0, errors.New("unplugged")
	}
	return p.buf.Write(b)
}

func (p *bufferPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *bufferPort) frames(t *testing.T) []controller.State {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	data := p.buf.Bytes()
	require.Zero(t, len(data)%FrameSize)
	var out []controller.State
	for i := 0; i < len(data); i += FrameSize {
		seq, s, _, err := DecodeFrame(data[i : i+FrameSize])
		require.NoError(t, err)
		require.Equal(t, uint32(i/FrameSize+1), seq)
		out = append(out, s)
	}
	return out
}

func TestFrameRoundTrip(t *testing.T) {
	s := controller.Neutral()
	s.Buttons = s.Buttons.With(uint8(switchpro.B))
	s.Dpad = controller.DpadRight
	s.Sticks[0] = controller.Stick{X: 3, Y: 250}

	b := EncodeFrame(42, s, 1500*time.Millisecond)
	require.Len(t, b, FrameSize)
	assert.Equal(t, byte(MsgReport), b[1])

	seq, got, hold, err := DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), seq)
	assert.Equal(t, s, got)
	assert.Equal(t, 1500*time.Millisecond, hold)

	_, _, hold, err = DecodeFrame(EncodeFrame(1, s, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 65535*time.Millisecond, hold)

	b[7] ^= 0xff
	_, _, _, err = DecodeFrame(b)
	require.ErrorContains(t, err, "crc")
	_, _, _, err = DecodeFrame(b[:FrameSize-1])
	require.Error(t, err)
}

func TestTransportWithController(t *testing.T) {
	port := &bufferPort{}
	tr := New(port, slog.Default(), nil)
	c, err := controller.New(switchpro.Topology, tr, controller.Config{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, controller.SendFullState, c.Mode())

	ctx := context.Background()
	require.NoError(t, c.Issue(ctx, controller.Timing{Hold: 10 * time.Millisecond}, controller.Press(switchpro.Home)))
	require.NoError(t, c.WaitForAll(ctx))
	require.NoError(t, c.Close())
	assert.True(t, port.closed)

	home := controller.Neutral()
	home.Buttons = home.Buttons.With(uint8(switchpro.Home))
	states := port.frames(t)
	require.GreaterOrEqual(t, len(states), 2)
	assert.Equal(t, home, states[0])
	assert.Equal(t, controller.Neutral(), states[len(states)-1])
}

func TestTransportWriteFailure(t *testing.T) {
	port := &bufferPort{fail: true}
	tr := New(port, slog.Default(), nil)
	require.NoError(t, tr.Ready())
	require.Error(t, tr.SendState(controller.Neutral(), 0))
	require.ErrorIs(t, tr.Ready(), controller.ErrNotReady)
}
