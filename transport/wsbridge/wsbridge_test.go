package wsbridge

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	th "github.com/Alia5/padctl/internal/testing"
	"github.com/Alia5/padctl/transport"
)

func startBridge(t *testing.T) (*th.RecordingTransport, string) {
	t.Helper()
	sink := &th.RecordingTransport{}
	relay, err := transport.NewRelay(switchpro.Topology, sink, slog.Default())
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(relay, slog.Default()))
	t.Cleanup(srv.Close)
	return sink, "ws" + strings.TrimPrefix(srv.URL, "http") + "/pad"
}

func TestBridgeEndToEnd(t *testing.T) {
	sink, url := startBridge(t)
	ctx := context.Background()

	tr, err := Dial(ctx, url, switchpro.Topology, slog.Default(), nil)
	require.NoError(t, err)
	c, err := controller.New(switchpro.Topology, tr, controller.Config{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, controller.SendDiff, c.Mode())

	require.NoError(t, c.Issue(ctx, controller.Timing{Delay: 10 * time.Millisecond, Hold: 10 * time.Millisecond}, controller.Hat(switchpro.Dpad, controller.DpadDownRight)))
	require.NoError(t, c.Issue(ctx, controller.Timing{Hold: 10 * time.Millisecond}, controller.Press(switchpro.Plus)))
	require.NoError(t, c.WaitForAll(ctx))

	out, err := c.Request(ctx, []byte("status"))
	require.NoError(t, err)
	assert.Equal(t, "echo:status", string(out))

	dpad := controller.Neutral()
	dpad.Dpad = controller.DpadDownRight
	plus := controller.Neutral()
	plus.Buttons = plus.Buttons.With(uint8(switchpro.Plus))
	require.Eventually(t, func() bool {
		states := sink.States(switchpro.Topology)
		return len(states) == 3 && states[2].IsNeutral()
	}, 2*time.Second, time.Millisecond)
	states := sink.States(switchpro.Topology)
	assert.Equal(t, dpad, states[0])
	assert.Equal(t, plus, states[1])

	require.NoError(t, c.Close())
	require.ErrorIs(t, tr.Ready(), controller.ErrNotReady)
}

func TestBridgeReleasesOnDisconnect(t *testing.T) {
	sink, url := startBridge(t)
	tr, err := Dial(context.Background(), url, switchpro.Topology, slog.Default(), nil)
	require.NoError(t, err)

	require.NoError(t, tr.SendOperations([]controller.Operation{{Kind: controller.OpPress, Resource: switchpro.Home}}))
	require.Eventually(t, func() bool { return len(sink.Batches()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, tr.Close())
	require.Eventually(t, func() bool {
		states := sink.States(switchpro.Topology)
		return len(states) == 2 && states[1].IsNeutral()
	}, time.Second, time.Millisecond)
}

func TestBridgeRefusesSecondClient(t *testing.T) {
	_, url := startBridge(t)
	first, err := Dial(context.Background(), url, switchpro.Topology, slog.Default(), nil)
	require.NoError(t, err)
	defer first.Close()

	_, err = Dial(context.Background(), url, switchpro.Topology, slog.Default(), nil)
	require.ErrorIs(t, err, controller.ErrNotReady)
}
