package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	th "github.com/Alia5/padctl/internal/testing"
)

const yamlScript = `
name: skip-day
steps:
  - press: [Home]
    hold: 80ms
    delay: 1s
  - repeat: 2
    steps:
      - press: ["Dpad:down", "LeftStick:128,0"]
        hold: 50
        delay: 100ms
        cooldown: 10ms
  - wait: 500ms
`

const tomlScript = `
name = "skip-day"

[[steps]]
press = ["Home"]
hold = "80ms"
delay = "1s"

[[steps]]
repeat = 2

  [[steps.steps]]
  press = ["Dpad:down", "LeftStick:128,0"]
  hold = 50
  delay = "100ms"
  cooldown = "10ms"

[[steps]]
wait = "500ms"
`

const jsonScript = `{
  "name": "skip-day",
  "steps": [
    {"press": ["Home"], "hold": "80ms", "delay": "1s"},
    {"repeat": 2, "steps": [
      {"press": ["Dpad:down", "LeftStick:128,0"], "hold": 50, "delay": "100ms", "cooldown": "10ms"}
    ]},
    {"wait": "500ms"}
  ]
}`

// call is one Player invocation.
type call struct {
	kind    string
	timing  controller.Timing
	targets []controller.Target
	wait    time.Duration
}

type recordingPlayer struct {
	calls  []call
	failAt int
}

func (p *recordingPlayer) record(c call) error {
	p.calls = append(p.calls, c)
	if p.failAt > 0 && len(p.calls) == p.failAt {
		return fmt.Errorf("%w: stop", controller.ErrCancelled)
	}
	return nil
}

func (p *recordingPlayer) Issue(_ context.Context, timing controller.Timing, targets ...controller.Target) error {
	return p.record(call{kind: "issue", timing: timing, targets: targets})
}

func (p *recordingPlayer) Wait(_ context.Context, d time.Duration) error {
	return p.record(call{kind: "wait", wait: d})
}

func (p *recordingPlayer) WaitForAll(context.Context) error {
	return p.record(call{kind: "waitall"})
}

func expectedCalls() []call {
	ms := time.Millisecond
	inner := call{
		kind:    "issue",
		timing:  controller.Timing{Delay: 100 * ms, Hold: 50 * ms, Cooldown: 10 * ms},
		targets: []controller.Target{controller.Hat(switchpro.Dpad, controller.DpadDown), controller.Tilt(switchpro.LeftStick, 128, 0)},
	}
	return []call{
		{kind: "issue", timing: controller.Timing{Delay: time.Second, Hold: 80 * ms}, targets: []controller.Target{controller.Press(switchpro.Home)}},
		inner,
		inner,
		{kind: "wait", wait: 500 * ms},
		{kind: "waitall"},
	}
}

func TestParseFormats(t *testing.T) {
	for _, tt := range []struct {
		format Format
		data   string
	}{
		{FormatYAML, yamlScript},
		{FormatTOML, tomlScript},
		{FormatJSON, jsonScript},
	} {
		t.Run(string(tt.format), func(t *testing.T) {
			s, err := Parse([]byte(tt.data), tt.format, switchpro.Topology)
			require.NoError(t, err)
			assert.Equal(t, "skip-day", s.Name)

			p := &recordingPlayer{}
			require.NoError(t, Run(context.Background(), p, s, slog.Default()))
			assert.Equal(t, expectedCalls(), p.calls)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "no steps", data: `name: x`, wantErr: "no steps"},
		{name: "unknown field", data: "steps:\n  - press: [A]\n    turbo: true", wantErr: "turbo"},
		{name: "unknown button", data: "steps:\n  - press: [Turbo]", wantErr: `steps[0]: unknown resource "Turbo"`},
		{name: "two kinds", data: "steps:\n  - press: [A]\n    wait: 1s", wantErr: "exactly one of"},
		{name: "repeat on press", data: "steps:\n  - press: [A]\n    repeat: 2", wantErr: "repeat applies"},
		{name: "bad duration", data: "steps:\n  - press: [A]\n    hold: soon", wantErr: "line 3"},
		{name: "nested error path", data: "steps:\n  - steps:\n      - wait: 1s\n      - press: [Dpad]", wantErr: "steps[0].steps[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), FormatYAML, switchpro.Topology)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reset.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[steps]]\npress = [\"A\"]\n"), 0o600))

	s, err := Load(path, switchpro.Topology)
	require.NoError(t, err)
	assert.Equal(t, "reset", s.Name)

	_, err = Load(filepath.Join(dir, "reset.ini"), switchpro.Topology)
	require.ErrorContains(t, err, "unknown script format")
	_, err = Load(filepath.Join(dir, "missing.yaml"), switchpro.Topology)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunStopsOnError(t *testing.T) {
	s, err := Parse([]byte(yamlScript), FormatYAML, switchpro.Topology)
	require.NoError(t, err)
	p := &recordingPlayer{failAt: 2}
	err = Run(context.Background(), p, s, slog.Default())
	require.ErrorIs(t, err, controller.ErrCancelled)
	assert.Len(t, p.calls, 2)
}

func TestRunThroughController(t *testing.T) {
	s, err := Parse([]byte("steps:\n  - press: [A]\n    hold: 10ms\n    delay: 20ms\n  - press: [B]\n    hold: 10ms\n"), FormatYAML, switchpro.Topology)
	require.NoError(t, err)

	tr := &th.RecordingTransport{}
	c, err := controller.New(switchpro.Topology, tr, controller.Config{}, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, Run(context.Background(), c, s, slog.Default()))
	require.Eventually(t, func() bool { return c.State().Current.IsNeutral() }, time.Second, time.Millisecond)

	a := controller.Neutral()
	a.Buttons = a.Buttons.With(uint8(switchpro.A))
	b := controller.Neutral()
	b.Buttons = b.Buttons.With(uint8(switchpro.B))
	assert.Equal(t, []controller.State{a, controller.Neutral(), b, controller.Neutral()}, tr.States(switchpro.Topology))
}
