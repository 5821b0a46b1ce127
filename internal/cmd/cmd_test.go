package cmd

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alia5/padctl/device/switchpro"
	"github.com/Alia5/padctl/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotbase accepts one connection and collects the lines it receives.
func fakeBotbase(t *testing.T) (addr string, lines <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 64)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			out <- sc.Text()
		}
		close(out)
	}()
	return ln.Addr().String(), out
}

func collect(t *testing.T, lines <-chan string) []string {
	t.Helper()
	var got []string
	for {
		select {
		case l, ok := <-lines:
			if !ok {
				return got
			}
			got = append(got, l)
		case <-time.After(2 * time.Second):
			t.Fatal("botbase connection was not closed")
			return got
		}
	}
}

func TestOutputOpenValidation(t *testing.T) {
	tests := []struct {
		name string
		out  Output
		want string
	}{
		{name: "botbase without address", out: Output{Kind: "botbase"}, want: "--output.botbase"},
		{name: "serial without port", out: Output{Kind: "serial"}, want: "--output.serial-port"},
		{name: "ws without url", out: Output{Kind: "ws"}, want: "--output.ws-url"},
		{name: "unknown", out: Output{Kind: "carrier-pigeon"}, want: "unknown transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.out.Open(context.Background(), switchpro.Topology, slog.Default(), log.NewRaw(nil))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestPressCommand(t *testing.T) {
	addr, lines := fakeBotbase(t)
	p := &Press{
		Targets: []string{"A", "Dpad:up"},
		Hold:    10 * time.Millisecond,
		Output:  Output{Kind: "botbase", Botbase: addr, OpenTimeout: time.Second},
	}
	require.NoError(t, p.Run(slog.Default(), log.NewRaw(nil)))

	assert.Equal(t, []string{"press A", "press DU", "release A", "release DU"}, collect(t, lines))
}

func TestPressCommandBadTarget(t *testing.T) {
	p := &Press{Targets: []string{"Turbo"}, Output: Output{Kind: "botbase", Botbase: "127.0.0.1:1"}}
	require.ErrorContains(t, p.Run(slog.Default(), log.NewRaw(nil)), "Turbo")
}

func TestRunCommand(t *testing.T) {
	addr, lines := fakeBotbase(t)
	path := filepath.Join(t.TempDir(), "combo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
steps:
  - press: [B]
    hold: 10ms
  - wait: 20ms
  - press: [X]
    hold: 10ms
  - wait: 20ms
`), 0o644))

	r := &Run{
		Script: path,
		Loop:   2,
		Output: Output{Kind: "botbase", Botbase: addr, OpenTimeout: time.Second},
	}
	require.NoError(t, r.Run(slog.Default(), log.NewRaw(nil)))

	want := []string{"press B", "release B", "press X", "release X"}
	assert.Equal(t, append(want, want...), collect(t, lines))
}

func TestRelayRefusesLoop(t *testing.T) {
	r := &Relay{From: "ws", Output: Output{Kind: "ws"}}
	require.ErrorContains(t, r.Run(slog.Default(), log.NewRaw(nil)), "onto itself")
}
