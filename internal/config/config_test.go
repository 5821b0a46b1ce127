package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, opts []kong.Option, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, append([]kong.Option{kong.Name("padctl")}, opts...)...)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, ctx
}

func TestDefaults(t *testing.T) {
	cli, ctx := parse(t, nil, "serve", "--output.botbase", "192.168.1.20")
	assert.Equal(t, "serve", ctx.Command())
	assert.Equal(t, "info", cli.Log.Level)
	assert.Equal(t, "localhost:3243", cli.Serve.API.Addr)
	assert.Equal(t, "botbase", cli.Serve.Output.Kind)
	assert.Equal(t, 115200, cli.Serve.Output.SerialBaud)
	assert.Equal(t, 32, cli.Serve.Controller.QueueSize)
	assert.Equal(t, time.Millisecond, cli.Serve.Controller.WakeMargin)
	assert.True(t, cli.Serve.Controller.Realtime)
}

func TestFlags(t *testing.T) {
	cli, ctx := parse(t, nil,
		"press", "A", "Dpad:left",
		"--hold", "250ms",
		"--output.kind", "viiper",
		"--output.viiper-bus", "3",
		"--controller.queue-size", "8",
		"--no-controller.realtime",
	)
	assert.True(t, strings.HasPrefix(ctx.Command(), "press"), ctx.Command())
	assert.Equal(t, []string{"A", "Dpad:left"}, cli.Press.Targets)
	assert.Equal(t, 250*time.Millisecond, cli.Press.Hold)
	assert.Equal(t, "viiper", cli.Press.Output.Kind)
	assert.Equal(t, uint32(3), cli.Press.Output.ViiperBus)
	assert.Equal(t, 8, cli.Press.Controller.QueueSize)
	assert.False(t, cli.Press.Controller.Realtime)
}

func TestBadOutputKind(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("padctl"))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"serve", "--output.kind", "bluetooth"})
	require.Error(t, err)
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("PADCTL_API_ADDR", "0.0.0.0:9000")
	t.Setenv("PADCTL_LOG_LEVEL", "debug")
	cli, _ := parse(t, nil, "serve")
	assert.Equal(t, "0.0.0.0:9000", cli.Serve.API.Addr)
	assert.Equal(t, "debug", cli.Log.Level)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "log": {"level": "warn"},
  "api": {"addr": "127.0.0.1:4000"}
}`), 0o644))

	cli, _ := parse(t, []kong.Option{kong.Configuration(kong.JSON, path)}, "serve")
	assert.Equal(t, "warn", cli.Log.Level)
	assert.Equal(t, "127.0.0.1:4000", cli.Serve.API.Addr)

	cli, _ = parse(t, []kong.Option{kong.Configuration(kong.JSON, path)}, "serve", "--log.level", "trace")
	assert.Equal(t, "trace", cli.Log.Level, "flags win over files")
}

func TestMissingConfigFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	cli, _ := parse(t, []kong.Option{
		kong.Configuration(kong.JSON, filepath.Join(dir, "config.json")),
		kong.Configuration(kongyaml.Loader, filepath.Join(dir, "config.yaml")),
		kong.Configuration(kongtoml.Loader, filepath.Join(dir, "config.toml")),
	}, "serve")
	assert.Equal(t, "info", cli.Log.Level)
}
