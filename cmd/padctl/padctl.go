package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/Alia5/padctl/internal/config"
	"github.com/Alia5/padctl/internal/configpaths"
	"github.com/Alia5/padctl/internal/log"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("padctl"),
		kong.Description(Description()),
		kong.UsageOnError(),
		kong.Help(helpWithTargets),
		// Flags and env override values from the first config file found.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeFiles, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup logger:", err)
		os.Exit(2)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	rawLogger := openRawLogger(cli.Log, logger, &closeFiles)

	ctx.Bind(logger)
	ctx.BindTo(rawLogger, (*log.RawLogger)(nil))

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

// findUserConfig picks --config out of the raw arguments; kong needs the
// config paths before it parses anything.
func findUserConfig(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("PADCTL_CONFIG")
}

func openRawLogger(cfg config.Log, logger *slog.Logger, closeFiles *[]io.Closer) log.RawLogger {
	switch {
	case cfg.RawFile != "":
		f, err := os.OpenFile(cfg.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw log file", "file", cfg.RawFile, "error", err)
			return log.NewRaw(nil)
		}
		*closeFiles = append(*closeFiles, f)
		return log.NewRaw(f)
	case cfg.Level == "trace":
		return log.NewRaw(os.Stdout)
	default:
		return log.NewRaw(nil)
	}
}

// helpWithTargets prints kong's help and, for commands that take targets,
// the target syntax of the Pro controller.
func helpWithTargets(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if n := ctx.Selected(); n == nil || (n.Name != "press" && n.Name != "run") {
		return nil
	}
	_, err := fmt.Fprint(ctx.Stdout, "\n"+targetHelp(switchpro.Topology))
	return err
}

func targetHelp(topo *controller.Topology) string {
	var buttons, dpads, sticks []string
	for _, r := range topo.Resources() {
		switch r.Kind {
		case controller.KindButton:
			buttons = append(buttons, r.Name)
		case controller.KindDpad:
			dpads = append(dpads, r.Name+":<direction>")
		case controller.KindStick:
			sticks = append(sticks, r.Name+":<x>,<y>")
		}
	}
	var dirs []string
	for p := controller.DpadUp; p <= controller.DpadNone; p++ {
		dirs = append(dirs, p.String())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Targets (%s):\n", topo.Name())
	fmt.Fprintf(&b, "  buttons     %s\n", strings.Join(buttons, " "))
	if len(dpads) > 0 {
		fmt.Fprintf(&b, "  dpad        %s, direction one of %s\n", strings.Join(dpads, " "), strings.Join(dirs, " "))
	}
	if len(sticks) > 0 {
		fmt.Fprintf(&b, "  sticks      %s, axes 0-255 with 128 centred\n", strings.Join(sticks, " "))
	}
	return b.String()
}
