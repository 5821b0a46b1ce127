package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/Alia5/padctl/internal/configpaths"
	"github.com/Alia5/padctl/internal/log"
	"github.com/Alia5/padctl/script"
)

// Run plays a script file.
type Run struct {
	Script string `arg:"" help:"Script file, or the name of a script in the script directory"`
	Loop   int    `help:"Play the script this many times (0 loops until interrupted)" default:"1"`

	Output     Output            `embed:"" prefix:"output."`
	Controller controller.Config `embed:"" prefix:"controller."`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := configpaths.ResolveScript(r.Script)
	if err != nil {
		return err
	}
	s, err := script.Load(path, switchpro.Topology)
	if err != nil {
		return err
	}

	c, err := openController(ctx, &r.Output, r.Controller, logger, rawLogger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	for i := 0; r.Loop <= 0 || i < r.Loop; i++ {
		if err := script.Run(ctx, c, s, logger); err != nil {
			if errors.Is(err, controller.ErrCancelled) && ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}
