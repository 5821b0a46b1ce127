package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/Alia5/padctl/internal/log"
)

// Press issues one combined press and exits once it has been released.
type Press struct {
	Targets  []string      `arg:"" help:"Targets such as A, Dpad:up-left or LeftStick:255,128"`
	Delay    time.Duration `help:"Time before the targets go down" default:"0s"`
	Hold     time.Duration `help:"Time the targets stay down" default:"100ms"`
	Cooldown time.Duration `help:"Time the targets stay reserved after release" default:"0s"`

	Output     Output            `embed:"" prefix:"output."`
	Controller controller.Config `embed:"" prefix:"controller."`
}

// Run is called by Kong when the press command is executed.
func (p *Press) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targets, err := controller.ParseTargets(switchpro.Topology, p.Targets)
	if err != nil {
		return err
	}

	c, err := openController(ctx, &p.Output, p.Controller, logger, rawLogger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	timing := controller.Timing{Delay: p.Delay, Hold: p.Hold, Cooldown: p.Cooldown}
	if err := c.Issue(ctx, timing, targets...); err != nil {
		return err
	}
	if err := c.WaitForAll(ctx); err != nil {
		return err
	}
	logger.Info("press sent", "targets", p.Targets, "hold", p.Hold)
	return nil
}
