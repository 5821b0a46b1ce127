package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/log"
	"github.com/Alia5/padctl/internal/server/api"
	"github.com/Alia5/padctl/internal/server/api/handler"
)

// Serve exposes a controller over the line based control API.
type Serve struct {
	API        api.ServerConfig  `embed:"" prefix:"api."`
	Output     Output            `embed:"" prefix:"output."`
	Controller controller.Config `embed:"" prefix:"controller."`
}

// Run is called by Kong when the serve command is executed.
func (s *Serve) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := openController(ctx, &s.Output, s.Controller, logger, rawLogger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	srv := api.New(c, s.API.Addr, s.API, logger)
	handler.RegisterAll(srv.Router(), c)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Close()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down control API")
		return nil
	case <-c.Done():
		return c.Err()
	}
}
