package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/padctl/device/switchpro"
	"github.com/Alia5/padctl/internal/log"
	"github.com/Alia5/padctl/transport"
	"github.com/Alia5/padctl/transport/natsbridge"
	"github.com/Alia5/padctl/transport/wsbridge"
)

// Relay receives operations from a remote padctl and applies them to a local
// transport.
type Relay struct {
	From       string `help:"Where remote operations arrive: ws or nats" enum:"ws,nats" default:"ws" env:"PADCTL_RELAY_FROM"`
	Listen     string `help:"Websocket listen address" default:":3244" env:"PADCTL_RELAY_LISTEN"`
	Path       string `help:"Websocket path" default:"/ws" env:"PADCTL_RELAY_PATH"`
	NatsURL    string `help:"NATS server URL to subscribe on" default:"nats://127.0.0.1:4222" env:"PADCTL_RELAY_NATS_URL"`
	NatsPrefix string `help:"NATS subject prefix (default padctl.<topology>)" env:"PADCTL_RELAY_NATS_PREFIX"`

	Output Output `embed:"" prefix:"output."`
}

// Run is called by Kong when the relay command is executed.
func (r *Relay) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.Output.Kind == r.From {
		return fmt.Errorf("relay cannot forward %s onto itself", r.From)
	}

	tr, err := r.Output.Open(ctx, switchpro.Topology, logger, rawLogger)
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	relay, err := transport.NewRelay(switchpro.Topology, tr, logger)
	if err != nil {
		return err
	}
	defer func() { _ = relay.Release() }()

	switch r.From {
	case "nats":
		return r.serveNATS(ctx, relay, logger)
	default:
		return r.serveWS(ctx, relay, logger)
	}
}

func (r *Relay) serveWS(ctx context.Context, relay *transport.Relay, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(r.Path, wsbridge.NewHandler(relay, logger))
	srv := &http.Server{Addr: r.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", r.Listen, "path", r.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down relay")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (r *Relay) serveNATS(ctx context.Context, relay *transport.Relay, logger *slog.Logger) error {
	nc, err := natsbridge.Connect(r.NatsURL, "padctl-relay", logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	prefix := r.NatsPrefix
	if prefix == "" {
		prefix = natsbridge.DefaultPrefix(switchpro.Topology)
	}
	stopServe, err := natsbridge.Serve(nc, prefix, relay, logger)
	if err != nil {
		return err
	}
	logger.Info("relay subscribed", "url", nc.ConnectedUrl(), "prefix", prefix)

	<-ctx.Done()
	logger.Info("Shutting down relay")
	return stopServe()
}
