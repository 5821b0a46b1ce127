package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/Alia5/padctl/internal/log"
	"github.com/Alia5/padctl/transport/botbase"
	"github.com/Alia5/padctl/transport/natsbridge"
	"github.com/Alia5/padctl/transport/serial"
	"github.com/Alia5/padctl/transport/viiper"
	"github.com/Alia5/padctl/transport/wsbridge"
)

// Output selects and configures the transport the controller drives.
type Output struct {
	Kind string `help:"Transport: botbase, serial, viiper, ws or nats" enum:"botbase,serial,viiper,ws,nats" default:"botbase" env:"PADCTL_OUTPUT"`

	Botbase     string        `help:"sys-botbase address (host or host:port)" env:"PADCTL_BOTBASE_ADDR"`
	SerialPort  string        `help:"Serial port of the bridge board" env:"PADCTL_SERIAL_PORT"`
	SerialBaud  int           `help:"Serial baud rate" default:"115200" env:"PADCTL_SERIAL_BAUD"`
	ViiperAddr  string        `help:"VIIPER API address" default:"localhost:3242" env:"PADCTL_VIIPER_ADDR"`
	ViiperBus   uint32        `help:"VIIPER bus to attach to (0 picks or creates one)" env:"PADCTL_VIIPER_BUS"`
	WsURL       string        `name:"ws-url" help:"Relay websocket URL, e.g. ws://host:3244/ws" env:"PADCTL_WS_URL"`
	NatsURL     string        `help:"NATS server URL" default:"nats://127.0.0.1:4222" env:"PADCTL_NATS_URL"`
	NatsPrefix  string        `help:"NATS subject prefix (default padctl.<topology>)" env:"PADCTL_NATS_PREFIX"`
	OpenTimeout time.Duration `help:"Time allowed to connect the transport" default:"5s" env:"PADCTL_OPEN_TIMEOUT"`
}

// Open connects the selected transport for topo.
func (o *Output) Open(ctx context.Context, topo *controller.Topology, logger *slog.Logger, raw log.RawLogger) (controller.Transport, error) {
	if o.OpenTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.OpenTimeout)
		defer cancel()
	}
	logger = logger.With("transport", o.Kind)

	switch o.Kind {
	case "", "botbase":
		if o.Botbase == "" {
			return nil, fmt.Errorf("botbase transport needs --output.botbase")
		}
		return botbase.Dial(ctx, o.Botbase, nil, logger, raw)
	case "serial":
		if o.SerialPort == "" {
			return nil, fmt.Errorf("serial transport needs --output.serial-port")
		}
		return serial.Open(o.SerialPort, o.SerialBaud, logger, raw)
	case "viiper":
		return viiper.Open(ctx, viiper.Config{Addr: o.ViiperAddr, BusID: o.ViiperBus}, logger, raw)
	case "ws":
		if o.WsURL == "" {
			return nil, fmt.Errorf("ws transport needs --output.ws-url")
		}
		return wsbridge.Dial(ctx, o.WsURL, topo, logger, raw)
	case "nats":
		return natsbridge.Dial(o.NatsURL, o.NatsPrefix, topo, logger, raw)
	default:
		return nil, fmt.Errorf("unknown transport %q", o.Kind)
	}
}

// openController connects the output and starts a Switch Pro controller on it.
func openController(ctx context.Context, out *Output, cfg controller.Config, logger *slog.Logger, raw log.RawLogger) (*controller.Controller, error) {
	tr, err := out.Open(ctx, switchpro.Topology, logger, raw)
	if err != nil {
		return nil, err
	}
	c, err := controller.New(switchpro.Topology, tr, cfg, logger)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	logger.Debug("controller ready", "mode", c.Mode(), "queue", cfg.QueueSize)
	return c, nil
}
