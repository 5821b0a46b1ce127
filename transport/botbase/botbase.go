// Package botbase drives a Switch running sys-botbase over its TCP text
// protocol. Only diffs are sent: one line per press, release or stick move.
package botbase

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/Alia5/padctl/internal/log"
)

// DefaultPort is the port sys-botbase listens on.
const DefaultPort = 6000

// Config controls connection timeouts.
type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}

var buttonNames = [switchpro.NumButtons]string{
	switchpro.Y:       "Y",
	switchpro.B:       "B",
	switchpro.A:       "A",
	switchpro.X:       "X",
	switchpro.L:       "L",
	switchpro.R:       "R",
	switchpro.ZL:      "ZL",
	switchpro.ZR:      "ZR",
	switchpro.Minus:   "MINUS",
	switchpro.Plus:    "PLUS",
	switchpro.LClick:  "LSTICK",
	switchpro.RClick:  "RSTICK",
	switchpro.Home:    "HOME",
	switchpro.Capture: "CAPTURE",
}

var dpadNames = [4]string{
	controller.DirUp:    "DU",
	controller.DirRight: "DR",
	controller.DirDown:  "DD",
	controller.DirLeft:  "DL",
}

// Encode renders ops as sys-botbase command lines. Stick axes are scaled to
// the signed 16-bit range with y pointing up.
func Encode(ops []controller.Operation) ([]byte, error) {
	var b strings.Builder
	for _, op := range ops {
		switch {
		case op.Kind == controller.OpSetStick:
			var side string
			switch op.Resource {
			case switchpro.LeftStick:
				side = "LEFT"
			case switchpro.RightStick:
				side = "RIGHT"
			default:
				return nil, fmt.Errorf("resource %d is not a stick", op.Resource)
			}
			x := (int(op.Stick.X) - 128) << 8
			y := (128 - int(op.Stick.Y)) << 8
			fmt.Fprintf(&b, "setStick %s %d %d\n", side, x, min(y, 0x7fff))
			continue
		case op.Resource == switchpro.Dpad:
			if int(op.Direction) >= len(dpadNames) {
				return nil, fmt.Errorf("invalid dpad direction %d", op.Direction)
			}
			writeButton(&b, op.Kind, dpadNames[op.Direction])
		case int(op.Resource) < len(buttonNames):
			writeButton(&b, op.Kind, buttonNames[op.Resource])
		default:
			return nil, fmt.Errorf("resource %d has no sys-botbase name", op.Resource)
		}
	}
	return []byte(b.String()), nil
}

func writeButton(b *strings.Builder, kind controller.OpKind, name string) {
	if kind == controller.OpPress {
		b.WriteString("press ")
	} else {
		b.WriteString("release ")
	}
	b.WriteString(name)
	b.WriteByte('\n')
}

// Transport is a sys-botbase connection.
type Transport struct {
	conn   net.Conn
	cfg    Config
	logger *slog.Logger
	raw    log.RawLogger

	mu     sync.Mutex
	closed bool
	err    error
}

// Dial connects to addr. A missing port defaults to DefaultPort.
func Dial(ctx context.Context, addr string, cfg *Config, logger *slog.Logger, raw log.RawLogger) (*Transport, error) {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}
	d := &net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial sys-botbase: %w", controller.ErrNotReady, err)
	}
	logger.Info("connected to sys-botbase", "addr", addr)
	return New(conn, c, logger, raw), nil
}

// New wraps an established connection.
func New(conn net.Conn, cfg Config, logger *slog.Logger, raw log.RawLogger) *Transport {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Transport{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With("transport", "sys-botbase"),
		raw:    raw,
	}
}

func (t *Transport) Ready() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		return fmt.Errorf("%w: connection closed", controller.ErrNotReady)
	case t.err != nil:
		return fmt.Errorf("%w: %w", controller.ErrNotReady, t.err)
	}
	return nil
}

func (t *Transport) SendOperations(ops []controller.Operation) error {
	msg, err := Encode(ops)
	if err != nil {
		return err
	}
	if len(msg) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("%w: connection closed", controller.ErrNotReady)
	}
	if t.cfg.WriteTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	t.raw.Log(true, msg)
	if _, err := t.conn.Write(msg); err != nil {
		t.err = err
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
