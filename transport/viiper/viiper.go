// Package viiper drives a virtual Xbox 360 pad on a VIIPER server. The pad is
// created through VIIPER's line API and then fed XInput states over a device
// stream.
package viiper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/padctl/apiclient"
	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/xbox360"
	"github.com/Alia5/padctl/internal/log"
)

const (
	DefaultAddr = "localhost:3242"
	deviceType  = "xbox360"
	maxBusProbe = 100
)

type busListResponse struct {
	Buses []uint32 `json:"buses"`
}

type busResponse struct {
	BusID uint32 `json:"busId"`
}

type deviceAddResponse struct {
	ID string `json:"id"`
}

type deviceRemoveResponse struct {
	BusID uint32 `json:"busId"`
	DevID string `json:"devId"`
}

// Config selects the VIIPER server and bus.
type Config struct {
	Addr string
	// BusID picks the bus to attach to. Zero uses the lowest existing bus or
	// creates one.
	BusID        uint32
	WriteTimeout time.Duration
}

// Transport is a full-state transport backed by a VIIPER xbox360 device.
type Transport struct {
	api    *apiclient.Transport
	logger *slog.Logger
	raw    log.RawLogger
	cfg    Config

	busID      uint32
	devID      string
	createdBus bool

	mu     sync.Mutex
	conn   net.Conn
	closed bool
	err    error
	rumble xbox360.XRumbleState
}

// Open creates the device and connects its stream.
func Open(ctx context.Context, cfg Config, logger *slog.Logger, raw log.RawLogger) (*Transport, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	t := &Transport{
		api:    apiclient.NewTransport(cfg.Addr),
		logger: logger.With("transport", "viiper", "addr", cfg.Addr),
		raw:    raw,
		cfg:    cfg,
	}
	if err := t.setup(ctx); err != nil {
		t.teardown()
		return nil, fmt.Errorf("%w: viiper %s: %w", controller.ErrNotReady, cfg.Addr, err)
	}
	go t.readRumble()
	return t, nil
}

func (t *Transport) setup(ctx context.Context) error {
	busID, err := t.pickBus(ctx)
	if err != nil {
		return err
	}
	t.busID = busID

	line, err := t.api.DoCtx(ctx, "bus/{id}/add", deviceType, map[string]string{"id": fmt.Sprint(busID)})
	if err != nil {
		return err
	}
	added, err := apiclient.Parse[deviceAddResponse](line)
	if err != nil {
		return fmt.Errorf("add device: %w", err)
	}
	t.devID = added.ID
	if _, dev, ok := strings.Cut(added.ID, "-"); ok && dev != "" {
		t.devID = dev
	}
	t.logger.Info("created virtual pad", "bus", busID, "device", t.devID)

	conn, err := t.api.Dial(ctx)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\n", busID, t.devID); err != nil {
		_ = conn.Close()
		return fmt.Errorf("activate stream: %w", err)
	}
	t.conn = conn
	return nil
}

func (t *Transport) pickBus(ctx context.Context) (uint32, error) {
	line, err := t.api.DoCtx(ctx, "bus/list", nil, nil)
	if err != nil {
		return 0, err
	}
	list, err := apiclient.Parse[busListResponse](line)
	if err != nil {
		return 0, fmt.Errorf("list buses: %w", err)
	}
	if t.cfg.BusID != 0 {
		if slices.Contains(list.Buses, t.cfg.BusID) {
			return t.cfg.BusID, nil
		}
		return t.createBus(ctx, t.cfg.BusID)
	}
	if len(list.Buses) > 0 {
		return slices.Min(list.Buses), nil
	}
	var lastErr error
	for try := uint32(1); try <= maxBusProbe; try++ {
		id, err := t.createBus(ctx, try)
		if err == nil {
			return id, nil
		}
		if ctx.Err() != nil {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("no free bus: %w", lastErr)
}

func (t *Transport) createBus(ctx context.Context, id uint32) (uint32, error) {
	line, err := t.api.DoCtx(ctx, "bus/create", fmt.Sprint(id), nil)
	if err != nil {
		return 0, err
	}
	created, err := apiclient.Parse[busResponse](line)
	if err != nil {
		return 0, fmt.Errorf("create bus %d: %w", id, err)
	}
	t.createdBus = true
	t.logger.Info("created bus", "bus", created.BusID)
	return created.BusID, nil
}

// readRumble consumes the device's rumble reports until the stream closes.
func (t *Transport) readRumble() {
	buf := make([]byte, 2)
	for {
		if _, err := io.ReadFull(t.conn, buf); err != nil {
			t.mu.Lock()
			if !t.closed && t.err == nil {
				t.err = fmt.Errorf("stream closed: %w", err)
			}
			t.mu.Unlock()
			return
		}
		t.raw.Log(false, buf)
		var r xbox360.XRumbleState
		_ = r.UnmarshalBinary(buf)
		t.mu.Lock()
		t.rumble = r
		t.mu.Unlock()
		t.logger.Debug("rumble", "left", r.LeftMotor, "right", r.RightMotor)
	}
}

// Rumble returns the last motor levels reported by the device.
func (t *Transport) Rumble() xbox360.XRumbleState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rumble
}

// Device returns the bus and device id of the virtual pad.
func (t *Transport) Device() (uint32, string) { return t.busID, t.devID }

func (t *Transport) Ready() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		return fmt.Errorf("%w: transport closed", controller.ErrNotReady)
	case t.err != nil:
		return fmt.Errorf("%w: %w", controller.ErrNotReady, t.err)
	}
	return nil
}

// SendState writes the mapped XInput state. VIIPER holds it until the next
// one, so hold is not transmitted.
func (t *Transport) SendState(s controller.State, _ time.Duration) error {
	x := xbox360.FromSwitchPro(s)
	b, err := x.MarshalBinary()
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("%w: transport closed", controller.ErrNotReady)
	}
	t.raw.Log(true, b)
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	if _, err := t.conn.Write(b); err != nil {
		t.err = err
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Close ends the stream and removes the device, and the bus if Open created
// it.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.teardown()
}

func (t *Transport) teardown() error {
	var errs []error
	if t.conn != nil {
		errs = append(errs, t.conn.Close())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if t.devID != "" {
		line, err := t.api.DoCtx(ctx, "bus/{id}/remove", t.devID, map[string]string{"id": fmt.Sprint(t.busID)})
		if err == nil {
			_, err = apiclient.Parse[deviceRemoveResponse](line)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("remove device %s: %w", t.devID, err))
		} else {
			t.logger.Info("removed virtual pad", "bus", t.busID, "device", t.devID)
		}
	}
	if t.createdBus {
		line, err := t.api.DoCtx(ctx, "bus/remove", fmt.Sprint(t.busID), nil)
		if err == nil {
			_, err = apiclient.Parse[busResponse](line)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("remove bus %d: %w", t.busID, err))
		}
	}
	return errors.Join(errs...)
}
