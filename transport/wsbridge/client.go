// Package wsbridge carries operation batches as JSON frames over a WebSocket.
// Dial gives the sending side, Handler the receiving side, which replays the
// batches onto a local transport through a transport.Relay.
package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/log"
	"github.com/Alia5/padctl/transport"
)

const (
	writeWait  = 2 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Transport is the dialling side of a bridge. It implements
// controller.OperationSender and controller.RequestSender.
type Transport struct {
	conn   *websocket.Conn
	topo   *controller.Topology
	logger *slog.Logger
	raw    log.RawLogger

	writeMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]chan transport.Message
	closed  bool
	err     error
	done    chan struct{}
}

// Dial connects to a bridge endpoint such as ws://host:8080/pad.
func Dial(ctx context.Context, url string, topo *controller.Topology, logger *slog.Logger, raw log.RawLogger) (*Transport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{"X-Padctl-Topology": []string{topo.Name()}})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", controller.ErrNotReady, url, err)
	}
	logger.Info("connected bridge", "url", url)
	return New(conn, topo, logger, raw), nil
}

// New starts a transport on an established connection.
func New(conn *websocket.Conn, topo *controller.Topology, logger *slog.Logger, raw log.RawLogger) *Transport {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	t := &Transport{
		conn:    conn,
		topo:    topo,
		logger:  logger.With("transport", "wsbridge"),
		raw:     raw,
		pending: map[uint64]chan transport.Message{},
		done:    make(chan struct{}),
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go t.readLoop()
	go t.pingLoop()
	return t
}

func (t *Transport) readLoop() {
	defer close(t.done)
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if !t.closed {
				t.err = fmt.Errorf("bridge connection lost: %w", err)
				t.logger.Warn("bridge connection lost", "error", err)
			}
			t.mu.Unlock()
			return
		}
		t.raw.Log(false, data)
		var m transport.Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.logger.Warn("invalid bridge frame", "error", err)
			continue
		}
		if m.Type != transport.TypeResponse {
			continue
		}
		t.mu.Lock()
		ch, ok := t.pending[m.Seq]
		delete(t.pending, m.Seq)
		t.mu.Unlock()
		if ok {
			ch <- m
		} else if m.Error != "" {
			t.logger.Warn("bridge rejected frame", "seq", m.Seq, "error", m.Error)
		}
	}
}

func (t *Transport) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.writeMu.Lock()
			err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			t.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *Transport) write(m transport.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.raw.Log(true, data)
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *Transport) nextSeq() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	return t.seq
}

func (t *Transport) Ready() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		return fmt.Errorf("%w: bridge closed", controller.ErrNotReady)
	case t.err != nil:
		return fmt.Errorf("%w: %w", controller.ErrNotReady, t.err)
	}
	return nil
}

func (t *Transport) SendOperations(ops []controller.Operation) error {
	if err := t.Ready(); err != nil {
		return err
	}
	return t.write(transport.Message{
		Type: transport.TypeOps,
		Seq:  t.nextSeq(),
		Ops:  transport.EncodeOps(t.topo, ops),
	})
}

// Request sends payload and waits for the matching response.
func (t *Transport) Request(ctx context.Context, payload []byte) ([]byte, error) {
	if err := t.Ready(); err != nil {
		return nil, err
	}
	ch := make(chan transport.Message, 1)
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.pending[seq] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, seq)
		t.mu.Unlock()
	}()

	if err := t.write(transport.Message{Type: transport.TypeRequest, Seq: seq, Payload: payload}); err != nil {
		return nil, err
	}
	select {
	case m := <-ch:
		if err := transport.ResponseError(m); err != nil {
			return nil, err
		}
		return m.Payload, nil
	case <-t.done:
		return nil, fmt.Errorf("%w: bridge closed during request", controller.ErrNotReady)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", controller.ErrCancelled, context.Cause(ctx))
	}
}

// Close sends a close frame and tears the connection down.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	t.writeMu.Unlock()
	select {
	case <-t.done:
	case <-time.After(writeWait):
	}
	return t.conn.Close()
}
