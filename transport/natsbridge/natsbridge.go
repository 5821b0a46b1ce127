// Package natsbridge publishes operation batches on NATS subjects and serves
// them back onto a local transport on the other side.
//
// Subjects, for a prefix such as "padctl.switch-pro":
//
//	<prefix>.ops      JSON transport.Message of type "ops", published
//	<prefix>.request  JSON request message, answered through NATS request/reply
package natsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/log"
	"github.com/Alia5/padctl/transport"
)

// Conn is the part of *nats.Conn the bridge uses.
type Conn interface {
	Publish(subj string, data []byte) error
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	IsConnected() bool
}

// DefaultPrefix returns the subject prefix used for topo.
func DefaultPrefix(topo *controller.Topology) string { return "padctl." + topo.Name() }

func opsSubject(prefix string) string     { return prefix + ".ops" }
func requestSubject(prefix string) string { return prefix + ".request" }

// Connect dials a NATS server with reconnects enabled.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: nats %s: %w", controller.ErrNotReady, url, err)
	}
	return nc, nil
}

// Transport is the publishing side of a bridge. It implements
// controller.OperationSender and controller.RequestSender.
type Transport struct {
	conn   Conn
	prefix string
	topo   *controller.Topology
	logger *slog.Logger
	raw    log.RawLogger
	// closeConn runs on Close when the transport owns the connection.
	closeConn func() error

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// Dial connects to url and returns a transport owning the connection.
func Dial(url, prefix string, topo *controller.Topology, logger *slog.Logger, raw log.RawLogger) (*Transport, error) {
	nc, err := Connect(url, "padctl", logger)
	if err != nil {
		return nil, err
	}
	t := New(nc, prefix, topo, logger, raw)
	t.closeConn = nc.Drain
	logger.Info("connected nats bridge", "url", nc.ConnectedUrl(), "prefix", t.prefix)
	return t, nil
}

// New publishes on an existing connection, which Close leaves open.
func New(conn Conn, prefix string, topo *controller.Topology, logger *slog.Logger, raw log.RawLogger) *Transport {
	if prefix == "" {
		prefix = DefaultPrefix(topo)
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Transport{
		conn:   conn,
		prefix: prefix,
		topo:   topo,
		logger: logger.With("transport", "natsbridge", "prefix", prefix),
		raw:    raw,
	}
}

func (t *Transport) Ready() error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: bridge closed", controller.ErrNotReady)
	}
	if !t.conn.IsConnected() {
		return fmt.Errorf("%w: nats not connected", controller.ErrNotReady)
	}
	return nil
}

func (t *Transport) next(typ string) transport.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	return transport.Message{Type: typ, Seq: t.seq}
}

func (t *Transport) SendOperations(ops []controller.Operation) error {
	if err := t.Ready(); err != nil {
		return err
	}
	m := t.next(transport.TypeOps)
	m.Ops = transport.EncodeOps(t.topo, ops)
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	t.raw.Log(true, data)
	return t.conn.Publish(opsSubject(t.prefix), data)
}

func (t *Transport) Request(ctx context.Context, payload []byte) ([]byte, error) {
	if err := t.Ready(); err != nil {
		return nil, err
	}
	m := t.next(transport.TypeRequest)
	m.Payload = payload
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	t.raw.Log(true, data)
	msg, err := t.conn.RequestWithContext(ctx, requestSubject(t.prefix), data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", controller.ErrCancelled, context.Cause(ctx))
		}
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, fmt.Errorf("%w: no relay on %s", controller.ErrNotReady, requestSubject(t.prefix))
		}
		return nil, err
	}
	t.raw.Log(false, msg.Data)
	var reply transport.Message
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if err := transport.ResponseError(reply); err != nil {
		return nil, err
	}
	return reply.Payload, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closeConn != nil {
		return t.closeConn()
	}
	return nil
}

// Serve subscribes relay to the bridge subjects under prefix. The returned
// stop function unsubscribes and releases the relay.
func Serve(conn Conn, prefix string, relay *transport.Relay, logger *slog.Logger) (stop func() error, err error) {
	logger = logger.With("component", "natsbridge", "prefix", prefix)
	handle := func(msg *nats.Msg) {
		var m transport.Message
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			logger.Warn("invalid bridge message", "subject", msg.Subject, "error", err)
			return
		}
		reply := relay.Handle(context.Background(), m)
		if reply == nil {
			return
		}
		if msg.Reply == "" {
			if reply.Error != "" {
				logger.Warn("bridge message rejected", "seq", m.Seq, "error", reply.Error)
			}
			return
		}
		data, err := json.Marshal(reply)
		if err != nil {
			logger.Error("encode reply", "error", err)
			return
		}
		if err := conn.Publish(msg.Reply, data); err != nil {
			logger.Warn("publish reply", "error", err)
		}
	}

	opsSub, err := conn.Subscribe(opsSubject(prefix), handle)
	if err != nil {
		return nil, err
	}
	reqSub, err := conn.Subscribe(requestSubject(prefix), handle)
	if err != nil {
		_ = opsSub.Unsubscribe()
		return nil, err
	}
	logger.Info("serving nats bridge")
	return func() error {
		return errors.Join(unsubscribe(opsSub), unsubscribe(reqSub), relay.Release())
	}, nil
}

// unsubscribe treats a subscription whose connection is already gone as
// removed.
func unsubscribe(s *nats.Subscription) error {
	err := s.Unsubscribe()
	if err != nil && !errors.Is(err, nats.ErrBadSubscription) && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	return nil
}
