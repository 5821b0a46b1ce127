package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alia5/padctl/apitypes"
)

// Client provides a high-level interface to the padctl control API, handling
// request formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the API server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	line, err := c.transport.DoCtx(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.PingResponse](line)
}

// Issue schedules a command. Unless req.Try is set, the call blocks while the
// targeted resources are busy or the controller queue is full.
func (c *Client) Issue(req apitypes.IssueRequest) (*apitypes.PendingResponse, error) {
	return c.IssueCtx(context.Background(), req)
}

func (c *Client) IssueCtx(ctx context.Context, req apitypes.IssueRequest) (*apitypes.PendingResponse, error) {
	if len(req.Targets) == 0 {
		return nil, errors.New("issue needs at least one target")
	}
	line, err := c.transport.DoCtx(ctx, "issue", req, nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.PendingResponse](line)
}

// Wait advances the server's issue cursor by d.
func (c *Client) Wait(d time.Duration) (*apitypes.PendingResponse, error) {
	return c.WaitCtx(context.Background(), d)
}

func (c *Client) WaitCtx(ctx context.Context, d time.Duration) (*apitypes.PendingResponse, error) {
	line, err := c.transport.DoCtx(ctx, "wait", d.String(), nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.PendingResponse](line)
}

// WaitAll blocks until everything scheduled so far has been played.
func (c *Client) WaitAll() (*apitypes.PendingResponse, error) {
	return c.WaitAllCtx(context.Background())
}

func (c *Client) WaitAllCtx(ctx context.Context) (*apitypes.PendingResponse, error) {
	line, err := c.transport.DoCtx(ctx, "waitall", nil, nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.PendingResponse](line)
}

// Cancel drops every queued and scheduled command and releases the controller.
func (c *Client) Cancel() (*apitypes.DroppedResponse, error) {
	return c.CancelCtx(context.Background())
}

func (c *Client) CancelCtx(ctx context.Context) (*apitypes.DroppedResponse, error) {
	line, err := c.transport.DoCtx(ctx, "cancel", nil, nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.DroppedResponse](line)
}

// Replace makes the next issued command replace everything still queued.
func (c *Client) Replace() (*apitypes.DroppedResponse, error) {
	return c.ReplaceCtx(context.Background())
}

func (c *Client) ReplaceCtx(ctx context.Context) (*apitypes.DroppedResponse, error) {
	line, err := c.transport.DoCtx(ctx, "replace", nil, nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.DroppedResponse](line)
}

func (c *Client) Status() (*apitypes.StatusResponse, error) {
	return c.StatusCtx(context.Background())
}

func (c *Client) StatusCtx(ctx context.Context) (*apitypes.StatusResponse, error) {
	line, err := c.transport.DoCtx(ctx, "status", nil, nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.StatusResponse](line)
}

func (c *Client) Topology() (*apitypes.TopologyResponse, error) {
	return c.TopologyCtx(context.Background())
}

func (c *Client) TopologyCtx(ctx context.Context) (*apitypes.TopologyResponse, error) {
	line, err := c.transport.DoCtx(ctx, "topology", nil, nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.TopologyResponse](line)
}

// Request forwards a raw payload over the controller's transport. The payload
// must fit on one line.
func (c *Client) Request(payload string) (*apitypes.RequestResponse, error) {
	return c.RequestCtx(context.Background(), payload)
}

func (c *Client) RequestCtx(ctx context.Context, payload string) (*apitypes.RequestResponse, error) {
	if payload == "" || strings.ContainsAny(payload, "\r\n") {
		return nil, fmt.Errorf("invalid request payload %q", payload)
	}
	line, err := c.transport.DoCtx(ctx, "request", payload, nil)
	if err != nil {
		return nil, err
	}
	return Parse[apitypes.RequestResponse](line)
}

// Parse decodes one response line into T, turning an {"error":...} line into
// an error.
func Parse[T any](line string) (*T, error) {
	if line == "" {
		return nil, errors.New("empty response")
	}
	var ae apitypes.ApiError
	if err := json.Unmarshal([]byte(line), &ae); err == nil && ae.Error != "" {
		return nil, errors.New(ae.Error)
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
