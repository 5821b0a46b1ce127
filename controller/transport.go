package controller

import (
	"context"
	"time"
)

// Transport is the downstream link to a controller. Every transport also
// implements exactly the sending capability it supports: OperationSender for
// links that accept incremental changes, StateSender for links that need the
// full report each time.
type Transport interface {
	// Ready returns nil when the link can accept data, an error wrapping
	// ErrNotReady otherwise.
	Ready() error
	Close() error
}

// OperationSender accepts diffs.
type OperationSender interface {
	Transport
	SendOperations(ops []Operation) error
}

// StateSender accepts complete states together with how long they are held.
// hold is zero for the final release to neutral.
type StateSender interface {
	Transport
	SendState(s State, hold time.Duration) error
}

// RequestSender is implemented by transports that support raw
// request/response messaging next to the state stream.
type RequestSender interface {
	Request(ctx context.Context, payload []byte) ([]byte, error)
}

// SendMode is the way the dispatcher talks to a transport.
type SendMode uint8

const (
	SendDiff SendMode = iota
	SendFullState
)

func (m SendMode) String() string {
	if m == SendFullState {
		return "full-state"
	}
	return "diff"
}
