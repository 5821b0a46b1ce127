package log

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger records raw wire traffic of transports. A RawLogger created with a
// nil writer discards everything.
type RawLogger interface {
	// Log records one payload. out is true for data sent to the device.
	Log(out bool, data []byte)
	Enabled() bool
}

type rawLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewRaw returns a RawLogger writing hex dumps to w.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

func (r *rawLogger) Enabled() bool { return r.w != nil }

func (r *rawLogger) Log(out bool, data []byte) {
	if r.w == nil {
		return
	}
	dir := "<-"
	if out {
		dir = "->"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.w, "%s %s %d bytes\n%s", time.Now().Format("15:04:05.000000"), dir, len(data), hex.Dump(data))
}
