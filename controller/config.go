package controller

import (
	"fmt"
	"time"
)

// Config tunes one Controller. The zero value is replaced by defaults.
type Config struct {
	QueueSize  int           `help:"Maximum number of queued states" default:"32" env:"PADCTL_QUEUE_SIZE"`
	WakeMargin time.Duration `help:"How early the dispatcher wakes before an expiration to spin the rest" default:"1ms" env:"PADCTL_WAKE_MARGIN"`
	Realtime   bool          `help:"Raise the dispatcher thread priority" default:"true" negatable:"" env:"PADCTL_REALTIME"`
}

const (
	DefaultQueueSize  = 32
	DefaultWakeMargin = time.Millisecond
	maxWakeMargin     = 50 * time.Millisecond
)

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.WakeMargin == 0 {
		c.WakeMargin = DefaultWakeMargin
	}
	return c
}

// Validate reports a configuration the controller cannot run with.
func (c Config) Validate() error {
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.WakeMargin < 0 || c.WakeMargin > maxWakeMargin {
		return fmt.Errorf("wake margin must be between 0 and %s, got %s", maxWakeMargin, c.WakeMargin)
	}
	return nil
}
