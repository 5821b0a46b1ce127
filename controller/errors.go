package controller

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrResourceConflict is returned when a resource is requested while an
	// earlier command still owns it and the caller could not wait it out.
	ErrResourceConflict = errors.New("resource conflict")
	// ErrCancelled is returned when the caller's context ends while a
	// producer call is suspended. Queue state is left unchanged.
	ErrCancelled = errors.New("cancelled")
	// ErrNotReady is returned when the transport is not connected or the
	// controller has stopped.
	ErrNotReady = errors.New("controller not ready")
	// ErrUnsupportedOperation is returned when the transport lacks a
	// requested capability.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrFatalTransport marks a send failure that stopped the dispatcher.
	ErrFatalTransport = errors.New("fatal transport error")
)

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}
