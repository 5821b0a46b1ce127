//go:build !linux && !windows

package controller

func raiseThreadPriority() error { return nil }
