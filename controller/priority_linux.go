package controller

import "golang.org/x/sys/unix"

// raiseThreadPriority lowers the nice value of the calling OS thread. The
// caller must have locked itself to the thread.
func raiseThreadPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), -10)
}
