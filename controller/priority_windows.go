package controller

import "golang.org/x/sys/windows"

func raiseThreadPriority() error {
	return windows.SetPriorityClass(windows.CurrentProcess(), windows.HIGH_PRIORITY_CLASS)
}
