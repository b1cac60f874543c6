//go:build !windows

package ocrworker

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// lowerThreadPriority pins the calling goroutine to its OS thread and lowers
// that thread's scheduling priority, the Go analogue of the original
// engine's adjust_thread_priority (pthread_getschedparam/setschedparam):
// OCR workers should never starve the decoder or the rest of the host out of
// CPU time. Best-effort: failures are ignored, matching how little the
// original cared about a priority bump failing on an unusual platform.
func lowerThreadPriority() {
	runtime.LockOSThread()
	_ = unix.Setpriority(unix.PRIO_PROCESS, 0, 10)
}
