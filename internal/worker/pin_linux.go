//go:build linux

package worker

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinThread locks the calling goroutine to its OS thread and binds that
// thread to one CPU. The lock is never released: the thread exits with the
// goroutine instead of returning to the scheduler with a narrowed affinity.
func pinThread(index int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(index % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
