//go:build !linux

package worker

import "runtime"

func pinThread(int) error {
	runtime.LockOSThread()
	return nil
}
