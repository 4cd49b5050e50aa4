//go:build unix || linux || darwin

package cwd

import (
	"syscall"
)

func (l *fileLock) lock() error {
	// We want blocking behavior, so we don't add LOCK_NB
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_EX)
}

func (l *fileLock) unlock() error {
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
}
