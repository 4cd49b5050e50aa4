// OS file lock tests. Two fds on the same file act as two processes would:
// flock arbitrates per open file description, not per process handle.
package cwd

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openLockPair(t *testing.T) (*fileLock, *fileLock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal")

	f1, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f1.Close() })

	f2, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f2.Close() })

	return &fileLock{f: f1}, &fileLock{f: f2}
}

func TestFileLockExcludes(t *testing.T) {
	l1, l2 := openLockPair(t)

	if err := l1.Lock(); err != nil {
		t.Fatalf("l1 lock: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := l2.Lock(); err != nil {
			t.Errorf("l2 lock: %v", err)
		}
		l2.Unlock()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("l2 acquired lock while l1 held it")
	case <-time.After(100 * time.Millisecond):
		// Expected: l2 is blocked
	}

	l1.Unlock()

	select {
	case <-done:
		// Success
	case <-time.After(1 * time.Second):
		t.Fatal("l2 failed to acquire lock after release")
	}
}

// After setFile(nil), Lock/Unlock are no-ops rather than crashes on a
// closed fd — the teardown path journal.close relies on this.
func TestFileLockClearedHandle(t *testing.T) {
	l1, _ := openLockPair(t)

	l1.setFile(nil)
	if err := l1.Lock(); err != nil {
		t.Errorf("Lock on cleared handle: %v", err)
	}
	if err := l1.Unlock(); err != nil {
		t.Errorf("Unlock on cleared handle: %v", err)
	}
}
