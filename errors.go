// Error taxonomy.
//
// Ordinary failures are returned as wrapped sentinel errors for errors.Is.
// Only a guard's failed restore during teardown escalates beyond a normal
// return: it poisons the lock and panics, because implicit cleanup has no
// caller to hand an error to. PoisonedError is how the next acquirer sees
// that escalation.
package cwd

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic handling.
var (
	ErrPoisoned      = errors.New("lock poisoned by failed restore")
	ErrDiverged      = errors.New("working directory changed outside the lock")
	ErrGuardActive   = errors.New("scoped guard still active")
	ErrRestored      = errors.New("scoped guard already restored")
	ErrConfigured    = errors.New("configuration frozen after first acquire")
	ErrCorruptRecord = errors.New("corrupt journal record")
	ErrDecompress    = errors.New("journal archive decompression failed")
	ErrNotFound      = errors.New("no entry found")
)

// PoisonedError is returned by Acquire when a previous guard could not
// restore its directory. It wraps ErrPoisoned and carries everything the
// recovery protocol needs: the path the process should be at, and a
// handle that holds the lock.
//
// Recovery is caller-driven: repair the filesystem so the recorded path
// exists again, pop the leftover restore points via Handle.ScopeStack (or
// correct the cache with Handle.SetExpected), then Handle.ClearPoison. The
// handle is fully usable after that. Nothing is retried automatically —
// the cause of the failure is external and only the caller can judge that
// the repair is correct.
type PoisonedError struct {
	path string
	h    *Handle
}

func (e *PoisonedError) Error() string {
	return fmt.Sprintf("cwd: lock poisoned, expected working directory %q", e.path)
}

func (e *PoisonedError) Unwrap() error { return ErrPoisoned }

// Expected returns the path the failed restore was targeting.
func (e *PoisonedError) Expected() string { return e.path }

// Handle returns the repair handle. The lock is held; the handle must be
// released like any other.
func (e *PoisonedError) Handle() *Handle { return e.h }
