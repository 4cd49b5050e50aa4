// Scoped guards: temporary directory changes bound to a lexical scope.
//
// A guard captures the expected path at construction as its restore point
// and takes exclusive use of its parent (handle or outer guard) until it
// restores. Guards therefore nest into a strict LIFO stack: restoring
// guard N always targets the path guard N+1's restore left behind, so the
// unwind is correct no matter how many Set calls happened inside each
// scope. Go cannot enforce the exclusivity statically the way a borrow
// checker would, so the parent carries a lent flag checked at
// construction.
//
// Teardown is two-layered on purpose: Restore is the explicit, fallible
// form for callers who want to handle the error; MustRestore is the
// deferred form, and a failure there has no caller to return to — it
// poisons the lock and panics.
package cwd

import (
	"errors"
	"fmt"
	"os"
)

// Guard is a scoped view of the working directory. Create one with
// Handle.Scoped or Guard.Scoped, and always arrange its teardown:
//
//	g, err := h.Scoped()
//	if err != nil {
//		return err
//	}
//	defer g.MustRestore()
type Guard struct {
	s         *state
	h         *Handle
	parent    *Guard // nil when derived directly from the handle
	restoreTo string
	depth     int // position of restoreTo on the scope stack, 1-based
	lent      bool
	restored  bool
}

// Get returns the current working directory with the same semantics as
// Handle.Get.
func (g *Guard) Get() (string, error) {
	if err := g.usable(); err != nil {
		return "", err
	}
	return g.s.get()
}

// Set changes the working directory with the same semantics as Handle.Set.
// The change is bounded by this guard: whatever happens, Restore targets
// the path captured before the guard existed.
func (g *Guard) Set(path string) error {
	if err := g.usable(); err != nil {
		return err
	}
	return g.s.set(path)
}

// GetExpected returns the cached expected path without a syscall.
func (g *Guard) GetExpected() string {
	return g.s.expected
}

// Scoped creates a nested guard. This guard is lent out and unusable until
// the nested guard restores.
func (g *Guard) Scoped() (*Guard, error) {
	if err := g.usable(); err != nil {
		return nil, err
	}
	restore, err := g.s.get()
	if err != nil {
		return nil, err
	}
	g.s.stack = append(g.s.stack, restore)
	g.lent = true
	return &Guard{s: g.s, h: g.h, parent: g, restoreTo: restore, depth: len(g.s.stack)}, nil
}

// Restore returns the working directory to the guard's restore point and
// hands use back to the parent. Idempotent: after the first success it is
// a no-op. While a nested guard is live it fails with ErrGuardActive. On
// an OS failure (the restore point was deleted, say) it returns the
// wrapped error and changes nothing, so the caller can repair the
// filesystem and call Restore again.
func (g *Guard) Restore() error {
	if g.restored {
		return nil
	}
	if g.lent {
		return ErrGuardActive
	}
	if err := os.Chdir(g.restoreTo); err != nil {
		return fmt.Errorf("cwd: restore %q: %w", g.restoreTo, err)
	}
	prev := g.s.expected
	g.s.expected = g.restoreTo
	// Truncating to depth-1 rather than popping one entry also discards
	// leftovers from an inner guard that panicked and was recovered past.
	// ClearPoison may already have dropped this guard's entry, so never
	// grow the slice back.
	if n := g.depth - 1; n < len(g.s.stack) {
		g.s.stack = g.s.stack[:n]
	}
	g.s.record(EventRestore, prev, g.restoreTo)
	g.restored = true
	if g.parent != nil {
		g.parent.lent = false
	} else {
		g.h.lent = false
	}
	return nil
}

// MustRestore is Restore for deferred teardown. If the restore fails the
// process cannot silently continue with the working directory in an
// unknown state relative to what outer scopes recorded, and there is no
// error channel at scope exit — so MustRestore poisons the lock, recording
// the unreachable restore point as the expected path, and panics with an
// error wrapping ErrPoisoned. The next Acquire receives a *PoisonedError
// and must run the recovery protocol.
//
// During the unwind, outer guards' deferred MustRestore calls fail too:
// the abandoned inner guard still holds them lent. They re-panic to keep
// the unwind going but never touch the poison record — it keeps naming
// the innermost restore point that actually failed.
func (g *Guard) MustRestore() {
	err := g.Restore()
	if err == nil {
		return
	}
	if g.s.poisoned {
		panic(fmt.Errorf("cwd: cannot restore working directory: %w: %w", ErrPoisoned, err))
	}
	if errors.Is(err, ErrGuardActive) {
		// Teardown ordering bug, not an unknown directory state.
		panic(fmt.Errorf("cwd: cannot restore working directory: %w", err))
	}
	g.s.poisoned = true
	g.s.poisonPath = g.restoreTo
	g.s.record(EventPoison, g.s.expected, g.restoreTo)
	panic(fmt.Errorf("cwd: cannot restore working directory: %w: %w", ErrPoisoned, err))
}

func (g *Guard) usable() error {
	if g.s.poisoned {
		return g.s.poisonError()
	}
	if g.restored {
		return ErrRestored
	}
	if g.lent {
		return ErrGuardActive
	}
	return nil
}
