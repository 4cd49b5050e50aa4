// Locked handle over the working directory.
//
// A Handle is the only sanctioned way to call os.Getwd and os.Chdir. It
// keeps the cached expected path consistent with the OS: Set updates the
// cache only after the OS call succeeds, so a failed Set leaves no partial
// state. In the default mode Get answers from the cache without a syscall;
// verify mode cross-checks the OS on every read to catch code that changed
// the directory behind the lock's back.
package cwd

import (
	"fmt"
	"os"
	"path/filepath"
)

// Handle represents held ownership of the process-wide lock. Exactly one
// handle is live at a time. It is not safe for concurrent use — it embodies
// single-threaded ownership of a single resource.
type Handle struct {
	s        *state
	lent     bool
	released bool
}

// Get returns the current working directory. By default this is the cached
// expected path, seeded from the OS on first use with no further syscalls.
// With Config.Verify it additionally queries the OS and fails with
// ErrDiverged if the two disagree. Get never mutates OS state. On a
// poisoned handle it fails with ErrPoisoned.
func (h *Handle) Get() (string, error) {
	if h.s.poisoned {
		return "", h.s.poisonError()
	}
	if h.lent {
		return "", ErrGuardActive
	}
	return h.s.get()
}

// Set changes the working directory. Relative paths resolve against the
// current expected path. On success the cache is updated to the cleaned
// absolute path; on failure the OS error is returned and nothing changes.
func (h *Handle) Set(path string) error {
	if h.s.poisoned {
		return h.s.poisonError()
	}
	if h.lent {
		return ErrGuardActive
	}
	return h.s.set(path)
}

// GetExpected returns the cached expected path without any syscall, or ""
// if it is not yet known. Unlike Get it works on a poisoned handle, which
// is what makes it usable during recovery when the OS value is suspect.
func (h *Handle) GetExpected() string {
	return h.s.expected
}

// SetExpected overwrites the cached expected path without touching the OS.
// This is a recovery tool: after repairing the filesystem out of band, the
// caller asserts what the working directory now is. Outside recovery, Set
// is the right call.
func (h *Handle) SetExpected(path string) {
	h.s.expected = filepath.Clean(path)
}

// Scoped creates a guard that will restore the current directory when it
// ends. The handle is lent to the guard and unusable until the guard
// restores; creating a second guard meanwhile fails with ErrGuardActive.
func (h *Handle) Scoped() (*Guard, error) {
	if h.s.poisoned {
		return nil, h.s.poisonError()
	}
	if h.lent {
		return nil, ErrGuardActive
	}
	restore, err := h.s.get()
	if err != nil {
		return nil, err
	}
	h.s.stack = append(h.s.stack, restore)
	h.lent = true
	return &Guard{s: h.s, h: h, restoreTo: restore, depth: len(h.s.stack)}, nil
}

// ScopeStack returns a view over the live restore points. Its main use is
// poison recovery: after the filesystem is repaired, popping the stack
// walks the directory back out of the abandoned scopes.
func (h *Handle) ScopeStack() *Stack {
	return &Stack{s: h.s}
}

// ClearPoison transitions the lock back to normal operation. The caller
// must already have repaired the OS state and corrected the expected path;
// ClearPoison itself never touches the filesystem. No-op if not poisoned.
//
// Restore points still abandoned on the scope stack are discarded: once
// the poison is acknowledged those scopes are void, and stale directories
// must not resurface in later ScopeStack views. Recoveries that want to
// walk back out of the abandoned scopes pop them first via Stack.Pop.
func (h *Handle) ClearPoison() {
	if !h.s.poisoned {
		return
	}
	prev := h.s.poisonPath
	h.s.poisoned = false
	h.s.poisonPath = ""
	h.s.stack = h.s.stack[:0]
	h.s.record(EventClear, prev, h.s.expected)
}

// JournalErr reports the first journal failure, if any. Journaling is
// advisory: appends never fail Set or Restore, they surface here instead.
func (h *Handle) JournalErr() error {
	return h.s.jerr
}

// Release returns the lock. Idempotent. Releasing while a guard derived
// from this handle is still live is a LIFO violation and panics — except
// when the lock is poisoned, because then the release is part of a panic
// unwind that already abandoned the guards.
func (h *Handle) Release() {
	if h.released {
		return
	}
	if h.lent && !h.s.poisoned {
		panic(fmt.Errorf("cwd: release with live guard: %w", ErrGuardActive))
	}
	h.released = true
	h.s.mu.Unlock()
}

func (s *state) poisonError() error {
	return fmt.Errorf("%w: expected working directory %q", ErrPoisoned, s.poisonPath)
}

// get implements the read path shared by Handle, Guard and Stack. Must be
// called with the lock held and the state not poisoned.
func (s *state) get() (string, error) {
	if s.expected == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("cwd: getwd: %w", err)
		}
		s.expected = wd
		return wd, nil
	}
	if s.config.Verify {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("cwd: getwd: %w", err)
		}
		if wd != s.expected {
			return "", fmt.Errorf("%w: os reports %q, expected %q", ErrDiverged, wd, s.expected)
		}
	}
	return s.expected, nil
}

// set implements the write path shared by Handle and Guard. Must be called
// with the lock held and the state not poisoned.
func (s *state) set(path string) error {
	target := path
	if !filepath.IsAbs(target) {
		base := s.expected
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("cwd: getwd: %w", err)
			}
			base = wd
		}
		target = filepath.Join(base, target)
	}
	target = filepath.Clean(target)
	if err := os.Chdir(target); err != nil {
		return fmt.Errorf("cwd: chdir: %w", err)
	}
	prev := s.expected
	s.expected = target
	s.record(EventSet, prev, target)
	return nil
}
