// Package cwd provides synchronized, scoped access to the process working
// directory. The OS exposes exactly one working directory per process,
// mutable from any goroutine through os.Chdir with no synchronization, so
// concurrent callers (parallel test runners, build tools) race unless they
// coordinate. This package wraps the two OS primitives behind a single
// process-wide exclusive lock and a cached expected path, and layers nested
// scoped guards on top: each guard captures the directory at construction
// and restores it when the scope ends, forming a strict LIFO stack.
//
// A guard's restore can itself fail — the directory it must return to may
// have been deleted while the guard was active. That failure happens during
// implicit cleanup with no caller present to receive an error, so it is
// escalated: the lock is poisoned (recording the path the process should be
// at) and the teardown panics. The next Acquire observes the poison and is
// forced to repair the state explicitly before normal operation resumes.
//
// The lock serializes goroutines within one process only. Code that calls
// os.Chdir directly bypasses it; enable Config.Verify to detect that kind
// of interference at the cost of a Getwd syscall per read. An optional
// transition journal records every directory change to an append-only file
// for audit and post-crash forensics.
package cwd

import "sync"

// state is the per-process shared memory behind the package API. The OS
// working directory may be read or written only while mu is held.
//
// expected is the path this package last set or observed as the OS working
// directory; "" means unknown (before first use). stack holds the restore
// points of live guards, innermost last. It outlives the guard objects on
// purpose: after a failed restore unwinds, the leftover entries are what
// poison recovery pops.
type state struct {
	mu sync.Mutex

	expected   string
	stack      []string
	poisoned   bool
	poisonPath string

	// cfgMu guards the one-shot configuration. The config is frozen and
	// the journal opened on the first acquire; Configure fails afterwards.
	cfgMu   sync.Mutex
	config  Config
	started bool

	journal *journal
	jerr    error
}

// global is the singleton guarding the real process working directory.
var global state

// Acquire blocks until the process-wide lock is available and returns the
// Handle through which the working directory is read and written. Release
// the handle when done.
//
// If a previous guard failed to restore its directory, Acquire returns a
// *PoisonedError instead of a handle. The error carries the path the
// process should be at and a repair handle that holds the lock; see
// PoisonedError for the recovery protocol.
//
// Acquiring twice from the same goroutine deadlocks, exactly as locking a
// sync.Mutex twice would. That is the caller's responsibility.
func Acquire() (*Handle, error) {
	return global.acquire()
}

// Configure sets the process-wide configuration. It must be called before
// the first Acquire; once any handle has been issued the configuration is
// frozen and Configure returns ErrConfigured. The zero Config is valid:
// no verification, no journal.
func Configure(cfg Config) error {
	return global.configure(cfg)
}

func (s *state) configure(cfg Config) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if s.started {
		return ErrConfigured
	}
	s.config = cfg
	return nil
}

// start freezes the configuration and opens the journal, once. A journal
// open failure does not fail Acquire: journaling is advisory, the error is
// held for Handle.JournalErr.
func (s *state) start() {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.config = s.config.withDefaults()
	if s.config.JournalDir != "" {
		j, err := openJournal(s.config)
		if err != nil {
			s.jerr = err
		} else {
			s.journal = j
		}
	}
}

func (s *state) acquire() (*Handle, error) {
	s.start()
	s.mu.Lock()
	h := &Handle{s: s}
	if s.poisoned {
		return nil, &PoisonedError{path: s.poisonPath, h: h}
	}
	return h, nil
}

// record appends a transition to the journal, if one is configured. Journal
// failures never affect the lock or the working directory; only the first
// error is kept.
func (s *state) record(typ int, from, to string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.append(typ, from, to); err != nil && s.jerr == nil {
		s.jerr = err
	}
}
