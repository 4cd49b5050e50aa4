package cwd

import (
	"errors"
	"strings"
	"testing"
)

func TestErrors(t *testing.T) {
	// Verify all errors are defined and distinct
	errs := []error{
		ErrPoisoned,
		ErrDiverged,
		ErrGuardActive,
		ErrRestored,
		ErrConfigured,
		ErrCorruptRecord,
		ErrDecompress,
		ErrNotFound,
	}

	// Check none are nil
	for i, err := range errs {
		if err == nil {
			t.Errorf("error at index %d is nil", i)
		}
	}

	// Check all are distinct
	seen := make(map[string]int)
	for i, err := range errs {
		msg := err.Error()
		if prev, ok := seen[msg]; ok {
			t.Errorf("error at index %d has same message as index %d: %q", i, prev, msg)
		}
		seen[msg] = i
	}
}

func TestPoisonedError(t *testing.T) {
	perr := &PoisonedError{path: "/some/where"}

	if !errors.Is(perr, ErrPoisoned) {
		t.Error("PoisonedError does not unwrap to ErrPoisoned")
	}
	if perr.Expected() != "/some/where" {
		t.Errorf("Expected() = %q, want /some/where", perr.Expected())
	}
	if !strings.Contains(perr.Error(), "/some/where") {
		t.Errorf("Error() = %q, want the recorded path included", perr.Error())
	}
}
