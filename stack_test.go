// Scope-stack view tests. The recovery-flavoured Pop paths are covered in
// poison_test.go; this file checks the view itself.
package cwd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStackTracksLiveGuards(t *testing.T) {
	saveWd(t)
	base := tempDir(t)
	sub := filepath.Join(base, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	s := testState(Config{})
	h, _ := s.acquire()
	defer h.Release()
	if err := h.Set(base); err != nil {
		t.Fatal(err)
	}

	st := h.ScopeStack()
	if st.Len() != 0 {
		t.Fatalf("Len before guards = %d, want 0", st.Len())
	}

	g1, err := h.Scoped()
	if err != nil {
		t.Fatal(err)
	}
	if err := g1.Set(sub); err != nil {
		t.Fatal(err)
	}
	g2, err := g1.Scoped()
	if err != nil {
		t.Fatal(err)
	}

	want := []string{base, sub}
	got := st.Paths()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Paths = %v, want %v", got, want)
	}

	// Paths is a copy; mutating it must not touch the real stack.
	got[0] = "/scribbled"
	if st.Paths()[0] != base {
		t.Error("Paths returned a live reference to the stack")
	}

	if err := g2.Restore(); err != nil {
		t.Fatal(err)
	}
	if st.Len() != 1 {
		t.Errorf("Len after inner restore = %d, want 1", st.Len())
	}
	if err := g1.Restore(); err != nil {
		t.Fatal(err)
	}
	if st.Len() != 0 {
		t.Errorf("Len after full unwind = %d, want 0", st.Len())
	}
}

func TestStackPopEmpty(t *testing.T) {
	s := testState(Config{})
	h, _ := s.acquire()
	defer h.Release()

	if _, err := h.ScopeStack().Pop(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Pop on empty stack = %v, want ErrNotFound", err)
	}
}
