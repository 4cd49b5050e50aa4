// Scope-stack view for poison recovery.
//
// The restore points of live guards are kept in package state rather than
// inside the guard objects, because the guards are gone by the time anyone
// needs them: a failed restore panics, the unwind abandons every Guard, and
// what recovery has to work with is the trail of directories they never
// walked back through. Stack exposes that trail on a (typically poisoned)
// handle so the caller can pop the scopes out once the filesystem is
// repaired.
package cwd

import (
	"fmt"
	"os"
	"slices"
)

// Stack is a view over the live restore points, outermost first. Obtain it
// from Handle.ScopeStack. It is only valid while its handle holds the lock.
type Stack struct {
	s *state
}

// Len reports the number of restore points.
func (st *Stack) Len() int {
	return len(st.s.stack)
}

// Paths returns a copy of the restore points, outermost first.
func (st *Stack) Paths() []string {
	return slices.Clone(st.s.stack)
}

// Pop changes the working directory to the innermost restore point and
// removes it, returning the path it restored to. It works on a poisoned
// handle — that is its purpose — but does not clear the poison; call
// Handle.ClearPoison once the stack is unwound. Fails with ErrNotFound on
// an empty stack, or with the OS error if the restore point is still
// unreachable, in which case nothing is popped.
func (st *Stack) Pop() (string, error) {
	n := len(st.s.stack)
	if n == 0 {
		return "", ErrNotFound
	}
	top := st.s.stack[n-1]
	if err := os.Chdir(top); err != nil {
		return "", fmt.Errorf("cwd: restore %q: %w", top, err)
	}
	prev := st.s.expected
	st.s.expected = top
	st.s.stack = st.s.stack[:n-1]
	st.s.record(EventRestore, prev, top)
	return top, nil
}
