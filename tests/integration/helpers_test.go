// Package integration provides shared helpers for the quanta integration
// suites. Each test gets an isolated temp directory; no global state.
package integration

import (
	"testing"

	"github.com/mesh-intelligence/quanta/internal/sqlite"
	"github.com/mesh-intelligence/quanta/pkg/state"
	"github.com/mesh-intelligence/quanta/pkg/types"
)

// newAttachedBackend creates an archive backend attached to an isolated
// temp directory. Detach is registered as cleanup.
func newAttachedBackend(t *testing.T) (*sqlite.Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := sqlite.NewBackend()
	if err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

// mustNewState builds a default state or fails the test.
func mustNewState(t *testing.T, opts state.Options) *types.QuantumState {
	t.Helper()
	s, err := state.New(opts)
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	return s
}

// mustTransform applies a transformation or fails the test.
func mustTransform(t *testing.T, s *types.QuantumState, op state.Transformation) *types.QuantumState {
	t.Helper()
	next, err := state.Transform(s, op)
	if err != nil {
		t.Fatalf("state.Transform: %v", err)
	}
	return next
}

// translation builds a translation op along the second axis, a convenient
// way to make each step observably different.
func translation(amount float64) state.Transformation {
	return state.Transformation{
		Kind:    state.TransformTranslation,
		Offsets: []float64{0, amount, 0, 0},
	}
}

// isUUIDv7 checks the basic UUID shape and the version nibble.
func isUUIDv7(s string) bool {
	if len(s) != 36 {
		return false
	}
	if s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return false
	}
	return s[14] == '7'
}
