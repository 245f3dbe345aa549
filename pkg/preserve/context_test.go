package preserve

import (
	"errors"
	"testing"

	"github.com/mesh-intelligence/quanta/pkg/state"
	"github.com/mesh-intelligence/quanta/pkg/types"
)

// recordingArchive captures every checkpoint offered to it.
type recordingArchive struct {
	saved []types.Checkpoint
}

func (a *recordingArchive) Attach(types.Config) error { return nil }

func (a *recordingArchive) Detach() error { return nil }

func (a *recordingArchive) Save(cp types.Checkpoint) error {
	a.saved = append(a.saved, cp)
	return nil
}

func (a *recordingArchive) Get(string) (types.Checkpoint, error) {
	return types.Checkpoint{}, types.ErrNotFound
}

func (a *recordingArchive) List(string) ([]types.Checkpoint, error) { return nil, nil }

func (a *recordingArchive) Prune(int) (int, error) { return 0, nil }

func newState(t *testing.T) *types.QuantumState {
	t.Helper()
	s, err := state.New(state.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// advance runs one transformation and preserves the result with a forced
// checkpoint, returning the new state.
func advance(t *testing.T, ctx *Context, s *types.QuantumState) *types.QuantumState {
	t.Helper()
	next, err := state.Transform(s, state.Transformation{
		Kind:    state.TransformTranslation,
		Offsets: []float64{0, 1, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.Preserve(next, true); err != nil {
		t.Fatal(err)
	}
	return next
}

func TestNew(t *testing.T) {
	t.Run("seeds one checkpoint at cursor zero", func(t *testing.T) {
		ctx, err := New(newState(t), DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if got := len(ctx.Checkpoints()); got != 1 {
			t.Fatalf("expected 1 checkpoint, got %d", got)
		}
		if ctx.Cursor() != 0 {
			t.Fatalf("expected cursor 0, got %d", ctx.Cursor())
		}
	})

	t.Run("nil state rejected", func(t *testing.T) {
		if _, err := New(nil, DefaultOptions()); !errors.Is(err, ErrNilState) {
			t.Fatalf("expected ErrNilState, got %v", err)
		}
	})

	t.Run("invalid options rejected", func(t *testing.T) {
		if _, err := New(newState(t), Options{CheckpointFrequency: -1}); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("expected ErrInvalidFrequency, got %v", err)
		}
		if _, err := New(newState(t), Options{MaxCheckpoints: -1}); !errors.Is(err, ErrInvalidMaxCheckpoints) {
			t.Fatalf("expected ErrInvalidMaxCheckpoints, got %v", err)
		}
	})
}

func TestPreserve(t *testing.T) {
	t.Run("forced checkpoints are manual", func(t *testing.T) {
		s := newState(t)
		ctx, err := New(s, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := ctx.Preserve(s, true); err != nil {
			t.Fatal(err)
		}
		cps := ctx.Checkpoints()
		if len(cps) != 2 {
			t.Fatalf("expected 2 checkpoints, got %d", len(cps))
		}
		if cps[1].Kind != types.CheckpointManual {
			t.Fatalf("expected manual kind, got %s", cps[1].Kind)
		}
	})

	t.Run("auto-checkpoint fires at the configured frequency", func(t *testing.T) {
		s := newState(t)
		opts := DefaultOptions()
		opts.CheckpointFrequency = 3
		ctx, err := New(s, opts)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 2; i++ {
			if err := ctx.Preserve(s, false); err != nil {
				t.Fatal(err)
			}
			if got := len(ctx.Checkpoints()); got != 1 {
				t.Fatalf("after %d updates: expected 1 checkpoint, got %d", i+1, got)
			}
		}
		if err := ctx.Preserve(s, false); err != nil {
			t.Fatal(err)
		}
		cps := ctx.Checkpoints()
		if len(cps) != 2 {
			t.Fatalf("expected 2 checkpoints, got %d", len(cps))
		}
		if cps[1].Kind != types.CheckpointAutomatic {
			t.Fatalf("expected automatic kind, got %s", cps[1].Kind)
		}
	})

	t.Run("auto-checkpoint disabled means manual only", func(t *testing.T) {
		s := newState(t)
		opts := DefaultOptions()
		opts.AutoCheckpoint = false
		ctx, err := New(s, opts)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 10; i++ {
			if err := ctx.Preserve(s, false); err != nil {
				t.Fatal(err)
			}
		}
		if got := len(ctx.Checkpoints()); got != 1 {
			t.Fatalf("expected 1 checkpoint, got %d", got)
		}
	})

	t.Run("history stays bounded and evicts to the archive", func(t *testing.T) {
		archive := &recordingArchive{}
		opts := DefaultOptions()
		opts.MaxCheckpoints = 3
		opts.Archive = archive
		s := newState(t)
		ctx, err := New(s, opts)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 5; i++ {
			s = advance(t, ctx, s)
		}
		if got := len(ctx.Checkpoints()); got != 3 {
			t.Fatalf("expected history bounded at 3, got %d", got)
		}
		if got := len(archive.saved); got != 3 {
			t.Fatalf("expected 3 evicted checkpoints archived, got %d", got)
		}
		if ctx.Cursor() != 2 {
			t.Fatalf("expected cursor at newest entry, got %d", ctx.Cursor())
		}
	})

	t.Run("repairs a broken state before snapshotting when configured", func(t *testing.T) {
		opts := DefaultOptions()
		opts.VerifyBeforePreservation = true
		opts.RepairIfVerificationFails = true
		ctx, err := New(newState(t), opts)
		if err != nil {
			t.Fatal(err)
		}
		broken := newState(t)
		broken.Coherence = -1
		if err := ctx.Preserve(broken, true); err != nil {
			t.Fatal(err)
		}
		if ctx.Current().Coherence != 1.0 {
			t.Fatalf("expected repaired coherence 1.0, got %v", ctx.Current().Coherence)
		}
	})

	t.Run("nil state rejected", func(t *testing.T) {
		ctx, err := New(newState(t), DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := ctx.Preserve(nil, true); !errors.Is(err, ErrNilState) {
			t.Fatalf("expected ErrNilState, got %v", err)
		}
	})
}

func TestUndoRedo(t *testing.T) {
	t.Run("undo then redo returns to the same state", func(t *testing.T) {
		s := newState(t)
		ctx, err := New(s, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		s2 := advance(t, ctx, s)

		if err := ctx.Undo(); err != nil {
			t.Fatal(err)
		}
		if ctx.Current().Vector.Components[0] != s.Vector.Components[0] {
			t.Fatal("undo did not restore the original state")
		}
		if ctx.Cursor() != 0 {
			t.Fatalf("expected cursor 0 after undo, got %d", ctx.Cursor())
		}

		if err := ctx.Redo(); err != nil {
			t.Fatal(err)
		}
		if ctx.Current().Vector.Components[0] != s2.Vector.Components[0] {
			t.Fatal("redo did not restore the later state")
		}
		if ctx.Cursor() != 1 {
			t.Fatalf("expected cursor 1 after redo, got %d", ctx.Cursor())
		}
	})

	t.Run("undo at the start of history fails", func(t *testing.T) {
		ctx, err := New(newState(t), DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := ctx.Undo(); !errors.Is(err, ErrNoPreviousCheckpoint) {
			t.Fatalf("expected ErrNoPreviousCheckpoint, got %v", err)
		}
	})

	t.Run("redo at the end of history fails", func(t *testing.T) {
		ctx, err := New(newState(t), DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := ctx.Redo(); !errors.Is(err, ErrNoNextCheckpoint) {
			t.Fatalf("expected ErrNoNextCheckpoint, got %v", err)
		}
	})

	t.Run("checkpointing after undo discards the redo branch", func(t *testing.T) {
		s := newState(t)
		ctx, err := New(s, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		s = advance(t, ctx, s)
		s = advance(t, ctx, s)
		if got := len(ctx.Checkpoints()); got != 3 {
			t.Fatalf("expected 3 checkpoints, got %d", got)
		}

		if err := ctx.Undo(); err != nil {
			t.Fatal(err)
		}
		if err := ctx.Undo(); err != nil {
			t.Fatal(err)
		}
		advance(t, ctx, ctx.Current())

		cps := ctx.Checkpoints()
		if len(cps) != 2 {
			t.Fatalf("expected redo branch discarded leaving 2 checkpoints, got %d", len(cps))
		}
		if ctx.Cursor() != 1 {
			t.Fatalf("expected cursor 1, got %d", ctx.Cursor())
		}
		if err := ctx.Redo(); !errors.Is(err, ErrNoNextCheckpoint) {
			t.Fatalf("expected discarded branch to be unreachable, got %v", err)
		}
	})
}

func TestRestore(t *testing.T) {
	t.Run("restores a snapshot by index", func(t *testing.T) {
		s := newState(t)
		ctx, err := New(s, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		advance(t, ctx, s)

		if err := ctx.Restore(0); err != nil {
			t.Fatal(err)
		}
		if ctx.Current().StateID != s.StateID {
			t.Fatal("restore did not recover the snapshotted state")
		}
	})

	t.Run("out of range index rejected", func(t *testing.T) {
		ctx, err := New(newState(t), DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		for _, index := range []int{-1, 1, 99} {
			if err := ctx.Restore(index); !errors.Is(err, ErrCheckpointOutOfRange) {
				t.Fatalf("index %d: expected ErrCheckpointOutOfRange, got %v", index, err)
			}
		}
	})

	t.Run("restored state is detached from the snapshot", func(t *testing.T) {
		s := newState(t)
		ctx, err := New(s, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := ctx.Restore(0); err != nil {
			t.Fatal(err)
		}
		ctx.Current().Vector.Components[0] = 99
		if err := ctx.Restore(0); err != nil {
			t.Fatal(err)
		}
		if ctx.Current().Vector.Components[0] != 1 {
			t.Fatal("checkpoint snapshot was mutated through the restored state")
		}
	})
}

func TestClear(t *testing.T) {
	archive := &recordingArchive{}
	opts := DefaultOptions()
	opts.Archive = archive

	s := newState(t)
	ctx, err := New(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	s = advance(t, ctx, s)
	s = advance(t, ctx, s)

	if err := ctx.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := len(ctx.Checkpoints()); got != 1 {
		t.Fatalf("expected history collapsed to 1, got %d", got)
	}
	if ctx.Cursor() != 0 {
		t.Fatalf("expected cursor 0, got %d", ctx.Cursor())
	}
	if got := len(archive.saved); got != 3 {
		t.Fatalf("expected 3 cleared checkpoints archived, got %d", got)
	}
	if ctx.Current().StateID != s.StateID {
		t.Fatal("clear changed the current state")
	}
}
