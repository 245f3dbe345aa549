package sqlite

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mesh-intelligence/quanta/pkg/types"
)

func attachedBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}
	if err := b.Attach(config); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := b.Detach(); err != nil {
			t.Errorf("detach: %v", err)
		}
	})
	return b
}

func checkpointAt(id, kind string, created time.Time) types.Checkpoint {
	return types.Checkpoint{
		CheckpointID: id,
		CreatedAt:    created,
		Snapshot:     []byte(fmt.Sprintf(`{"state_id":%q}`, id)),
		Kind:         kind,
		Location:     "memory",
	}
}

func TestAttach(t *testing.T) {
	t.Run("double attach rejected", func(t *testing.T) {
		b := attachedBackend(t)
		err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
		if !errors.Is(err, types.ErrAlreadyAttached) {
			t.Fatalf("expected ErrAlreadyAttached, got %v", err)
		}
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		b := NewBackend()
		if err := b.Attach(types.Config{Backend: "etcd"}); !errors.Is(err, types.ErrBackendUnknown) {
			t.Fatalf("expected ErrBackendUnknown, got %v", err)
		}
	})

	t.Run("detach is idempotent", func(t *testing.T) {
		b := NewBackend()
		if err := b.Detach(); err != nil {
			t.Fatalf("expected detached detach to succeed, got %v", err)
		}
	})

	t.Run("checkpoints survive re-attachment", func(t *testing.T) {
		dir := t.TempDir()
		config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

		b := NewBackend()
		if err := b.Attach(config); err != nil {
			t.Fatal(err)
		}
		if err := b.Save(checkpointAt("cp-1", types.CheckpointManual, time.Now().UTC())); err != nil {
			t.Fatal(err)
		}
		if err := b.Detach(); err != nil {
			t.Fatal(err)
		}

		b2 := NewBackend()
		if err := b2.Attach(config); err != nil {
			t.Fatal(err)
		}
		defer b2.Detach()
		if _, err := b2.Get("cp-1"); err != nil {
			t.Fatalf("expected checkpoint to survive re-attach, got %v", err)
		}
	})
}

func TestSaveGet(t *testing.T) {
	b := attachedBackend(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("roundtrip", func(t *testing.T) {
		want := checkpointAt("cp-1", types.CheckpointManual, created)
		if err := b.Save(want); err != nil {
			t.Fatal(err)
		}
		got, err := b.Get("cp-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.CheckpointID != want.CheckpointID || got.Kind != want.Kind || got.Location != want.Location {
			t.Fatalf("roundtrip mismatch: %+v", got)
		}
		if string(got.Snapshot) != string(want.Snapshot) {
			t.Fatalf("snapshot mismatch: %s", got.Snapshot)
		}
		if !got.CreatedAt.Equal(created) {
			t.Fatalf("expected created_at %v, got %v", created, got.CreatedAt)
		}
	})

	t.Run("save replaces by id", func(t *testing.T) {
		cp := checkpointAt("cp-1", types.CheckpointAutomatic, created)
		if err := b.Save(cp); err != nil {
			t.Fatal(err)
		}
		got, err := b.Get("cp-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Kind != types.CheckpointAutomatic {
			t.Fatalf("expected replaced kind, got %s", got.Kind)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		if _, err := b.Get("cp-missing"); !errors.Is(err, types.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		if err := b.Save(types.Checkpoint{}); !errors.Is(err, types.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID on save, got %v", err)
		}
		if _, err := b.Get(""); !errors.Is(err, types.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID on get, got %v", err)
		}
	})
}

func TestList(t *testing.T) {
	b := attachedBackend(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	kinds := []string{types.CheckpointManual, types.CheckpointAutomatic, types.CheckpointManual}
	for i, kind := range kinds {
		cp := checkpointAt(fmt.Sprintf("cp-%d", i), kind, base.Add(time.Duration(i)*time.Minute))
		if err := b.Save(cp); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("all checkpoints oldest first", func(t *testing.T) {
		got, err := b.List("")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 checkpoints, got %d", len(got))
		}
		for i := range got {
			if want := fmt.Sprintf("cp-%d", i); got[i].CheckpointID != want {
				t.Fatalf("position %d: expected %s, got %s", i, want, got[i].CheckpointID)
			}
		}
	})

	t.Run("filter by kind", func(t *testing.T) {
		got, err := b.List(types.CheckpointAutomatic)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].CheckpointID != "cp-1" {
			t.Fatalf("expected [cp-1], got %+v", got)
		}
	})
}

func TestPrune(t *testing.T) {
	b := attachedBackend(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		cp := checkpointAt(fmt.Sprintf("cp-%d", i), types.CheckpointAutomatic, base.Add(time.Duration(i)*time.Minute))
		if err := b.Save(cp); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := b.Prune(2)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}

	remaining, err := b.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	// The newest two survive.
	if remaining[0].CheckpointID != "cp-3" || remaining[1].CheckpointID != "cp-4" {
		t.Fatalf("expected [cp-3 cp-4], got [%s %s]", remaining[0].CheckpointID, remaining[1].CheckpointID)
	}

	t.Run("negative keep clears everything", func(t *testing.T) {
		deleted, err := b.Prune(-1)
		if err != nil {
			t.Fatal(err)
		}
		if deleted != 2 {
			t.Fatalf("expected 2 deleted, got %d", deleted)
		}
	})
}

func TestDetachedOperations(t *testing.T) {
	b := NewBackend()

	if err := b.Save(checkpointAt("cp-1", types.CheckpointManual, time.Now())); !errors.Is(err, types.ErrArchiveDetached) {
		t.Fatalf("expected ErrArchiveDetached on save, got %v", err)
	}
	if _, err := b.Get("cp-1"); !errors.Is(err, types.ErrArchiveDetached) {
		t.Fatalf("expected ErrArchiveDetached on get, got %v", err)
	}
	if _, err := b.List(""); !errors.Is(err, types.ErrArchiveDetached) {
		t.Fatalf("expected ErrArchiveDetached on list, got %v", err)
	}
	if _, err := b.Prune(0); !errors.Is(err, types.ErrArchiveDetached) {
		t.Fatalf("expected ErrArchiveDetached on prune, got %v", err)
	}
}
