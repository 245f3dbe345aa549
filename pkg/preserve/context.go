// Package preserve wraps a stream of QuantumState values in a bounded,
// navigable checkpoint history: auto-checkpointing, undo, redo, and
// restore. Checkpoints are immutable once taken; moving the cursor and
// then checkpointing discards the stale redo branch.
// Implements: prd003-preservation R1-R6; docs/ARCHITECTURE § Preservation.
package preserve

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/quanta/pkg/state"
	"github.com/mesh-intelligence/quanta/pkg/types"
)

// Hard-failure errors for history navigation (programmer errors).
var (
	ErrNilState              = errors.New("preserve: nil state")
	ErrCheckpointOutOfRange  = errors.New("preserve: checkpoint index out of range")
	ErrNoPreviousCheckpoint  = errors.New("preserve: no previous checkpoint")
	ErrNoNextCheckpoint      = errors.New("preserve: no next checkpoint")
	ErrInvalidFrequency      = errors.New("preserve: checkpoint frequency must be positive")
	ErrInvalidMaxCheckpoints = errors.New("preserve: max checkpoints must be positive")
)

// Default option values.
const (
	DefaultCheckpointFrequency = 5
	DefaultMaxCheckpoints      = 20
	DefaultLocation            = "memory"
)

// Options configures a preservation context. Fields default independently;
// use DefaultOptions as a base and override what you need.
type Options struct {
	// AutoCheckpoint enables frequency-based checkpointing in Preserve.
	AutoCheckpoint bool

	// CheckpointFrequency is the number of Preserve calls between
	// automatic checkpoints.
	CheckpointFrequency int

	// MaxCheckpoints bounds the history; the oldest entries are evicted
	// FIFO beyond it.
	MaxCheckpoints int

	// VerifyBeforePreservation verifies the state before snapshotting.
	VerifyBeforePreservation bool

	// VerifyAfterRestoration verifies the state after a restore.
	VerifyAfterRestoration bool

	// RepairIfVerificationFails repairs a state that fails verification
	// during preserve or restore. Without it verification is advisory and
	// the state is preserved or restored unchanged.
	RepairIfVerificationFails bool

	// Location tags checkpoints taken by this context.
	Location string

	// Archive, when set, receives checkpoints evicted from the history
	// (FIFO trimming and Clear). Optional.
	Archive types.Archive
}

// DefaultOptions returns the standard configuration: auto-checkpoint every
// 5 operations, at most 20 checkpoints, no verification.
func DefaultOptions() Options {
	return Options{
		AutoCheckpoint:      true,
		CheckpointFrequency: DefaultCheckpointFrequency,
		MaxCheckpoints:      DefaultMaxCheckpoints,
		Location:            DefaultLocation,
	}
}

// Validate checks that the options are well-formed.
func (o Options) Validate() error {
	if o.CheckpointFrequency < 0 {
		return ErrInvalidFrequency
	}
	if o.MaxCheckpoints < 0 {
		return ErrInvalidMaxCheckpoints
	}
	return nil
}

// normalized fills zero-valued numeric fields with defaults.
func (o Options) normalized() Options {
	if o.CheckpointFrequency == 0 {
		o.CheckpointFrequency = DefaultCheckpointFrequency
	}
	if o.MaxCheckpoints == 0 {
		o.MaxCheckpoints = DefaultMaxCheckpoints
	}
	if o.Location == "" {
		o.Location = DefaultLocation
	}
	return o
}

// Context tracks the current state and its checkpoint history. The cursor
// indexes the checkpoint list; undo and redo move it, and checkpointing
// after a cursor move truncates everything past the cursor. A Context is
// not safe for concurrent use; callers serialize access.
type Context struct {
	current         *types.QuantumState
	checkpoints     []types.Checkpoint
	cursor          int
	sinceCheckpoint int
	opts            Options
}

// New seeds a context with one checkpoint of the given state at cursor 0.
func New(s *types.QuantumState, opts Options) (*Context, error) {
	if s == nil {
		return nil, ErrNilState
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ctx := &Context{current: s, opts: opts.normalized()}
	cp, err := ctx.snapshot(s, types.CheckpointAutomatic)
	if err != nil {
		return nil, err
	}
	ctx.checkpoints = []types.Checkpoint{cp}
	ctx.cursor = 0
	return ctx, nil
}

// Current returns the tracked state.
func (c *Context) Current() *types.QuantumState {
	return c.current
}

// Checkpoints returns a copy of the checkpoint list, oldest first.
func (c *Context) Checkpoints() []types.Checkpoint {
	out := make([]types.Checkpoint, len(c.checkpoints))
	copy(out, c.checkpoints)
	return out
}

// Cursor returns the index of the checkpoint the context is positioned on.
func (c *Context) Cursor() int {
	return c.cursor
}

// Preserve replaces the tracked state. A checkpoint is taken when force is
// set or auto-checkpointing is enabled and the operation counter has
// reached the configured frequency. Taking a checkpoint truncates any
// stale redo branch past the cursor, appends, advances the cursor, and
// trims the oldest entries beyond MaxCheckpoints (offering them to the
// archive when one is configured).
func (c *Context) Preserve(s *types.QuantumState, force bool) error {
	if s == nil {
		return ErrNilState
	}
	c.current = s
	c.sinceCheckpoint++

	if !force && !(c.opts.AutoCheckpoint && c.sinceCheckpoint >= c.opts.CheckpointFrequency) {
		return nil
	}

	snap := s
	if c.opts.VerifyBeforePreservation {
		if result := state.Verify(snap); !result.Success && c.opts.RepairIfVerificationFails {
			repaired, err := state.Repair(snap, result.Errors)
			if err != nil {
				return fmt.Errorf("repairing before preservation: %w", err)
			}
			snap = repaired
			c.current = repaired
		}
	}

	cp, err := c.snapshot(snap, checkpointKind(force))
	if err != nil {
		return err
	}

	// Discard the stale redo branch before appending.
	c.checkpoints = c.checkpoints[:c.cursor+1]
	c.checkpoints = append(c.checkpoints, cp)
	c.cursor = len(c.checkpoints) - 1

	if err := c.trim(); err != nil {
		return err
	}
	c.sinceCheckpoint = 0
	return nil
}

// Restore deserializes the checkpoint at index as the new current state and
// moves the cursor there. Returns ErrCheckpointOutOfRange for an invalid
// index.
func (c *Context) Restore(index int) error {
	if index < 0 || index >= len(c.checkpoints) {
		return ErrCheckpointOutOfRange
	}
	var restored types.QuantumState
	if err := json.Unmarshal(c.checkpoints[index].Snapshot, &restored); err != nil {
		return fmt.Errorf("decoding checkpoint snapshot: %w", err)
	}
	s := &restored
	if c.opts.VerifyAfterRestoration {
		if result := state.Verify(s); !result.Success && c.opts.RepairIfVerificationFails {
			repaired, err := state.Repair(s, result.Errors)
			if err != nil {
				return fmt.Errorf("repairing after restoration: %w", err)
			}
			s = repaired
		}
	}
	c.current = s
	c.cursor = index
	c.sinceCheckpoint = 0
	return nil
}

// Undo moves to the previous checkpoint. Returns ErrNoPreviousCheckpoint
// at the start of the history.
func (c *Context) Undo() error {
	if c.cursor <= 0 {
		return ErrNoPreviousCheckpoint
	}
	return c.Restore(c.cursor - 1)
}

// Redo moves to the next checkpoint. Returns ErrNoNextCheckpoint at the
// end of the history.
func (c *Context) Redo() error {
	if c.cursor >= len(c.checkpoints)-1 {
		return ErrNoNextCheckpoint
	}
	return c.Restore(c.cursor + 1)
}

// Clear collapses the history to a single checkpoint holding the current
// state. Dropped checkpoints are offered to the archive when one is
// configured.
func (c *Context) Clear() error {
	cp, err := c.snapshot(c.current, types.CheckpointManual)
	if err != nil {
		return err
	}
	if c.opts.Archive != nil {
		for _, old := range c.checkpoints {
			if err := c.opts.Archive.Save(old); err != nil {
				return fmt.Errorf("archiving cleared checkpoint: %w", err)
			}
		}
	}
	c.checkpoints = []types.Checkpoint{cp}
	c.cursor = 0
	c.sinceCheckpoint = 0
	return nil
}

// trim evicts the oldest checkpoints beyond MaxCheckpoints, adjusting the
// cursor so it keeps pointing at the same entry.
func (c *Context) trim() error {
	for len(c.checkpoints) > c.opts.MaxCheckpoints {
		evicted := c.checkpoints[0]
		if c.opts.Archive != nil {
			if err := c.opts.Archive.Save(evicted); err != nil {
				return fmt.Errorf("archiving evicted checkpoint: %w", err)
			}
		}
		c.checkpoints = c.checkpoints[1:]
		if c.cursor > 0 {
			c.cursor--
		}
	}
	return nil
}

// snapshot serializes a state into a new immutable checkpoint.
func (c *Context) snapshot(s *types.QuantumState, kind string) (types.Checkpoint, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return types.Checkpoint{}, fmt.Errorf("encoding checkpoint snapshot: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return types.Checkpoint{}, fmt.Errorf("generating UUID v7: %w", err)
	}
	return types.Checkpoint{
		CheckpointID: id.String(),
		CreatedAt:    time.Now().UTC(),
		Snapshot:     data,
		Kind:         kind,
		Location:     c.opts.Location,
	}, nil
}

// checkpointKind maps a forced checkpoint to manual, frequency-triggered
// ones to automatic.
func checkpointKind(force bool) string {
	if force {
		return types.CheckpointManual
	}
	return types.CheckpointAutomatic
}
