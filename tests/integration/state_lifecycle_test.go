// Integration tests for the state engine and preservation context working
// together: construction, transformation, checkpoint history, undo/redo
// navigation, redo-branch truncation, and verify/repair across restores.
// Implements: test-uc001-state-lifecycle;
//             prd002-state-engine R1-R8 (construction, transform, verify, repair);
//             prd003-preservation R1-R6 (checkpoint history, undo/redo, bounds).
package integration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/quanta/pkg/preserve"
	"github.com/mesh-intelligence/quanta/pkg/state"
	"github.com/mesh-intelligence/quanta/pkg/types"
)

// --- S1: Fresh states carry UUID v7 identity and verify clean ---

func TestStateLifecycle_NewStateVerifiesClean(t *testing.T) {
	s := mustNewState(t, state.Options{})

	assert.True(t, isUUIDv7(s.StateID), "state ID should be UUID v7, got %s", s.StateID)
	assert.Equal(t, []float64{1, 0, 0, 0}, s.Vector.Components)
	assert.Equal(t, 1.0, s.Coherence)

	result := state.Verify(s)
	require.True(t, result.Success, "errors: %+v", result.Errors)
	assert.Equal(t, 1.0, result.Score)
}

// --- S2: A transformation chain preserves the unit-norm invariant ---

func TestStateLifecycle_TransformChainKeepsUnitNorm(t *testing.T) {
	s := mustNewState(t, state.Options{})

	ops := []state.Transformation{
		state.Rotation(0, 1, math.Pi/3, 4),
		translation(0.5),
		{Kind: state.TransformScaling, Factors: []float64{2, 0.5, 1, 1}},
		state.Rotation(2, 3, math.Pi/7, 4),
	}
	for _, op := range ops {
		s = mustTransform(t, s, op)
		var norm float64
		for _, c := range s.Vector.Components {
			norm += c * c
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), types.NormTolerance)
	}

	result := state.Verify(s)
	assert.True(t, result.Success, "errors: %+v", result.Errors)
}

// --- S3: Checkpoint history supports undo/redo round trips ---

func TestStateLifecycle_UndoRedoRoundTrip(t *testing.T) {
	s := mustNewState(t, state.Options{})
	ctx, err := preserve.New(s, preserve.DefaultOptions())
	require.NoError(t, err)

	var steps []*types.QuantumState
	steps = append(steps, s)
	for i := 0; i < 3; i++ {
		s = mustTransform(t, s, translation(1))
		require.NoError(t, ctx.Preserve(s, true))
		steps = append(steps, s)
	}
	require.Len(t, ctx.Checkpoints(), 4)
	assert.Equal(t, 3, ctx.Cursor())

	// Walk back to the beginning.
	for i := 2; i >= 0; i-- {
		require.NoError(t, ctx.Undo())
		assert.InDelta(t, steps[i].Vector.Components[1], ctx.Current().Vector.Components[1], 1e-12)
	}
	require.ErrorIs(t, ctx.Undo(), preserve.ErrNoPreviousCheckpoint)

	// And forward again.
	for i := 1; i <= 3; i++ {
		require.NoError(t, ctx.Redo())
		assert.InDelta(t, steps[i].Vector.Components[1], ctx.Current().Vector.Components[1], 1e-12)
	}
	require.ErrorIs(t, ctx.Redo(), preserve.ErrNoNextCheckpoint)
}

// --- S4: Checkpointing after undo discards the stale redo branch ---

func TestStateLifecycle_RedoBranchDiscarded(t *testing.T) {
	s := mustNewState(t, state.Options{})
	ctx, err := preserve.New(s, preserve.DefaultOptions())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s = mustTransform(t, s, translation(1))
		require.NoError(t, ctx.Preserve(s, true))
	}
	require.NoError(t, ctx.Undo())
	require.NoError(t, ctx.Undo())

	// A new checkpoint from the past truncates the two undone entries.
	divergent := mustTransform(t, ctx.Current(), translation(-1))
	require.NoError(t, ctx.Preserve(divergent, true))

	assert.Len(t, ctx.Checkpoints(), 3)
	assert.Equal(t, 2, ctx.Cursor())
	require.ErrorIs(t, ctx.Redo(), preserve.ErrNoNextCheckpoint)
}

// --- S5: Damaged states are repaired on preserve when configured ---

func TestStateLifecycle_RepairOnPreserve(t *testing.T) {
	opts := preserve.DefaultOptions()
	opts.VerifyBeforePreservation = true
	opts.RepairIfVerificationFails = true

	s := mustNewState(t, state.Options{})
	ctx, err := preserve.New(s, opts)
	require.NoError(t, err)

	damaged := s.Clone()
	damaged.Coherence = -0.3
	damaged.Superposition = &types.Superposition{
		MemberIDs:  []string{"m-1", "m-2"},
		Amplitudes: []float64{5, 12},
	}
	require.NoError(t, ctx.Preserve(damaged, true))

	repaired := ctx.Current()
	assert.Equal(t, 1.0, repaired.Coherence)
	require.NotNil(t, repaired.Superposition)
	assert.InDelta(t, 5.0/13.0, repaired.Superposition.Amplitudes[0], 1e-12)

	result := state.Verify(repaired)
	assert.True(t, result.Success, "errors: %+v", result.Errors)
	assert.Equal(t, 1.0, result.Score)
}

// --- S6: Superposition combine and collapse across a preserved history ---

func TestStateLifecycle_CombineCollapse(t *testing.T) {
	members := []*types.QuantumState{
		mustNewState(t, state.Options{Coherence: 0.9}),
		mustNewState(t, state.Options{Coherence: 0.6}),
		mustNewState(t, state.Options{Coherence: 0.8}),
	}

	combined, err := state.Combine(members, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.6, combined.Coherence)
	require.NotNil(t, combined.Superposition)
	assert.Len(t, combined.Superposition.MemberIDs, 3)

	ctx, err := preserve.New(combined, preserve.DefaultOptions())
	require.NoError(t, err)

	collapsed, err := state.Collapse(combined)
	require.NoError(t, err)
	assert.Nil(t, collapsed.Superposition)
	require.NoError(t, ctx.Preserve(collapsed, true))

	// The pre-collapse snapshot still holds the full mixture.
	require.NoError(t, ctx.Undo())
	require.NotNil(t, ctx.Current().Superposition)
	assert.Len(t, ctx.Current().Superposition.MemberIDs, 3)
}
