// Package state implements the quantum state engine: construction,
// transformation, entanglement, superposition, and verify/repair of
// immutable QuantumState values. Every operation returns a new value
// built by structural copy; inputs are never modified in place.
// Implements: prd002-state-engine R1-R8; docs/ARCHITECTURE § State Engine.
package state

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/quanta/pkg/types"
)

// Engine operation errors.
var (
	ErrNilState               = errors.New("state: nil state")
	ErrEmptyStateList         = errors.New("state: state list must not be empty")
	ErrAmplitudeCountMismatch = errors.New("state: amplitude count does not match state count")
	ErrZeroAmplitudes         = errors.New("state: amplitudes must not all be zero")
	ErrMissingStateID         = errors.New("state: state has no ID")
	ErrCoherenceOutOfRange    = errors.New("state: coherence must be in (0, 1]")
	ErrInvalidComponents      = errors.New("state: components must be finite and non-empty")
)

// defaultDimension is the component count of a default state vector.
const defaultDimension = 4

// Options configures New. The zero value yields the default state: a
// 4-component unit basis vector in the computational basis with
// coherence 1.0.
type Options struct {
	// Components seeds the vector; normalized on construction.
	// Empty means the unit basis vector [1, 0, 0, 0].
	Components []float64

	// Basis names the coordinate basis. Empty means computational.
	Basis string

	// Coherence is the initial coherence in (0, 1]. Zero means 1.0.
	Coherence float64

	// WaveformKind selects the waveform profile. Empty means sinusoidal.
	WaveformKind string

	// Dimensions seeds named coordinate spaces.
	Dimensions []types.Dimension
}

// Validate checks that the options are well-formed. It returns a sentinel
// error from this package on failure.
func (o Options) Validate() error {
	if o.Coherence != 0 && (o.Coherence <= 0 || o.Coherence > 1) {
		return ErrCoherenceOutOfRange
	}
	for _, c := range o.Components {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return ErrInvalidComponents
		}
	}
	if o.Components != nil && l2norm(o.Components) == 0 {
		return ErrInvalidComponents
	}
	return nil
}

// New builds a QuantumState with sane defaults: unit basis vector,
// coherence 1.0, no entanglement, no superposition, unverified.
func New(opts Options) (*types.QuantumState, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	components := opts.Components
	if len(components) == 0 {
		components = make([]float64, defaultDimension)
		components[0] = 1
	} else {
		components = append([]float64(nil), components...)
	}
	magnitude := l2norm(components)
	scale(components, 1/magnitude)

	basis := opts.Basis
	if basis == "" {
		basis = types.BasisComputational
	}
	coherence := opts.Coherence
	if coherence == 0 {
		coherence = 1.0
	}
	waveformKind := opts.WaveformKind
	if waveformKind == "" {
		waveformKind = types.WaveformSinusoidal
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating UUID v7: %w", err)
	}

	s := &types.QuantumState{
		StateID:   id.String(),
		CreatedAt: time.Now().UTC(),
		Vector: types.StateVector{
			Components:    components,
			Basis:         basis,
			Normalization: magnitude,
			Phase:         0,
		},
		Coherence:    coherence,
		Entanglement: []types.EntanglementRef{},
		Waveform: types.Waveform{
			Phase:     0,
			Amplitude: 1,
			Frequency: 1,
			Kind:      waveformKind,
		},
		Verification: types.VerificationInfo{
			Status: types.VerificationUnverified,
		},
	}
	if opts.Dimensions != nil {
		s.Dimensions = make([]types.Dimension, len(opts.Dimensions))
		for i, d := range opts.Dimensions {
			s.Dimensions[i] = d
			s.Dimensions[i].Coordinates = append([]float64(nil), d.Coordinates...)
		}
	}
	return s, nil
}

// Link entangles two states with a mutual, symmetric back-reference of the
// given kind. The reference is relational, not ownership: removing one side
// does not destroy the other. Both returned states are fresh copies.
func Link(a, b *types.QuantumState, kind string) (*types.QuantumState, *types.QuantumState, error) {
	if a == nil || b == nil {
		return nil, nil, ErrNilState
	}
	if a.StateID == "" || b.StateID == "" {
		return nil, nil, ErrMissingStateID
	}
	a2, b2 := a.Clone(), b.Clone()
	linkInPlace(a2, b2, kind)
	return a2, b2, nil
}

// linkInPlace appends (or refreshes) the mutual entanglement references on
// two already-cloned states.
func linkInPlace(a, b *types.QuantumState, kind string) {
	coherence := math.Min(a.Coherence, b.Coherence)
	upsertRef(a, types.EntanglementRef{PartnerID: b.StateID, Kind: kind, Strength: 1.0, Coherence: coherence})
	upsertRef(b, types.EntanglementRef{PartnerID: a.StateID, Kind: kind, Strength: 1.0, Coherence: coherence})
}

// upsertRef replaces an existing reference to the same partner or appends.
func upsertRef(s *types.QuantumState, ref types.EntanglementRef) {
	for i, existing := range s.Entanglement {
		if existing.PartnerID == ref.PartnerID {
			s.Entanglement[i] = ref
			return
		}
	}
	s.Entanglement = append(s.Entanglement, ref)
}

// Combine builds a new state in superposition over the given member states.
// Missing amplitudes default to equal weights 1/√n; amplitudes are always
// renormalized to unit L2 norm. The resulting coherence is the minimum
// across inputs.
func Combine(states []*types.QuantumState, amplitudes []float64) (*types.QuantumState, error) {
	if len(states) == 0 {
		return nil, ErrEmptyStateList
	}
	if amplitudes != nil && len(amplitudes) != len(states) {
		return nil, ErrAmplitudeCountMismatch
	}

	n := len(states)
	memberIDs := make([]string, n)
	coherence := math.Inf(1)
	for i, s := range states {
		if s == nil {
			return nil, ErrNilState
		}
		if s.StateID == "" {
			return nil, ErrMissingStateID
		}
		memberIDs[i] = s.StateID
		coherence = math.Min(coherence, s.Coherence)
	}

	if amplitudes == nil {
		equal := 1 / math.Sqrt(float64(n))
		amplitudes = make([]float64, n)
		for i := range amplitudes {
			amplitudes[i] = equal
		}
	} else {
		amplitudes = append([]float64(nil), amplitudes...)
		norm := l2norm(amplitudes)
		if norm == 0 {
			return nil, ErrZeroAmplitudes
		}
		scale(amplitudes, 1/norm)
	}

	combined, err := New(Options{})
	if err != nil {
		return nil, err
	}
	combined.Coherence = coherence
	combined.Superposition = &types.Superposition{
		MemberIDs:  memberIDs,
		Amplitudes: amplitudes,
		Coherence:  coherence,
		Phases:     make([]float64, n),
	}
	return combined, nil
}

// Collapse clears the superposition. With no superposition present it is a
// no-op copy. A weighted-random member index is drawn from the squared
// amplitudes, matching the observation model, but the drawn index does not
// select a member vector: the resulting vector is left untouched and only
// the mixture is cleared.
func Collapse(s *types.QuantumState) (*types.QuantumState, error) {
	if s == nil {
		return nil, ErrNilState
	}
	out := s.Clone()
	if out.Superposition == nil {
		return out, nil
	}
	_ = drawMemberIndex(out.Superposition.Amplitudes)
	out.Superposition = nil
	return out, nil
}

// drawMemberIndex picks an index with probability proportional to the
// squared amplitude, falling back to the last index.
func drawMemberIndex(amplitudes []float64) int {
	if len(amplitudes) == 0 {
		return -1
	}
	r := rand.Float64()
	var cumulative float64
	for i, a := range amplitudes {
		cumulative += a * a
		if r <= cumulative {
			return i
		}
	}
	return len(amplitudes) - 1
}

// SynchronizeAll fully links every pair of states with kind "quantum",
// producing a clique of mutual references. O(n²) in the number of states.
func SynchronizeAll(states []*types.QuantumState) ([]*types.QuantumState, error) {
	if len(states) == 0 {
		return nil, ErrEmptyStateList
	}
	out := make([]*types.QuantumState, len(states))
	for i, s := range states {
		if s == nil {
			return nil, ErrNilState
		}
		if s.StateID == "" {
			return nil, ErrMissingStateID
		}
		out[i] = s.Clone()
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			linkInPlace(out[i], out[j], types.LinkKindQuantum)
		}
	}
	return out, nil
}

// l2norm returns the Euclidean norm of v.
func l2norm(v []float64) float64 {
	var sum float64
	for _, c := range v {
		sum += c * c
	}
	return math.Sqrt(sum)
}

// scale multiplies every component of v by factor in place.
func scale(v []float64, factor float64) {
	for i := range v {
		v[i] *= factor
	}
}
