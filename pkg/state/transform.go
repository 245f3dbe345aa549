package state

import (
	"errors"
	"math"

	"github.com/mesh-intelligence/quanta/pkg/types"
)

// Transformation kind constants.
const (
	TransformRotation    = "rotation"
	TransformTranslation = "translation"
	TransformScaling     = "scaling"
	TransformCustom      = "custom"
)

// Transformation errors.
var (
	ErrUnknownTransformKind = errors.New("state: unknown transformation kind")
	ErrDimensionMismatch    = errors.New("state: transformation dimension does not match vector")
	ErrDegenerateVector     = errors.New("state: transformation produced a zero vector")
)

// Transformation describes one change to a state vector. Exactly one of
// Matrix, Offsets, or Factors is read, selected by Kind. Coherence is the
// trust carried by the transformation; zero means 1.0.
type Transformation struct {
	Kind      string      `json:"kind"`
	Matrix    [][]float64 `json:"matrix,omitempty"`
	Offsets   []float64   `json:"offsets,omitempty"`
	Factors   []float64   `json:"factors,omitempty"`
	Coherence float64     `json:"coherence,omitempty"`
}

// EffectiveCoherence returns the coherence the transformation carries,
// defaulting the zero value to full trust.
func (t Transformation) EffectiveCoherence() float64 {
	if t.Coherence == 0 {
		return 1.0
	}
	return t.Coherence
}

// Validate checks the transformation against a vector of the given
// dimension. It returns a sentinel error from this package on failure.
func (t Transformation) Validate(dim int) error {
	if t.Coherence != 0 && (t.Coherence < 0 || t.Coherence > 1) {
		return ErrCoherenceOutOfRange
	}
	switch t.Kind {
	case TransformRotation, TransformCustom:
		if len(t.Matrix) != dim {
			return ErrDimensionMismatch
		}
		for _, row := range t.Matrix {
			if len(row) != dim {
				return ErrDimensionMismatch
			}
		}
	case TransformTranslation:
		if len(t.Offsets) != dim {
			return ErrDimensionMismatch
		}
	case TransformScaling:
		if len(t.Factors) != dim {
			return ErrDimensionMismatch
		}
	default:
		return ErrUnknownTransformKind
	}
	return nil
}

// Rotation builds a planar (Givens) rotation by angle radians in the plane
// spanned by axes i and j of a dim-dimensional space.
func Rotation(i, j int, angle float64, dim int) Transformation {
	matrix := make([][]float64, dim)
	for r := range matrix {
		matrix[r] = make([]float64, dim)
		matrix[r][r] = 1
	}
	if i >= 0 && i < dim && j >= 0 && j < dim && i != j {
		cos, sin := math.Cos(angle), math.Sin(angle)
		matrix[i][i] = cos
		matrix[j][j] = cos
		matrix[i][j] = -sin
		matrix[j][i] = sin
	}
	return Transformation{Kind: TransformRotation, Matrix: matrix}
}

// Transform applies op to the state vector, renormalizes the result to unit
// L2 norm, and stores the pre-normalization magnitude as Normalization.
// Coherence becomes min(current, op coherence): transformations can only
// degrade trust, never restore it. The result is marked unverified.
func Transform(s *types.QuantumState, op Transformation) (*types.QuantumState, error) {
	if s == nil {
		return nil, ErrNilState
	}
	dim := len(s.Vector.Components)
	if err := op.Validate(dim); err != nil {
		return nil, err
	}

	out := s.Clone()
	components := out.Vector.Components
	switch op.Kind {
	case TransformRotation, TransformCustom:
		components = matVec(op.Matrix, components)
	case TransformTranslation:
		for i := range components {
			components[i] += op.Offsets[i]
		}
	case TransformScaling:
		for i := range components {
			components[i] *= op.Factors[i]
		}
	}

	magnitude := l2norm(components)
	if magnitude == 0 || math.IsNaN(magnitude) || math.IsInf(magnitude, 0) {
		return nil, ErrDegenerateVector
	}
	scale(components, 1/magnitude)

	out.Vector.Components = components
	out.Vector.Normalization = magnitude
	out.Coherence = math.Min(out.Coherence, op.EffectiveCoherence())
	out.Verification = types.VerificationInfo{Status: types.VerificationUnverified}
	return out, nil
}

// matVec returns matrix × vector for a square matrix.
func matVec(matrix [][]float64, v []float64) []float64 {
	out := make([]float64, len(v))
	for r, row := range matrix {
		var sum float64
		for c, m := range row {
			sum += m * v[c]
		}
		out[r] = sum
	}
	return out
}
