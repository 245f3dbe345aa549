package types

import "time"

// Vector basis constants.
const (
	BasisComputational = "computational"
	BasisHadamard      = "hadamard"
	BasisCustom        = "custom"
)

// Entanglement kind constants. SynchronizeAll always links with
// LinkKindQuantum; callers may use the others for domain-specific edges.
const (
	LinkKindQuantum  = "quantum"
	LinkKindTemporal = "temporal"
	LinkKindSpatial  = "spatial"
	LinkKindCausal   = "causal"
)

// Waveform kind constants.
const (
	WaveformSinusoidal = "sinusoidal"
	WaveformSquare     = "square"
	WaveformComposite  = "composite"
)

// Verification status constants.
const (
	VerificationUnverified = "unverified"
	VerificationVerified   = "verified"
	VerificationFailed     = "failed"
)

// StateVector holds the numeric payload of a state. Components are kept
// L2-normalized after every transformation; Normalization records the
// pre-normalization magnitude so the original scale is recoverable.
type StateVector struct {
	Components    []float64 `json:"components"`
	Basis         string    `json:"basis"`
	Normalization float64   `json:"normalization"`
	Phase         float64   `json:"phase"`
}

// EntanglementRef is a weak relational reference to a partner state. It is
// not ownership: dropping one side never destroys the other.
type EntanglementRef struct {
	PartnerID string       `json:"partner_id"`
	Kind      string       `json:"kind"`
	Strength  float64      `json:"strength"`
	Coherence float64      `json:"coherence"`
	Vector    *StateVector `json:"vector,omitempty"`
}

// Superposition is a weighted mixture of member state IDs. Amplitudes are
// kept L2-normalized (Σ amplitude² ≈ 1 within AmplitudeTolerance) and must
// match MemberIDs in length.
type Superposition struct {
	MemberIDs  []string  `json:"member_ids"`
	Amplitudes []float64 `json:"amplitudes"`
	Coherence  float64   `json:"coherence"`
	Phases     []float64 `json:"phases"`
}

// Waveform describes the oscillatory profile attached to a state.
type Waveform struct {
	Phase      float64            `json:"phase"`
	Amplitude  float64            `json:"amplitude"`
	Frequency  float64            `json:"frequency"`
	Kind       string             `json:"kind"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
}

// Dimension is a named coordinate space with a permeability boundary in [0,1].
type Dimension struct {
	Name         string    `json:"name"`
	Coordinates  []float64 `json:"coordinates"`
	Permeability float64   `json:"permeability"`
}

// VerificationInfo records the outcome of the most recent verification or
// repair pass over a state.
type VerificationInfo struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	Score     float64   `json:"score"`
}

// QuantumState is one immutable version of the managed value. Operations in
// pkg/state never modify a QuantumState in place; every mutation returns a
// structural copy, which is what keeps retained checkpoints valid.
type QuantumState struct {
	StateID       string            `json:"state_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Vector        StateVector       `json:"vector"`
	Coherence     float64           `json:"coherence"`
	Entanglement  []EntanglementRef `json:"entanglement"`
	Superposition *Superposition    `json:"superposition,omitempty"`
	Waveform      Waveform          `json:"waveform"`
	Dimensions    []Dimension       `json:"dimensions,omitempty"`
	Verification  VerificationInfo  `json:"verification"`
}

// Clone returns a deep copy of the state. The copy shares no slices or maps
// with the original.
func (s *QuantumState) Clone() *QuantumState {
	if s == nil {
		return nil
	}
	out := *s
	out.Vector.Components = append([]float64(nil), s.Vector.Components...)
	out.Entanglement = make([]EntanglementRef, len(s.Entanglement))
	for i, ref := range s.Entanglement {
		out.Entanglement[i] = ref
		if ref.Vector != nil {
			v := *ref.Vector
			v.Components = append([]float64(nil), ref.Vector.Components...)
			out.Entanglement[i].Vector = &v
		}
	}
	if s.Superposition != nil {
		sp := Superposition{
			MemberIDs:  append([]string(nil), s.Superposition.MemberIDs...),
			Amplitudes: append([]float64(nil), s.Superposition.Amplitudes...),
			Coherence:  s.Superposition.Coherence,
			Phases:     append([]float64(nil), s.Superposition.Phases...),
		}
		out.Superposition = &sp
	}
	if s.Waveform.Parameters != nil {
		params := make(map[string]float64, len(s.Waveform.Parameters))
		for k, v := range s.Waveform.Parameters {
			params[k] = v
		}
		out.Waveform.Parameters = params
	}
	if s.Dimensions != nil {
		out.Dimensions = make([]Dimension, len(s.Dimensions))
		for i, d := range s.Dimensions {
			out.Dimensions[i] = d
			out.Dimensions[i].Coordinates = append([]float64(nil), d.Coordinates...)
		}
	}
	return &out
}
