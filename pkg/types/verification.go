package types

import "time"

// Verification error severities.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// Verification error codes for states.
const (
	CodeMissingID              = "missing_id"
	CodeMissingTimestamp       = "missing_timestamp"
	CodeEmptyVector            = "empty_vector"
	CodeInvalidVector          = "invalid_vector"
	CodeCoherenceOutOfRange    = "coherence_out_of_range"
	CodeEntanglementNoPartner  = "entanglement_missing_partner"
	CodeSuperpositionMismatch  = "superposition_length_mismatch"
	CodeAmplitudesUnnormalized = "amplitudes_not_normalized"
)

// Verification error codes for topology fabrics.
const (
	CodeFabricMissingID        = "fabric_missing_id"
	CodeFabricMissingTimestamp = "fabric_missing_timestamp"
	CodeConnectionEndpointGone = "connection_endpoint_missing"
	CodePathwayConnectionGone  = "pathway_connection_missing"
	CodePathwayNodeGone        = "pathway_node_missing"
	CodeActivePathwayGone      = "active_pathway_missing"
)

// Metric name constants shared by state and fabric verification.
const (
	MetricCoherence             = "coherence"
	MetricLinkValidity          = "link_validity"
	MetricSuperpositionValidity = "superposition_validity"
	MetricWaveform              = "waveform"
	MetricContinuity            = "continuity"
	MetricStability             = "stability"
	MetricConnectivity          = "connectivity"
)

// Tolerances used by verification and normalization.
const (
	// AmplitudeTolerance bounds |Σ amplitude² − 1| for superpositions.
	AmplitudeTolerance = 1e-4

	// NormTolerance bounds |‖components‖₂ − 1| for state vectors.
	NormTolerance = 1e-6
)

// VerificationError describes one consistency violation. SubjectID carries
// the offending entity id as structured data so repair never has to re-parse
// the human-readable message.
type VerificationError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`

	// SubjectID is the id of the offending node, connection, pathway, or
	// entanglement partner. Empty when the violation concerns the entity
	// as a whole.
	SubjectID string `json:"subject_id,omitempty"`
}

// VerificationResult is the soft-failure channel: violations are reported
// as values, never as Go errors. Success holds iff Errors is empty. Score
// is the unweighted mean of Metrics.
type VerificationResult struct {
	Success   bool                `json:"success"`
	Errors    []VerificationError `json:"errors"`
	Metrics   map[string]float64  `json:"metrics"`
	Score     float64             `json:"score"`
	Method    string              `json:"method"`
	CheckedAt time.Time           `json:"checked_at"`
}

// ScoreFromMetrics averages the metric values without weighting.
func ScoreFromMetrics(metrics map[string]float64) float64 {
	if len(metrics) == 0 {
		return 0
	}
	var total float64
	for _, v := range metrics {
		total += v
	}
	return total / float64(len(metrics))
}
