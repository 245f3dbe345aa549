package fabric

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/quanta/pkg/types"
)

// continuityMethod tags results produced by VerifyContinuity.
const continuityMethod = "continuity"

// VerifyContinuity checks the fabric's referential integrity: id and
// timestamp presence, connection endpoints, pathway node and connection
// references, and the active pathway id list. Each violation carries the
// offending entity id in SubjectID so repair never re-parses messages.
// Four metrics (continuity, link validity, stability, connectivity) are
// averaged unweighted into the overall score.
func (f *Fabric) VerifyContinuity() types.VerificationResult {
	result := types.VerificationResult{
		Method:    continuityMethod,
		CheckedAt: time.Now().UTC(),
		Metrics:   map[string]float64{},
	}
	if f == nil {
		result.Errors = append(result.Errors, types.VerificationError{
			Code:     types.CodeFabricMissingID,
			Message:  "fabric is nil",
			Severity: types.SeverityCritical,
		})
		result.Metrics = map[string]float64{
			types.MetricContinuity:   0,
			types.MetricLinkValidity: 0,
			types.MetricStability:    0,
			types.MetricConnectivity: 0,
		}
		return result
	}

	continuity := 1.0
	if f.FabricID == "" {
		continuity = 0
		result.Errors = append(result.Errors, types.VerificationError{
			Code:     types.CodeFabricMissingID,
			Message:  "fabric has no ID",
			Severity: types.SeverityCritical,
		})
	}
	if f.CreatedAt.IsZero() {
		continuity = 0
		result.Errors = append(result.Errors, types.VerificationError{
			Code:     types.CodeFabricMissingTimestamp,
			Message:  "fabric has no creation timestamp",
			Severity: types.SeverityMedium,
		})
	}

	validConnections := 0
	for _, c := range f.Connections {
		if f.hasNode(c.SourceID) && f.hasNode(c.TargetID) {
			validConnections++
			continue
		}
		result.Errors = append(result.Errors, types.VerificationError{
			Code:      types.CodeConnectionEndpointGone,
			Message:   fmt.Sprintf("connection %s references a missing endpoint", c.ConnectionID),
			Severity:  types.SeverityHigh,
			SubjectID: c.ConnectionID,
		})
	}
	linkValidity := 1.0
	if len(f.Connections) > 0 {
		linkValidity = float64(validConnections) / float64(len(f.Connections))
	}

	validPathways := 0
	for _, p := range f.Pathways {
		valid := true
		for _, nodeID := range p.NodeIDs {
			if !f.hasNode(nodeID) {
				valid = false
				result.Errors = append(result.Errors, types.VerificationError{
					Code:      types.CodePathwayNodeGone,
					Message:   fmt.Sprintf("pathway %s references missing node %s", p.PathwayID, nodeID),
					Severity:  types.SeverityHigh,
					SubjectID: p.PathwayID,
				})
			}
		}
		for _, connID := range p.ConnectionIDs {
			if !f.hasConnection(connID) {
				valid = false
				result.Errors = append(result.Errors, types.VerificationError{
					Code:      types.CodePathwayConnectionGone,
					Message:   fmt.Sprintf("pathway %s references missing connection %s", p.PathwayID, connID),
					Severity:  types.SeverityHigh,
					SubjectID: p.PathwayID,
				})
			}
		}
		if valid {
			validPathways++
		}
	}

	validActiveIDs := 0
	for _, id := range f.Status.ActivePathwayIDs {
		idx := f.pathwayByID(id)
		if idx >= 0 && f.Pathways[idx].Status == StatusActive {
			validActiveIDs++
			continue
		}
		result.Errors = append(result.Errors, types.VerificationError{
			Code:      types.CodeActivePathwayGone,
			Message:   fmt.Sprintf("active pathway %s does not exist or is not active", id),
			Severity:  types.SeverityMedium,
			SubjectID: id,
		})
	}

	stability := 1.0
	if denom := len(f.Pathways) + len(f.Status.ActivePathwayIDs); denom > 0 {
		stability = float64(validPathways+validActiveIDs) / float64(denom)
	}

	result.Metrics[types.MetricContinuity] = continuity
	result.Metrics[types.MetricLinkValidity] = linkValidity
	result.Metrics[types.MetricStability] = stability
	result.Metrics[types.MetricConnectivity] = f.connectivity()
	result.Score = types.ScoreFromMetrics(result.Metrics)
	result.Success = len(result.Errors) == 0
	return result
}

// connectivity is the fraction of nodes touched by at least one active
// connection, defined as 1.0 for an empty graph.
func (f *Fabric) connectivity() float64 {
	if len(f.Nodes) == 0 {
		return 1.0
	}
	touched := make(map[string]bool)
	for _, c := range f.Connections {
		if c.Status != StatusActive {
			continue
		}
		touched[c.SourceID] = true
		touched[c.TargetID] = true
	}
	count := 0
	for _, n := range f.Nodes {
		if touched[n.NodeID] {
			count++
		}
	}
	return float64(count) / float64(len(f.Nodes))
}

// RepairContinuity applies one deterministic fix per reported error code,
// keyed by the structured SubjectID: regenerate id and timestamp, drop
// connections with missing endpoints (purging them from pathways), strip
// dangling references from pathways, and remove dangling active pathway
// ids. The status is recomputed afterward.
func (f *Fabric) RepairContinuity(errs []types.VerificationError) (*Fabric, error) {
	if f == nil {
		return nil, ErrNilFabric
	}
	out := f.Clone()
	for _, verr := range errs {
		switch verr.Code {
		case types.CodeFabricMissingID:
			id, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("generating UUID v7: %w", err)
			}
			out.FabricID = id.String()
		case types.CodeFabricMissingTimestamp:
			out.CreatedAt = time.Now().UTC()
		case types.CodeConnectionEndpointGone:
			out.dropConnection(verr.SubjectID)
		case types.CodePathwayNodeGone, types.CodePathwayConnectionGone:
			out.stripDanglingRefs(verr.SubjectID)
		case types.CodeActivePathwayGone:
			out.dropActivePathwayID(verr.SubjectID)
		}
	}
	out.recomputeStatus()
	return out, nil
}

// dropConnection removes the connection and purges its id from every
// pathway.
func (f *Fabric) dropConnection(connID string) {
	kept := f.Connections[:0]
	for _, c := range f.Connections {
		if c.ConnectionID != connID {
			kept = append(kept, c)
		}
	}
	f.Connections = kept
	for i := range f.Pathways {
		ids := f.Pathways[i].ConnectionIDs[:0]
		for _, id := range f.Pathways[i].ConnectionIDs {
			if id != connID {
				ids = append(ids, id)
			}
		}
		f.Pathways[i].ConnectionIDs = ids
	}
}

// stripDanglingRefs removes node and connection references that no longer
// resolve from the given pathway.
func (f *Fabric) stripDanglingRefs(pathwayID string) {
	idx := f.pathwayByID(pathwayID)
	if idx < 0 {
		return
	}
	p := &f.Pathways[idx]
	nodes := p.NodeIDs[:0]
	for _, id := range p.NodeIDs {
		if f.hasNode(id) {
			nodes = append(nodes, id)
		}
	}
	p.NodeIDs = nodes
	conns := p.ConnectionIDs[:0]
	for _, id := range p.ConnectionIDs {
		if f.hasConnection(id) {
			conns = append(conns, id)
		}
	}
	p.ConnectionIDs = conns
}

// dropActivePathwayID removes the id from the active pathway list.
func (f *Fabric) dropActivePathwayID(pathwayID string) {
	kept := f.Status.ActivePathwayIDs[:0]
	for _, id := range f.Status.ActivePathwayIDs {
		if id != pathwayID {
			kept = append(kept, id)
		}
	}
	f.Status.ActivePathwayIDs = kept
}
