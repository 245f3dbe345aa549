// Package fabric models propagation topology for arbitrary tagged
// payloads ("streams"): a graph of nodes, connections, and named pathways
// sharing the checkpoint and verify/repair discipline of the state engine
// while staying independent of it. Every mutation returns a new Fabric
// value built by structural copy.
// Implements: prd006-topology-fabric R1-R7; docs/ARCHITECTURE § Topology Fabric.
package fabric

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Node and connection status constants.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDegraded = "degraded"
)

// Fabric health constants.
const (
	HealthStable   = "stable"
	HealthDegraded = "degraded"
	HealthCritical = "critical"
)

// Fabric operation errors.
var (
	ErrNilFabric          = errors.New("fabric: nil fabric")
	ErrNodeNotFound       = errors.New("fabric: node not found")
	ErrConnectionNotFound = errors.New("fabric: connection not found")
	ErrEmptyStreamID      = errors.New("fabric: stream ID must not be empty")
	ErrInvalidSnapshot    = errors.New("fabric: snapshot does not hold a fabric")
)

// Node is one vertex of the topology graph.
type Node struct {
	NodeID          string            `json:"node_id"`
	Kind            string            `json:"kind"`
	Name            string            `json:"name"`
	Status          string            `json:"status"`
	ActivationLevel float64           `json:"activation_level"`
	Coordinates     []float64         `json:"coordinates,omitempty"`
	ReferenceTags   []string          `json:"reference_tags,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Connection is one edge of the topology graph. LinkStrength and
// LinkCoherence are optional overrides; nil means unset.
type Connection struct {
	ConnectionID  string   `json:"connection_id"`
	SourceID      string   `json:"source_id"`
	TargetID      string   `json:"target_id"`
	Kind          string   `json:"kind"`
	Strength      float64  `json:"strength"`
	Status        string   `json:"status"`
	Bidirectional bool     `json:"bidirectional"`
	LinkStrength  *float64 `json:"link_strength,omitempty"`
	LinkCoherence *float64 `json:"link_coherence,omitempty"`
}

// Pathway is a named route through the graph, optionally tagged with the
// stream it carries.
type Pathway struct {
	PathwayID     string            `json:"pathway_id"`
	Name          string            `json:"name"`
	ConnectionIDs []string          `json:"connection_ids,omitempty"`
	NodeIDs       []string          `json:"node_ids,omitempty"`
	Kind          string            `json:"kind"`
	Status        string            `json:"status"`
	Strength      float64           `json:"strength"`
	StreamTag     string            `json:"stream_tag,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Status is the rolled-up condition of the fabric.
type Status struct {
	Coherence        float64  `json:"coherence"`
	ActivationLevel  float64  `json:"activation_level"`
	Stability        float64  `json:"stability"`
	ActiveStreamIDs  []string `json:"active_stream_ids,omitempty"`
	ActivePathwayIDs []string `json:"active_pathway_ids,omitempty"`
	Health           string   `json:"health"`
}

// Fabric is one immutable version of the topology graph.
type Fabric struct {
	FabricID    string       `json:"fabric_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Nodes       []Node       `json:"nodes,omitempty"`
	Connections []Connection `json:"connections,omitempty"`
	Pathways    []Pathway    `json:"pathways,omitempty"`
	Status      Status       `json:"status"`
}

// Options seeds a new fabric. Seeds are taken as-is and may violate the
// referential invariants; VerifyContinuity and RepairContinuity exist to
// find and fix that. The Add methods, by contrast, validate references.
type Options struct {
	Nodes       []Node
	Connections []Connection
	Pathways    []Pathway
	Streams     []string
}

// New builds a fabric from the supplied seeds with defaults applied and
// the status rolled up. Seeded pathways that are active are registered in
// ActivePathwayIDs.
func New(opts Options) (*Fabric, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating UUID v7: %w", err)
	}
	f := &Fabric{
		FabricID:    id.String(),
		CreatedAt:   time.Now().UTC(),
		Nodes:       append([]Node(nil), opts.Nodes...),
		Connections: append([]Connection(nil), opts.Connections...),
		Pathways:    append([]Pathway(nil), opts.Pathways...),
	}
	f.Status.ActiveStreamIDs = append([]string(nil), opts.Streams...)
	for _, p := range f.Pathways {
		if p.Status == StatusActive {
			f.Status.ActivePathwayIDs = append(f.Status.ActivePathwayIDs, p.PathwayID)
		}
	}
	f.recomputeStatus()
	return f, nil
}

// Clone returns a deep copy of the fabric.
func (f *Fabric) Clone() *Fabric {
	if f == nil {
		return nil
	}
	out := *f
	out.Nodes = make([]Node, len(f.Nodes))
	for i, n := range f.Nodes {
		out.Nodes[i] = n
		out.Nodes[i].Coordinates = append([]float64(nil), n.Coordinates...)
		out.Nodes[i].ReferenceTags = append([]string(nil), n.ReferenceTags...)
		out.Nodes[i].Metadata = cloneStringMap(n.Metadata)
	}
	out.Connections = make([]Connection, len(f.Connections))
	for i, c := range f.Connections {
		out.Connections[i] = c
		if c.LinkStrength != nil {
			v := *c.LinkStrength
			out.Connections[i].LinkStrength = &v
		}
		if c.LinkCoherence != nil {
			v := *c.LinkCoherence
			out.Connections[i].LinkCoherence = &v
		}
	}
	out.Pathways = make([]Pathway, len(f.Pathways))
	for i, p := range f.Pathways {
		out.Pathways[i] = p
		out.Pathways[i].ConnectionIDs = append([]string(nil), p.ConnectionIDs...)
		out.Pathways[i].NodeIDs = append([]string(nil), p.NodeIDs...)
		out.Pathways[i].Metadata = cloneStringMap(p.Metadata)
	}
	out.Status.ActiveStreamIDs = append([]string(nil), f.Status.ActiveStreamIDs...)
	out.Status.ActivePathwayIDs = append([]string(nil), f.Status.ActivePathwayIDs...)
	return &out
}

// AddNode appends a node and returns the new fabric. A missing id is
// generated; a missing status defaults to active.
func (f *Fabric) AddNode(n Node) (*Fabric, error) {
	if f == nil {
		return nil, ErrNilFabric
	}
	if n.NodeID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating UUID v7: %w", err)
		}
		n.NodeID = id.String()
	}
	if n.Status == "" {
		n.Status = StatusActive
	}
	out := f.Clone()
	out.Nodes = append(out.Nodes, n)
	out.recomputeStatus()
	return out, nil
}

// AddConnection appends a connection and returns the new fabric. Both
// endpoints must already exist among the nodes.
func (f *Fabric) AddConnection(c Connection) (*Fabric, error) {
	if f == nil {
		return nil, ErrNilFabric
	}
	if !f.hasNode(c.SourceID) || !f.hasNode(c.TargetID) {
		return nil, ErrNodeNotFound
	}
	if c.ConnectionID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating UUID v7: %w", err)
		}
		c.ConnectionID = id.String()
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	out := f.Clone()
	out.Connections = append(out.Connections, c)
	out.recomputeStatus()
	return out, nil
}

// AddPathway appends a pathway and returns the new fabric. Every
// referenced node and connection must exist. An active pathway is also
// registered in ActivePathwayIDs.
func (f *Fabric) AddPathway(p Pathway) (*Fabric, error) {
	if f == nil {
		return nil, ErrNilFabric
	}
	for _, nodeID := range p.NodeIDs {
		if !f.hasNode(nodeID) {
			return nil, ErrNodeNotFound
		}
	}
	for _, connID := range p.ConnectionIDs {
		if !f.hasConnection(connID) {
			return nil, ErrConnectionNotFound
		}
	}
	if p.PathwayID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating UUID v7: %w", err)
		}
		p.PathwayID = id.String()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	out := f.Clone()
	out.Pathways = append(out.Pathways, p)
	if p.Status == StatusActive {
		out.Status.ActivePathwayIDs = append(out.Status.ActivePathwayIDs, p.PathwayID)
	}
	out.recomputeStatus()
	return out, nil
}

// hasNode reports whether a node with the given id exists.
func (f *Fabric) hasNode(id string) bool {
	for _, n := range f.Nodes {
		if n.NodeID == id {
			return true
		}
	}
	return false
}

// hasConnection reports whether a connection with the given id exists.
func (f *Fabric) hasConnection(id string) bool {
	for _, c := range f.Connections {
		if c.ConnectionID == id {
			return true
		}
	}
	return false
}

// pathwayByID returns the index of the pathway with the given id, or -1.
func (f *Fabric) pathwayByID(id string) int {
	for i, p := range f.Pathways {
		if p.PathwayID == id {
			return i
		}
	}
	return -1
}

// cloneStringMap copies a string map, preserving nil.
func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
