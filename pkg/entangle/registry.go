// Package entangle maintains a registry of pairwise links between state
// instances and propagates a transformation from one instance to its
// linked neighbors with strength-based attenuation. Propagation is
// single-hop: a neighbor's neighbors are not reached in the same call.
// Implements: prd004-entanglement-registry R1-R5; docs/ARCHITECTURE § Link Registry.
package entangle

import (
	"errors"
	"time"

	"github.com/mesh-intelligence/quanta/pkg/state"
	"github.com/mesh-intelligence/quanta/pkg/types"
)

// Registry operation errors.
var (
	ErrNilState         = errors.New("entangle: nil state")
	ErrMissingStateID   = errors.New("entangle: state has no ID")
	ErrSelfLink         = errors.New("entangle: cannot link a state to itself")
	ErrLinkNotFound     = errors.New("entangle: link not found")
	ErrInvalidStrength  = errors.New("entangle: strength must be in [0, 1]")
	ErrInvalidCoherence = errors.New("entangle: coherence must be in (0, 1]")
	ErrInvalidThreshold = errors.New("entangle: propagation threshold must be in [0, 1]")
	ErrInvalidDecay     = errors.New("entangle: decay factor must be in (0, 1]")
)

// Default option values.
const (
	DefaultPropagationThreshold = 0.5
	DefaultDecayFactor          = 0.8
)

// Link is one registered edge between an unordered pair of state IDs.
type Link struct {
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Kind      string    `json:"kind"`
	Strength  float64   `json:"strength"`
	Coherence float64   `json:"coherence"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures propagation behavior.
type Options struct {
	// PropagateTransformations enables fan-out to neighbors; disabled,
	// Propagate only transforms the source.
	PropagateTransformations bool

	// PropagationThreshold is the minimum edge strength a neighbor needs
	// to receive a propagated transformation.
	PropagationThreshold float64

	// TransformationDecayFactor attenuates the propagated coherence.
	TransformationDecayFactor float64

	// VerifyBeforePropagation verifies each neighbor before applying the
	// attenuated transformation. A failing neighbor is skipped, or
	// repaired and left untransformed when RepairIfVerificationFails is
	// set.
	VerifyBeforePropagation bool

	// VerifyAfterPropagation verifies each neighbor after transforming.
	VerifyAfterPropagation bool

	// RepairIfVerificationFails repairs neighbors that fail verification.
	RepairIfVerificationFails bool
}

// DefaultOptions returns the standard configuration: propagation enabled
// at threshold 0.5 with decay 0.8, no verification.
func DefaultOptions() Options {
	return Options{
		PropagateTransformations:  true,
		PropagationThreshold:      DefaultPropagationThreshold,
		TransformationDecayFactor: DefaultDecayFactor,
	}
}

// Validate checks that the options are well-formed.
func (o Options) Validate() error {
	if o.PropagationThreshold < 0 || o.PropagationThreshold > 1 {
		return ErrInvalidThreshold
	}
	if o.TransformationDecayFactor != 0 && (o.TransformationDecayFactor <= 0 || o.TransformationDecayFactor > 1) {
		return ErrInvalidDecay
	}
	return nil
}

// normalized fills zero-valued fields with defaults.
func (o Options) normalized() Options {
	if o.TransformationDecayFactor == 0 {
		o.TransformationDecayFactor = DefaultDecayFactor
	}
	return o
}

// Registry holds the dynamic link graph. A Registry is not safe for
// concurrent use; callers serialize access.
type Registry struct {
	links []Link
	opts  Options
}

// NewRegistry creates an empty registry with the given options.
func NewRegistry(opts Options) (*Registry, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Registry{opts: opts.normalized()}, nil
}

// Register adds a link between a and b. One entry exists per unordered
// pair: registering the same pair again, in either argument order,
// replaces the existing entry (upsert semantics).
func (r *Registry) Register(a, b *types.QuantumState, kind string, strength, coherence float64) error {
	if a == nil || b == nil {
		return ErrNilState
	}
	if a.StateID == "" || b.StateID == "" {
		return ErrMissingStateID
	}
	if a.StateID == b.StateID {
		return ErrSelfLink
	}
	if strength < 0 || strength > 1 {
		return ErrInvalidStrength
	}
	if coherence <= 0 || coherence > 1 {
		return ErrInvalidCoherence
	}

	link := Link{
		SourceID:  a.StateID,
		TargetID:  b.StateID,
		Kind:      kind,
		Strength:  strength,
		Coherence: coherence,
		CreatedAt: time.Now().UTC(),
	}
	for i, existing := range r.links {
		if samePair(existing, a.StateID, b.StateID) {
			r.links[i] = link
			return nil
		}
	}
	r.links = append(r.links, link)
	return nil
}

// Unregister removes the link between a and b, matching the pair in either
// order. Returns ErrLinkNotFound if no such link exists.
func (r *Registry) Unregister(a, b *types.QuantumState) error {
	if a == nil || b == nil {
		return ErrNilState
	}
	for i, existing := range r.links {
		if samePair(existing, a.StateID, b.StateID) {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return nil
		}
	}
	return ErrLinkNotFound
}

// NeighborsOf returns the IDs adjacent to the given state.
func (r *Registry) NeighborsOf(s *types.QuantumState) []string {
	if s == nil {
		return nil
	}
	var neighbors []string
	for _, link := range r.links {
		switch s.StateID {
		case link.SourceID:
			neighbors = append(neighbors, link.TargetID)
		case link.TargetID:
			neighbors = append(neighbors, link.SourceID)
		}
	}
	return neighbors
}

// LinkInfo returns the edge record for the pair, matched in either order.
func (r *Registry) LinkInfo(a, b *types.QuantumState) (Link, error) {
	if a == nil || b == nil {
		return Link{}, ErrNilState
	}
	for _, existing := range r.links {
		if samePair(existing, a.StateID, b.StateID) {
			return existing, nil
		}
	}
	return Link{}, ErrLinkNotFound
}

// Links returns a copy of every registered edge.
func (r *Registry) Links() []Link {
	out := make([]Link, len(r.links))
	copy(out, r.links)
	return out
}

// Propagate applies op to source, then fans it out to every neighbor whose
// edge strength reaches the propagation threshold. Each neighbor receives
// an attenuated transformation whose coherence is
// op coherence × edge strength × decay factor. The returned map holds the
// new value for every touched ID; untouched neighbors are absent.
// Neighbors missing from statesByID are skipped.
func (r *Registry) Propagate(source *types.QuantumState, op state.Transformation, statesByID map[string]*types.QuantumState) (map[string]*types.QuantumState, error) {
	if source == nil {
		return nil, ErrNilState
	}

	result := make(map[string]*types.QuantumState)
	transformed, err := state.Transform(source, op)
	if err != nil {
		return nil, err
	}
	result[source.StateID] = transformed

	if !r.opts.PropagateTransformations {
		return result, nil
	}

	for _, link := range r.links {
		peerID, ok := peerOf(link, source.StateID)
		if !ok || link.Strength < r.opts.PropagationThreshold {
			continue
		}
		peer, ok := statesByID[peerID]
		if !ok || peer == nil {
			continue
		}

		if r.opts.VerifyBeforePropagation {
			if check := state.Verify(peer); !check.Success {
				if !r.opts.RepairIfVerificationFails {
					continue
				}
				// Repair the neighbor but do not propagate into it this
				// round; the repaired value is the recorded result.
				repaired, err := state.Repair(peer, check.Errors)
				if err != nil {
					return nil, err
				}
				result[peerID] = repaired
				continue
			}
		}

		attenuated := op
		attenuated.Coherence = op.EffectiveCoherence() * link.Strength * r.opts.TransformationDecayFactor
		next, err := state.Transform(peer, attenuated)
		if err != nil {
			return nil, err
		}

		if r.opts.VerifyAfterPropagation {
			if check := state.Verify(next); !check.Success && r.opts.RepairIfVerificationFails {
				next, err = state.Repair(next, check.Errors)
				if err != nil {
					return nil, err
				}
			}
		}
		result[peerID] = next
	}
	return result, nil
}

// samePair reports whether the link joins the unordered pair {a, b}.
func samePair(l Link, a, b string) bool {
	return (l.SourceID == a && l.TargetID == b) || (l.SourceID == b && l.TargetID == a)
}

// peerOf returns the other endpoint of the link, if id is one of them.
func peerOf(l Link, id string) (string, bool) {
	switch id {
	case l.SourceID:
		return l.TargetID, true
	case l.TargetID:
		return l.SourceID, true
	}
	return "", false
}
