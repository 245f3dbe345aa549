package fabric

import (
	"fmt"

	"github.com/google/uuid"
)

// Pathway metadata keys written by PropagateStream.
const (
	MetaStreamSource = "source"
	MetaStreamTarget = "target"
)

// streamPathwayKind marks pathways created for a stream.
const streamPathwayKind = "stream"

// PropagateStream records routing intent for a tagged payload: the stream
// id is registered as active and an active pathway tagged with it is found
// or created, with the source and target tags stored as metadata. No
// payload data moves between nodes; this marks where a stream is meant to
// flow.
func (f *Fabric) PropagateStream(streamID, sourceTag, targetTag string) (*Fabric, error) {
	if f == nil {
		return nil, ErrNilFabric
	}
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	out := f.Clone()
	if !containsString(out.Status.ActiveStreamIDs, streamID) {
		out.Status.ActiveStreamIDs = append(out.Status.ActiveStreamIDs, streamID)
	}

	for i := range out.Pathways {
		p := &out.Pathways[i]
		if p.StreamTag != streamID {
			continue
		}
		p.Status = StatusActive
		if p.Metadata == nil {
			p.Metadata = map[string]string{}
		}
		p.Metadata[MetaStreamSource] = sourceTag
		p.Metadata[MetaStreamTarget] = targetTag
		if !containsString(out.Status.ActivePathwayIDs, p.PathwayID) {
			out.Status.ActivePathwayIDs = append(out.Status.ActivePathwayIDs, p.PathwayID)
		}
		out.recomputeStatus()
		return out, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating UUID v7: %w", err)
	}
	pathway := Pathway{
		PathwayID: id.String(),
		Name:      "stream-" + streamID,
		Kind:      streamPathwayKind,
		Status:    StatusActive,
		Strength:  1.0,
		StreamTag: streamID,
		Metadata: map[string]string{
			MetaStreamSource: sourceTag,
			MetaStreamTarget: targetTag,
		},
	}
	out.Pathways = append(out.Pathways, pathway)
	out.Status.ActivePathwayIDs = append(out.Status.ActivePathwayIDs, pathway.PathwayID)
	out.recomputeStatus()
	return out, nil
}

// containsString reports whether list holds value.
func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
