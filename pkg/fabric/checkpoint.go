package fabric

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/quanta/pkg/types"
)

// checkpointLocation tags fabric checkpoints.
const checkpointLocation = "fabric"

// Checkpoint serializes the fabric, including its active stream and
// pathway id lists, into an immutable snapshot.
func (f *Fabric) Checkpoint(kind string) (types.Checkpoint, error) {
	if f == nil {
		return types.Checkpoint{}, ErrNilFabric
	}
	if kind == "" {
		kind = types.CheckpointManual
	}
	data, err := json.Marshal(f)
	if err != nil {
		return types.Checkpoint{}, fmt.Errorf("encoding fabric snapshot: %w", err)
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
		Location:     checkpointLocation,
	}, nil
}

// RestoreFromCheckpoint decodes a fabric snapshot back into a value.
func RestoreFromCheckpoint(cp types.Checkpoint) (*Fabric, error) {
	if len(cp.Snapshot) == 0 {
		return nil, ErrInvalidSnapshot
	}
	var f Fabric
	if err := json.Unmarshal(cp.Snapshot, &f); err != nil {
		return nil, fmt.Errorf("decoding fabric snapshot: %w", err)
	}
	if f.FabricID == "" {
		return nil, ErrInvalidSnapshot
	}
	return &f, nil
}
