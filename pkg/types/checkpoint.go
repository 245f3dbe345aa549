package types

import "time"

// Checkpoint kind constants.
const (
	CheckpointManual    = "manual"
	CheckpointAutomatic = "automatic"
)

// Checkpoint is an immutable serialized snapshot of a state or fabric.
// Snapshot is a JSON encoding of the entity; the encoding only has to
// round-trip, it is not a durability format.
type Checkpoint struct {
	// CheckpointID is a UUID v7, generated on creation.
	CheckpointID string `json:"checkpoint_id"`

	// CreatedAt is the timestamp of creation.
	CreatedAt time.Time `json:"created_at"`

	// Snapshot is the JSON encoding of the preserved entity.
	Snapshot []byte `json:"snapshot"`

	// Kind is manual or automatic.
	Kind string `json:"kind"`

	// Location tags where the checkpoint was taken (for example "memory").
	Location string `json:"location"`
}

// Clone returns a copy of the checkpoint with its own snapshot buffer.
func (c Checkpoint) Clone() Checkpoint {
	out := c
	out.Snapshot = append([]byte(nil), c.Snapshot...)
	return out
}
