package types

import "errors"

// Archive defines the interface for backend-agnostic checkpoint persistence.
// Callers attach to a backend, store and retrieve checkpoints, and detach
// when done. The in-memory history owned by a preservation context never
// depends on an archive; archives receive evicted checkpoints and serve the
// CLI. Implements prd005-checkpoint-archive R2.
type Archive interface {
	// Attach connects the archive to the backend described by config.
	// Creates the DataDir if it does not exist.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrArchiveDetached.
	Detach() error

	// Save persists a checkpoint. Saving an existing checkpoint id
	// replaces the stored row.
	Save(cp Checkpoint) error

	// Get retrieves a checkpoint by id.
	// Returns ErrNotFound if no checkpoint exists with that id.
	Get(id string) (Checkpoint, error)

	// List returns checkpoints ordered oldest first. A non-empty kind
	// restricts the result to manual or automatic checkpoints.
	List(kind string) ([]Checkpoint, error)

	// Prune deletes the oldest checkpoints until at most keep remain,
	// returning the number deleted.
	Prune(keep int) (int, error)
}

// DefaultArchiveKeep is the default retention used when pruning.
const DefaultArchiveKeep = 50

// Archive lifecycle errors (prd005-checkpoint-archive R7.1).
var (
	ErrArchiveDetached = errors.New("archive is detached")
	ErrAlreadyAttached = errors.New("archive is already attached")
)

// Archive operation errors (prd005-checkpoint-archive R7.2).
var (
	ErrNotFound  = errors.New("checkpoint not found")
	ErrInvalidID = errors.New("invalid checkpoint ID")
)
