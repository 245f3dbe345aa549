// Package sqlite implements the SQLite checkpoint archive backend.
// Implements: prd005-checkpoint-archive R2-R6; docs/ARCHITECTURE § Archive.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/quanta/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// archiveFileName is the database file created inside DataDir.
const archiveFileName = "archive.db"

// timeLayout is the stored timestamp format.
const timeLayout = time.RFC3339Nano

var _ types.Archive = (*Backend)(nil)

// Backend implements the Archive interface on a SQLite file. Unlike the
// in-memory history it serves, the backend keeps an internal mutex: the
// CLI shares one backend across commands.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *zap.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a new archive backend. The backend is not attached;
// call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens (or creates) the archive database under config.DataDir and
// applies the schema. Existing checkpoints survive re-attachment.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, archiveFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening archive database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("applying archive schema: %w", err)
	}

	b.db = db
	b.config = config
	b.attached = true
	b.logger.Info("archive attached", zap.String("path", dbPath))
	return nil
}

// Detach closes the database. Idempotent: detaching a detached backend
// succeeds.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	b.attached = false
	if err != nil {
		return fmt.Errorf("closing archive database: %w", err)
	}
	b.logger.Info("archive detached")
	return nil
}

// Save persists a checkpoint, replacing any stored row with the same id.
func (b *Backend) Save(cp types.Checkpoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrArchiveDetached
	}
	if cp.CheckpointID == "" {
		return types.ErrInvalidID
	}

	_, err := b.db.Exec(
		"INSERT OR REPLACE INTO checkpoints (checkpoint_id, kind, location, snapshot, created_at) VALUES (?, ?, ?, ?, ?)",
		cp.CheckpointID, cp.Kind, cp.Location, string(cp.Snapshot), cp.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint %s: %w", cp.CheckpointID, err)
	}
	b.logger.Debug("checkpoint archived",
		zap.String("checkpoint_id", cp.CheckpointID),
		zap.String("kind", cp.Kind),
	)
	return nil
}

// Get retrieves a checkpoint by id. Returns ErrNotFound when absent.
func (b *Backend) Get(id string) (types.Checkpoint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.Checkpoint{}, types.ErrArchiveDetached
	}
	if id == "" {
		return types.Checkpoint{}, types.ErrInvalidID
	}

	row := b.db.QueryRow(
		"SELECT checkpoint_id, kind, location, snapshot, created_at FROM checkpoints WHERE checkpoint_id = ?",
		id,
	)
	cp, err := hydrateCheckpoint(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.Checkpoint{}, types.ErrNotFound
		}
		return types.Checkpoint{}, fmt.Errorf("getting checkpoint %s: %w", id, err)
	}
	return cp, nil
}

// List returns checkpoints ordered oldest first, optionally restricted to
// one kind.
func (b *Backend) List(kind string) ([]types.Checkpoint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrArchiveDetached
	}

	query := "SELECT checkpoint_id, kind, location, snapshot, created_at FROM checkpoints ORDER BY created_at, checkpoint_id"
	args := []any{}
	if kind != "" {
		query = "SELECT checkpoint_id, kind, location, snapshot, created_at FROM checkpoints WHERE kind = ? ORDER BY created_at, checkpoint_id"
		args = append(args, kind)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var out []types.Checkpoint
	for rows.Next() {
		cp, err := hydrateCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("listing checkpoints: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	return out, nil
}

// Prune deletes the oldest checkpoints until at most keep remain,
// returning the number deleted. A negative keep is treated as zero.
func (b *Backend) Prune(keep int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return 0, types.ErrArchiveDetached
	}
	if keep < 0 {
		keep = 0
	}

	res, err := b.db.Exec(
		`DELETE FROM checkpoints WHERE checkpoint_id NOT IN (
			SELECT checkpoint_id FROM checkpoints ORDER BY created_at DESC, checkpoint_id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning checkpoints: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning checkpoints: %w", err)
	}
	b.logger.Info("archive pruned", zap.Int("kept", keep), zap.Int64("deleted", deleted))
	return int(deleted), nil
}

// scanner abstracts *sql.Row and *sql.Rows for hydration.
type scanner interface {
	Scan(dest ...any) error
}

// hydrateCheckpoint builds a Checkpoint from a database row.
func hydrateCheckpoint(row scanner) (types.Checkpoint, error) {
	var cp types.Checkpoint
	var snapshot, createdAt string
	if err := row.Scan(&cp.CheckpointID, &cp.Kind, &cp.Location, &snapshot, &createdAt); err != nil {
		return types.Checkpoint{}, err
	}
	cp.Snapshot = []byte(snapshot)
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return types.Checkpoint{}, fmt.Errorf("parsing created_at: %w", err)
	}
	cp.CreatedAt = ts
	return cp, nil
}
