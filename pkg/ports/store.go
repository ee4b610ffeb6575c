package ports

import (
	"context"

	"github.com/aretw0/tabula/pkg/domain"
)

// SnapshotStore persists snapshots so a table or dashboard can be resumed by
// another process (CLI invocations, MCP sessions).
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID, replacing any previous one.
	Save(ctx context.Context, sessionID string, snap domain.StoredSnapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSnapshotNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.StoredSnapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all stored session IDs.
	List(ctx context.Context) ([]string, error)
}
