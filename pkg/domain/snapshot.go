package domain

import "time"

// Snapshot is the opaque serialized state of a table or dashboard.
// The format is owned by the engine; the core only stores and forwards it.
// Being a string, a Snapshot is immutable and compares byte-for-byte.
type Snapshot string

// IsZero reports whether the snapshot is empty (no state loaded yet).
func (s Snapshot) IsZero() bool {
	return s == ""
}

// Len returns the size of the serialized state in bytes.
func (s Snapshot) Len() int {
	return len(s)
}

// SnapshotKind tells a persisted snapshot which handle it belongs to.
type SnapshotKind string

const (
	KindTable     SnapshotKind = "table"
	KindDashboard SnapshotKind = "dashboard"
)

// StoredSnapshot is the unit persisted by a SnapshotStore.
type StoredSnapshot struct {
	Kind    SnapshotKind `json:"kind"`
	Data    Snapshot     `json:"data"`
	Title   string       `json:"title,omitempty"`
	SavedAt time.Time    `json:"saved_at"`
}
