package domain

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable is returned when the engine cannot be located or invoked at all.
var ErrEngineUnavailable = errors.New("engine unavailable")

// ErrInvalidExpression is returned when an expression does not match any known tag.
// It is raised locally; the engine is never contacted.
var ErrInvalidExpression = errors.New("invalid expression")

// ErrLoad is returned when the engine rejects the records passed to Load.
var ErrLoad = errors.New("load failed")

// ErrOperation is returned when the engine rejects an operation on an existing snapshot.
var ErrOperation = errors.New("operation failed")

// ErrDisplay is returned when a display sink fails. The handle stays usable.
var ErrDisplay = errors.New("display failed")

// ErrSave is returned when persisting a rendered artifact fails. The handle stays usable.
var ErrSave = errors.New("save failed")

// ErrNotLoaded is returned when an operation needs a snapshot but none was loaded yet.
var ErrNotLoaded = errors.New("table not loaded")

// ErrSnapshotNotFound is returned when a session ID cannot be found in the snapshot store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// CallError carries the engine's message for a failed call.
// It unwraps to its Kind so callers can use errors.Is with the sentinels above.
type CallError struct {
	Op      Op
	Kind    error
	Message string
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Kind
}
