package ports

import (
	"context"
	"errors"

	"github.com/aretw0/tabula/pkg/domain"
)

// ErrUnreachable is returned by Engine implementations when the engine process,
// library or endpoint cannot be located or invoked at all. The gateway turns it
// into domain.ErrEngineUnavailable.
var ErrUnreachable = errors.New("engine unreachable")

// Engine is the opaque collaborator that owns the table and dashboard formats.
// It is stateless request/response: every call carries the full snapshot it
// operates on, and there is no session to open or close.
type Engine interface {
	// Invoke performs one blocking round-trip. A nil error means the engine
	// answered; the meaning of the text depends on the operation.
	// A non-nil error means the call itself failed (transport, engine crash or
	// an explicit engine rejection).
	Invoke(ctx context.Context, call domain.Call) (string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, call domain.Call) (string, error)

// Invoke implements Engine.
func (f EngineFunc) Invoke(ctx context.Context, call domain.Call) (string, error) {
	return f(ctx, call)
}
