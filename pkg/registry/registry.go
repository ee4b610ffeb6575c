// Package registry holds named row functions that an engine can apply in
// addition to its built-in functions.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// RowFunc computes one output value from the values of the argument columns
// in a single row, in argument order.
type RowFunc func(ctx context.Context, values []any) (any, error)

// Registry manages the available functions. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]RowFunc
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		funcs: make(map[string]RowFunc),
	}
}

// Register adds a function. A function with the same name is replaced.
func (r *Registry) Register(name string, fn RowFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (RowFunc, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names lists the registered functions in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply calls the named function once per row. rows[i] holds the argument
// values of row i.
func (r *Registry) Apply(ctx context.Context, name string, rows [][]any) ([]any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("function not found: %s", name)
	}
	out := make([]any, len(rows))
	for i, values := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := fn(ctx, values)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}
