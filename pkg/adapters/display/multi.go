package display

import (
	"context"
	"errors"

	"github.com/aretw0/tabula/pkg/ports"
)

// Multi fans every call out to all sinks and joins their errors.
type Multi []ports.Sink

// Show implements ports.Sink.
func (m Multi) Show(ctx context.Context, markup string) error {
	return m.each(func(s ports.Sink) error { return s.Show(ctx, markup) })
}

// WriteFile implements ports.Sink.
func (m Multi) WriteFile(ctx context.Context, path string, markup string) error {
	return m.each(func(s ports.Sink) error { return s.WriteFile(ctx, path, markup) })
}

// Browse implements ports.Sink.
func (m Multi) Browse(ctx context.Context, markup string) error {
	return m.each(func(s ports.Sink) error { return s.Browse(ctx, markup) })
}

func (m Multi) each(fn func(ports.Sink) error) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
