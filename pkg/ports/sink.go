package ports

import "context"

// Sink receives rendered markup and shows or persists it.
// Sink failures never touch a handle's snapshot.
type Sink interface {
	// Show displays markup inline (terminal, notebook, writer).
	Show(ctx context.Context, markup string) error

	// WriteFile persists markup at path.
	WriteFile(ctx context.Context, path string, markup string) error

	// Browse opens markup in a browser.
	Browse(ctx context.Context, markup string) error
}
