// Package display implements ports.Sink for terminals, files and browsers.
package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/aretw0/tabula/pkg/adapters/file"
)

// Opener opens target (a file path) with the platform's default handler.
type Opener func(ctx context.Context, target string) error

// Sink shows markup on a writer, writes it to files and opens it in a browser.
// It is safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	out    io.Writer
	tmpDir string
	open   Opener
	logger *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithWriter sets the destination of inline output. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(s *Sink) {
		s.out = w
	}
}

// WithTempDir sets where Browse writes its HTML file. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(s *Sink) {
		s.tmpDir = dir
	}
}

// WithOpener replaces the platform opener used by Browse.
func WithOpener(o Opener) Option {
	return func(s *Sink) {
		s.open = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = l
	}
}

// New creates a Sink.
func New(opts ...Option) *Sink {
	s := &Sink{
		out:    os.Stdout,
		open:   OpenDefault,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Show writes markup followed by a newline.
func (s *Sink) Show(ctx context.Context, markup string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.out, markup+"\n"); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile writes markup atomically at path.
func (s *Sink) WriteFile(ctx context.Context, path string, markup string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return errors.New("empty output path")
	}
	if err := file.WriteAtomic(path, []byte(markup), 0644); err != nil {
		return err
	}
	s.logger.Debug("markup written", "path", path, "bytes", len(markup))
	return nil
}

// Browse writes markup to a temporary HTML file and opens it.
func (s *Sink) Browse(ctx context.Context, markup string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.tmpDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "tabula-*.html")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	_, werr := f.WriteString(markup)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write temp file: %w", werr)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s.logger.Info("opening browser", "path", abs)
	if err := s.open(ctx, abs); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// OpenDefault opens target with xdg-open, open or start depending on the OS.
func OpenDefault(ctx context.Context, target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", target)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", target)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", target)
	}
	return cmd.Start()
}
