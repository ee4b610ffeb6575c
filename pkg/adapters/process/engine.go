package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/aretw0/tabula/internal/logging"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/ports"
)

// Engine implements ports.Engine by running an external binary once per call.
//
// The binary receives the operation name as its last argument and the call as
// JSON on stdin, and answers with a domain.Envelope on stdout.
type Engine struct {
	cfg    Config
	grace  time.Duration
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithGracePeriod sets how long a canceled process may take to exit after the interrupt.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Engine) {
		e.grace = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates a process engine. The command is resolved lazily on each call so
// a missing binary surfaces as ports.ErrUnreachable through the gateway probe.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, grace: DefaultGracePeriod, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Invoke implements ports.Engine.
func (e *Engine) Invoke(ctx context.Context, call domain.Call) (string, error) {
	path, err := exec.LookPath(e.cfg.Command)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrUnreachable, err)
	}

	payload, err := json.Marshal(call)
	if err != nil {
		return "", fmt.Errorf("encode call: %w", err)
	}

	args := append(append([]string{}, e.cfg.Args...), string(call.Op))
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = e.cfg.Dir
	cmd.Env = append(cmd.Environ(), e.cfg.environ()...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Cancel = func() error {
		// Windows has no interrupt for child processes.
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = e.grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	e.logger.Debug("engine process finished", "op", call.Op, "duration", time.Since(start), "err", runErr)

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("engine process: %w", ctxErr)
		}
		var pathErr *fs.PathError
		if errors.As(runErr, &pathErr) || errors.Is(runErr, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ports.ErrUnreachable, runErr)
		}
		return "", fmt.Errorf("engine process failed: %v: %s", runErr, strings.TrimSpace(stderr.String()))
	}

	var env domain.Envelope
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		return "", fmt.Errorf("engine process returned malformed output: %w", err)
	}
	if env.Error != "" {
		return "", errors.New(env.Error)
	}
	return env.Result, nil
}

// Serve answers one call read from r with engine and writes the envelope to w.
// It is the other half of Engine: a binary wrapping Serve can be used as a
// process engine. Engine failures are reported in the envelope; only I/O
// problems are returned.
func Serve(ctx context.Context, engine ports.Engine, r io.Reader, w io.Writer) error {
	var call domain.Call
	if err := json.NewDecoder(r).Decode(&call); err != nil {
		return writeEnvelope(w, domain.Envelope{Error: fmt.Sprintf("decode call: %v", err)})
	}

	result, err := engine.Invoke(ctx, call)
	env := domain.Envelope{Result: result}
	if err != nil {
		env = domain.Envelope{Error: err.Error()}
	}
	return writeEnvelope(w, env)
}

func writeEnvelope(w io.Writer, env domain.Envelope) error {
	if err := json.NewEncoder(w).Encode(env); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}
