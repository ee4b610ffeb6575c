package tabula

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/tabula/internal/logging"
	"github.com/aretw0/tabula/pkg/adapters/display"
	"github.com/aretw0/tabula/pkg/adapters/local"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/gateway"
	"github.com/aretw0/tabula/pkg/ports"
	"github.com/aretw0/tabula/pkg/session"
)

// Re-exported error kinds so callers can use errors.Is without importing domain.
var (
	ErrEngineUnavailable = domain.ErrEngineUnavailable
	ErrInvalidExpression = domain.ErrInvalidExpression
	ErrLoad              = domain.ErrLoad
	ErrOperation         = domain.ErrOperation
	ErrDisplay           = domain.ErrDisplay
	ErrSave              = domain.ErrSave
	ErrNotLoaded         = domain.ErrNotLoaded
	ErrSnapshotNotFound  = domain.ErrSnapshotNotFound
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "dev"

// ErrNoStore is returned by Persist and Resume when the client has no snapshot store.
var ErrNoStore = errors.New("no snapshot store configured")

// Client is the high-level entry point for Tabula.
// It owns the engine gateway shared by every handle it creates and is safe for
// concurrent use. The handles themselves are not.
type Client struct {
	gw           *gateway.Gateway
	engine       ports.Engine
	sink         ports.Sink
	sessions     *session.Manager
	store        ports.SnapshotStore
	locker       ports.DistributedLocker
	metrics      *gateway.Metrics
	logger       *slog.Logger
	inlineCharts bool
}

// Option defines a functional option for configuring the Client.
type Option func(*Client)

// WithEngine sets the engine. Defaults to the in-process local engine.
func WithEngine(engine ports.Engine) Option {
	return func(c *Client) {
		c.engine = engine
	}
}

// WithSink sets where inline markup and charts are shown. It is also handed to
// the default local engine for file and browser output.
func WithSink(sink ports.Sink) Option {
	return func(c *Client) {
		c.sink = sink
	}
}

// WithStore enables Persist and Resume on the given snapshot store.
func WithStore(store ports.SnapshotStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithLocker serializes stored sessions across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Client) {
		c.locker = locker
	}
}

// WithMetrics records gateway round-trips.
func WithMetrics(m *gateway.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithInlineCharts controls whether chart markup is shown on the sink as soon
// as it is rendered. Enabled by default.
func WithInlineCharts(enabled bool) Option {
	return func(c *Client) {
		c.inlineCharts = enabled
	}
}

// New builds a Client and probes the engine once.
// It fails with ErrEngineUnavailable when the engine cannot be reached; no
// client is returned in that case.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{inlineCharts: true}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.sink == nil {
		c.sink = display.New(display.WithLogger(c.logger))
	}
	if c.engine == nil {
		c.engine = local.New(local.WithSink(c.sink), local.WithLogger(c.logger))
	}

	gwOpts := []gateway.Option{gateway.WithLogger(c.logger)}
	if c.metrics != nil {
		gwOpts = append(gwOpts, gateway.WithMetrics(c.metrics))
	}
	gw, err := gateway.New(ctx, c.engine, gwOpts...)
	if err != nil {
		return nil, err
	}
	c.gw = gw

	if c.store != nil {
		smOpts := []session.Option{session.WithLogger(c.logger)}
		if c.locker != nil {
			smOpts = append(smOpts, session.WithLocker(c.locker))
		}
		c.sessions = session.NewManager(c.store, smOpts...)
	}
	return c, nil
}

// Gateway exposes the underlying engine gateway.
func (c *Client) Gateway() *gateway.Gateway {
	return c.gw
}

// Sessions returns the session manager, or nil when no store is configured.
func (c *Client) Sessions() *session.Manager {
	return c.sessions
}

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// NewTable returns an uninitialized table handle.
func (c *Client) NewTable() *Table {
	return &Table{client: c}
}

// Load is a shortcut for NewTable().Load.
func (c *Client) Load(ctx context.Context, records []map[string]any) (*Table, error) {
	return c.NewTable().Load(ctx, records)
}

// LoadJSON is a shortcut for NewTable().LoadJSON.
func (c *Client) LoadJSON(ctx context.Context, records string) (*Table, error) {
	return c.NewTable().LoadJSON(ctx, records)
}

// Close releases the snapshot store when it holds resources.
func (c *Client) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}
	return nil
}

// show hands markup to the sink. A sink failure is reported as ErrDisplay.
func (c *Client) show(ctx context.Context, op domain.Op, markup string) error {
	if c.sink == nil {
		return nil
	}
	if err := c.sink.Show(ctx, markup); err != nil {
		c.logger.Warn("display failed", "op", op, "err", err)
		return &domain.CallError{Op: op, Kind: domain.ErrDisplay, Message: err.Error()}
	}
	return nil
}
