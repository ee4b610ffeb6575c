package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/tabula/internal/logging"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/ports"
)

// Convention describes how an operation's text response is interpreted.
type Convention int

const (
	// SnapshotResponse: non-empty text is the new snapshot, empty text is a failure.
	SnapshotResponse Convention = iota
	// ValueResponse: text is a JSON document, an integer or raw text.
	ValueResponse
	// StatusResponse: empty text is success, non-empty text is an error message.
	StatusResponse
)

func (c Convention) String() string {
	switch c {
	case SnapshotResponse:
		return "snapshot"
	case ValueResponse:
		return "value"
	case StatusResponse:
		return "status"
	}
	return "unknown"
}

type opSpec struct {
	convention Convention
	kind       error
}

// operations is the calling-convention table. Every op the gateway sends is listed here.
var operations = map[domain.Op]opSpec{
	domain.OpPing: {ValueResponse, domain.ErrEngineUnavailable},

	domain.OpLoad:             {SnapshotResponse, domain.ErrLoad},
	domain.OpRender:           {ValueResponse, domain.ErrOperation},
	domain.OpColumns:          {ValueResponse, domain.ErrOperation},
	domain.OpCount:            {ValueResponse, domain.ErrOperation},
	domain.OpCountDuplicates:  {ValueResponse, domain.ErrOperation},
	domain.OpCountDistinct:    {ValueResponse, domain.ErrOperation},
	domain.OpCollect:          {ValueResponse, domain.ErrOperation},
	domain.OpApplyFunction:    {SnapshotResponse, domain.ErrOperation},
	domain.OpApplySplit:       {SnapshotResponse, domain.ErrOperation},
	domain.OpApplyCollectList: {SnapshotResponse, domain.ErrOperation},
	domain.OpApplyCollectSet:  {SnapshotResponse, domain.ErrOperation},

	domain.OpChartBar:            {ValueResponse, domain.ErrOperation},
	domain.OpChartColumn:         {ValueResponse, domain.ErrOperation},
	domain.OpChartStackedBar:     {ValueResponse, domain.ErrOperation},
	domain.OpChartStackedPercent: {ValueResponse, domain.ErrOperation},

	domain.OpDisplayInline:  {ValueResponse, domain.ErrDisplay},
	domain.OpDisplayFile:    {StatusResponse, domain.ErrDisplay},
	domain.OpDisplayBrowser: {StatusResponse, domain.ErrDisplay},

	domain.OpDashboardCreate:       {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardAddPage:      {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardAddHeading:   {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardAddText:      {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardAddSubText:   {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardAddHTML:      {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardAddBullets:   {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardAddDataframe: {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardAddChart:     {SnapshotResponse, domain.ErrOperation},
	domain.OpDashboardInspect:      {ValueResponse, domain.ErrOperation},
	domain.OpDashboardRender:       {ValueResponse, domain.ErrDisplay},
	domain.OpDashboardOpen:         {StatusResponse, domain.ErrDisplay},
	domain.OpDashboardSave:         {StatusResponse, domain.ErrSave},
}

// ConventionOf reports the response convention of op.
func ConventionOf(op domain.Op) (Convention, bool) {
	spec, ok := operations[op]
	return spec.convention, ok
}

// Gateway marshals operations to an engine and unmarshals its responses.
type Gateway struct {
	engine  ports.Engine
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger used for round-trip tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics records every round-trip in m.
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New binds a Gateway to an engine. It pings the engine once and fails fast
// with domain.ErrEngineUnavailable if the engine cannot be reached, so no
// handle is ever built on top of a dead engine.
func New(ctx context.Context, engine ports.Engine, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if engine == nil {
		return nil, fmt.Errorf("%w: no engine configured", domain.ErrEngineUnavailable)
	}

	resp, err := g.roundTrip(ctx, domain.NewCall(domain.OpPing))
	if err != nil {
		return nil, err
	}
	if resp == "" {
		return nil, fmt.Errorf("%w: empty ping response", domain.ErrEngineUnavailable)
	}
	return g, nil
}

// roundTrip performs exactly one engine invocation and maps transport failures
// to the operation's error kind.
func (g *Gateway) roundTrip(ctx context.Context, call domain.Call) (string, error) {
	spec, ok := operations[call.Op]
	if !ok {
		return "", fmt.Errorf("gateway: unknown operation %q", call.Op)
	}

	start := time.Now()
	resp, err := g.engine.Invoke(ctx, call)
	elapsed := time.Since(start)

	if err != nil {
		g.metrics.observe(call.Op, outcomeError, elapsed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", call.Op, ctxErr)
		}
		kind := spec.kind
		if errors.Is(err, ports.ErrUnreachable) || errors.Is(err, domain.ErrEngineUnavailable) {
			kind = domain.ErrEngineUnavailable
		}
		g.logger.Warn("engine call failed", "op", call.Op, "duration", elapsed, "err", err)
		return "", &domain.CallError{Op: call.Op, Kind: kind, Message: err.Error()}
	}

	g.metrics.observe(call.Op, outcomeOK, elapsed)
	g.logger.Debug("engine call", "op", call.Op, "duration", elapsed, "bytes", len(resp))
	return resp, nil
}

// snapshot invokes a SnapshotResponse operation.
func (g *Gateway) snapshot(ctx context.Context, op domain.Op, args ...string) (domain.Snapshot, error) {
	resp, err := g.roundTrip(ctx, domain.NewCall(op, args...))
	if err != nil {
		return "", err
	}
	if resp == "" {
		g.metrics.observeRejected(op)
		return "", &domain.CallError{Op: op, Kind: operations[op].kind, Message: "engine returned an empty snapshot"}
	}
	return domain.Snapshot(resp), nil
}

// status invokes a StatusResponse operation.
func (g *Gateway) status(ctx context.Context, op domain.Op, args ...string) error {
	resp, err := g.roundTrip(ctx, domain.NewCall(op, args...))
	if err != nil {
		return err
	}
	if resp != "" {
		g.metrics.observeRejected(op)
		return &domain.CallError{Op: op, Kind: operations[op].kind, Message: resp}
	}
	return nil
}

// text invokes a ValueResponse operation and returns the raw text.
func (g *Gateway) text(ctx context.Context, op domain.Op, args ...string) (string, error) {
	return g.roundTrip(ctx, domain.NewCall(op, args...))
}

// integer invokes a ValueResponse operation whose response is a decimal integer.
func (g *Gateway) integer(ctx context.Context, op domain.Op, args ...string) (int, error) {
	resp, err := g.text(ctx, op, args...)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil {
		return 0, &domain.CallError{Op: op, Kind: operations[op].kind, Message: fmt.Sprintf("malformed integer response %q", resp)}
	}
	return n, nil
}

// decode invokes a ValueResponse operation whose response is JSON.
// Numbers decoded into interface values arrive as json.Number.
func (g *Gateway) decode(ctx context.Context, op domain.Op, out any, args ...string) error {
	resp, err := g.text(ctx, op, args...)
	if err != nil {
		return err
	}
	if resp == "" {
		return &domain.CallError{Op: op, Kind: operations[op].kind, Message: "engine returned an empty response"}
	}
	dec := json.NewDecoder(strings.NewReader(resp))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &domain.CallError{Op: op, Kind: operations[op].kind, Message: fmt.Sprintf("malformed JSON response: %v", err)}
	}
	return nil
}

// encodeJSON renders a structured argument. Only values the gateway itself
// builds are passed here, so a failure is a programming error surfaced as such.
func encodeJSON(op domain.Op, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%s: encode argument: %w", op, err)
	}
	return string(b), nil
}
