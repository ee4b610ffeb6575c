package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aretw0/tabula/internal/logging"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/ports"
	"github.com/aretw0/tabula/pkg/registry"
	"github.com/google/uuid"
)

// Pong is the answer to domain.OpPing.
const Pong = "tabula-local"

type handler struct {
	arity int
	fn    func(ctx context.Context, e *Engine, args []string) (string, error)
}

// Engine answers every domain.Op in process. It keeps no state between calls
// and is safe for concurrent use.
type Engine struct {
	sink     ports.Sink
	logger   *slog.Logger
	newID    func() string
	funcs    *registry.Registry
	handlers map[domain.Op]handler
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets where display.file, display.browser, dashboard.open and
// dashboard.save deliver their markup.
func WithSink(sink ports.Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDGenerator overrides how chart element ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithFunction registers a row function for apply.function under name.
// Built-in functions keep precedence over registered ones.
func WithFunction(name string, fn registry.RowFunc) Option {
	return func(e *Engine) {
		e.funcs.Register(name, fn)
	}
}

// WithRegistry replaces the set of registered row functions. A nil registry is ignored.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.funcs = r
		}
	}
}

// New creates a local engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: logging.NewNop(),
		newID: func() string {
			return "chart-" + uuid.NewString()
		},
		funcs: registry.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = e.routes()
	return e
}

func (e *Engine) routes() map[domain.Op]handler {
	return map[domain.Op]handler{
		domain.OpPing: {0, func(context.Context, *Engine, []string) (string, error) { return Pong, nil }},

		domain.OpLoad:             {1, opLoad},
		domain.OpRender:           {4, opRender},
		domain.OpColumns:          {1, opColumns},
		domain.OpCount:            {1, opCount},
		domain.OpCountDuplicates:  {2, opCountDuplicates},
		domain.OpCountDistinct:    {2, opCountDistinct},
		domain.OpCollect:          {2, opCollect},
		domain.OpApplyFunction:    {4, opApplyFunction},
		domain.OpApplySplit:       {4, opApplySplit},
		domain.OpApplyCollectList: {3, opApplyCollectList},
		domain.OpApplyCollectSet:  {3, opApplyCollectSet},

		domain.OpChartBar:            {5, chartHandler(domain.ChartBar)},
		domain.OpChartColumn:         {5, chartHandler(domain.ChartColumn)},
		domain.OpChartStackedBar:     {5, chartHandler(domain.ChartStackedBar)},
		domain.OpChartStackedPercent: {5, chartHandler(domain.ChartStackedPercent)},

		domain.OpDisplayInline:  {1, opDisplayInline},
		domain.OpDisplayFile:    {2, opDisplayFile},
		domain.OpDisplayBrowser: {1, opDisplayBrowser},

		domain.OpDashboardCreate:       {2, opDashboardCreate},
		domain.OpDashboardAddPage:      {2, opDashboardAddPage},
		domain.OpDashboardAddHeading:   {4, opDashboardAddHeading},
		domain.OpDashboardAddText:      {3, textBlock(domain.BlockText)},
		domain.OpDashboardAddSubText:   {3, textBlock(domain.BlockSubText)},
		domain.OpDashboardAddHTML:      {3, textBlock(domain.BlockHTML)},
		domain.OpDashboardAddBullets:   {3, opDashboardAddBullets},
		domain.OpDashboardAddDataframe: {3, opDashboardAddDataframe},
		domain.OpDashboardAddChart:     {3, opDashboardAddChart},
		domain.OpDashboardInspect:      {1, opDashboardInspect},
		domain.OpDashboardRender:       {1, opDashboardRender},
		domain.OpDashboardOpen:         {1, opDashboardOpen},
		domain.OpDashboardSave:         {2, opDashboardSave},
	}
}

// Invoke implements ports.Engine.
func (e *Engine) Invoke(ctx context.Context, call domain.Call) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h, ok := e.handlers[call.Op]
	if !ok {
		return "", fmt.Errorf("unsupported operation %q", call.Op)
	}
	if len(call.Args) != h.arity {
		return "", fmt.Errorf("%s expects %d arguments, got %d", call.Op, h.arity, len(call.Args))
	}

	resp, err := h.fn(ctx, e, call.Args)
	if err != nil {
		e.logger.Debug("local engine rejected call", "op", call.Op, "err", err)
		return "", err
	}
	return resp, nil
}

func opLoad(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := frameFromRecords(args[0])
	if err != nil {
		return "", err
	}
	s, err := f.snapshot()
	return string(s), err
}

func opRender(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	width, err := intArg("width", args[2])
	if err != nil {
		return "", err
	}
	limit, err := intArg("limit", args[3])
	if err != nil {
		return "", err
	}
	return renderText(f, domain.RenderKind(args[1]), width, limit)
}

func opColumns(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	return encode(f.Cols)
}

func opCount(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	return strconv.Itoa(f.Rows), nil
}

func opCountDuplicates(ctx context.Context, _ *Engine, args []string) (string, error) {
	f, cols, err := frameAndColumns(args)
	if err != nil {
		return "", err
	}
	n, err := countDuplicates(ctx, f, cols)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func opCountDistinct(ctx context.Context, _ *Engine, args []string) (string, error) {
	f, cols, err := frameAndColumns(args)
	if err != nil {
		return "", err
	}
	n, err := countDistinct(ctx, f, cols)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func opCollect(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	return encode(collect(f, args[1]))
}

func opApplyFunction(ctx context.Context, e *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	var fnArgs []string
	if err := json.Unmarshal([]byte(args[3]), &fnArgs); err != nil {
		return "", fmt.Errorf("decode function arguments: %w", err)
	}
	out, err := applyFunction(ctx, f, e.funcs, args[1], args[2], fnArgs)
	if err != nil {
		return "", err
	}
	return snapshotText(out)
}

func opApplySplit(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	out, err := applySplit(f, args[1], args[2], args[3])
	if err != nil {
		return "", err
	}
	return snapshotText(out)
}

func opApplyCollectList(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	out, err := applyCollectList(f, args[1], args[2])
	if err != nil {
		return "", err
	}
	return snapshotText(out)
}

func opApplyCollectSet(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	out, err := applyCollectSet(f, args[1], args[2])
	if err != nil {
		return "", err
	}
	return snapshotText(out)
}

// chartHandler args: table, title, subtitle, group column, aggregations JSON.
func chartHandler(kind domain.ChartKind) func(context.Context, *Engine, []string) (string, error) {
	return func(_ context.Context, e *Engine, args []string) (string, error) {
		f, err := decodeFrame(args[0])
		if err != nil {
			return "", err
		}
		var aggs []domain.Aggregation
		if err := json.Unmarshal([]byte(args[4]), &aggs); err != nil {
			return "", fmt.Errorf("decode aggregations: %w", err)
		}
		g, err := groupBy(f, args[3], aggs)
		if err != nil {
			return "", err
		}
		return chartFragment(e.newID(), kind, args[1], args[2], args[3], g)
	}
}

func opDisplayInline(_ context.Context, _ *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	return tableDocument(f)
}

// Status operations report failures in the response text, as their
// convention requires; only malformed input is a call error.

func opDisplayFile(ctx context.Context, e *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	doc, err := tableDocument(f)
	if err != nil {
		return "", err
	}
	return e.deliver(func(s ports.Sink) error { return s.WriteFile(ctx, args[1], doc) }), nil
}

func opDisplayBrowser(ctx context.Context, e *Engine, args []string) (string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return "", err
	}
	doc, err := tableDocument(f)
	if err != nil {
		return "", err
	}
	return e.deliver(func(s ports.Sink) error { return s.Browse(ctx, doc) }), nil
}

func opDashboardCreate(_ context.Context, _ *Engine, args []string) (string, error) {
	if _, err := decodeFrame(args[0]); err != nil {
		return "", err
	}
	return boardText(newBoard(args[1]))
}

func opDashboardAddPage(_ context.Context, _ *Engine, args []string) (string, error) {
	b, err := decodeBoard(args[0])
	if err != nil {
		return "", err
	}
	if err := b.addPage(args[1]); err != nil {
		return "", err
	}
	return boardText(b)
}

func opDashboardAddHeading(_ context.Context, _ *Engine, args []string) (string, error) {
	return addBlock(args[0], args[1], domain.Block{Kind: domain.BlockHeading, Text: args[2], Size: headingSize(args[3])})
}

func textBlock(kind domain.BlockKind) func(context.Context, *Engine, []string) (string, error) {
	return func(_ context.Context, _ *Engine, args []string) (string, error) {
		return addBlock(args[0], args[1], domain.Block{Kind: kind, Text: args[2]})
	}
}

func opDashboardAddBullets(_ context.Context, _ *Engine, args []string) (string, error) {
	var items []string
	if err := json.Unmarshal([]byte(args[2]), &items); err != nil {
		return "", fmt.Errorf("decode bullet items: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return addBlock(args[0], args[1], domain.Block{Kind: domain.BlockBullets, Items: items})
}

func opDashboardAddDataframe(_ context.Context, _ *Engine, args []string) (string, error) {
	if _, err := decodeFrame(args[2]); err != nil {
		return "", err
	}
	return addBlock(args[0], args[1], domain.Block{Kind: domain.BlockTable, Table: domain.Snapshot(args[2])})
}

func opDashboardAddChart(_ context.Context, _ *Engine, args []string) (string, error) {
	var chart domain.Chart
	if err := json.Unmarshal([]byte(args[2]), &chart); err != nil {
		return "", fmt.Errorf("decode chart: %w", err)
	}
	if chart.HTML == "" {
		return "", fmt.Errorf("chart has no markup")
	}
	return addBlock(args[0], args[1], domain.Block{Kind: domain.BlockChart, Chart: &chart})
}

func opDashboardInspect(_ context.Context, _ *Engine, args []string) (string, error) {
	b, err := decodeBoard(args[0])
	if err != nil {
		return "", err
	}
	return boardText(b)
}

func opDashboardRender(_ context.Context, _ *Engine, args []string) (string, error) {
	b, err := decodeBoard(args[0])
	if err != nil {
		return "", err
	}
	return dashboardDocument(b)
}

func opDashboardOpen(ctx context.Context, e *Engine, args []string) (string, error) {
	b, err := decodeBoard(args[0])
	if err != nil {
		return "", err
	}
	doc, err := dashboardDocument(b)
	if err != nil {
		return "", err
	}
	return e.deliver(func(s ports.Sink) error { return s.Browse(ctx, doc) }), nil
}

func opDashboardSave(ctx context.Context, e *Engine, args []string) (string, error) {
	b, err := decodeBoard(args[0])
	if err != nil {
		return "", err
	}
	doc, err := dashboardDocument(b)
	if err != nil {
		return "", err
	}
	return e.deliver(func(s ports.Sink) error { return s.WriteFile(ctx, args[1], doc) }), nil
}

// deliver runs a sink action and returns the status text: empty on success.
func (e *Engine) deliver(action func(ports.Sink) error) string {
	if e.sink == nil {
		return "no display sink configured"
	}
	if err := action(e.sink); err != nil {
		e.logger.Warn("sink failed", "err", err)
		return err.Error()
	}
	return ""
}

func addBlock(dash, page string, block domain.Block) (string, error) {
	b, err := decodeBoard(dash)
	if err != nil {
		return "", err
	}
	if err := b.add(page, block); err != nil {
		return "", err
	}
	return boardText(b)
}

func frameAndColumns(args []string) (*frame, []string, error) {
	f, err := decodeFrame(args[0])
	if err != nil {
		return nil, nil, err
	}
	var cols []string
	if err := json.Unmarshal([]byte(args[1]), &cols); err != nil {
		return nil, nil, fmt.Errorf("decode columns: %w", err)
	}
	return f, cols, nil
}

func intArg(name, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, arg)
	}
	return n, nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func snapshotText(f *frame) (string, error) {
	s, err := f.snapshot()
	return string(s), err
}

func boardText(b *board) (string, error) {
	s, err := b.snapshot()
	return string(s), err
}
