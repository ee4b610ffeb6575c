package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/expr"
)

// Load sends the row records and returns the initial table snapshot.
func (g *Gateway) Load(ctx context.Context, records []map[string]any) (domain.Snapshot, error) {
	if records == nil {
		records = []map[string]any{}
	}
	payload, err := encodeJSON(domain.OpLoad, records)
	if err != nil {
		return "", err
	}
	return g.LoadJSON(ctx, payload)
}

// LoadJSON sends an already encoded JSON array of row objects.
func (g *Gateway) LoadJSON(ctx context.Context, records string) (domain.Snapshot, error) {
	if !json.Valid([]byte(records)) {
		return "", &domain.CallError{Op: domain.OpLoad, Kind: domain.ErrLoad, Message: "records are not valid JSON"}
	}
	return g.snapshot(ctx, domain.OpLoad, records)
}

// Render returns the text rendering of a table.
func (g *Gateway) Render(ctx context.Context, table domain.Snapshot, kind domain.RenderKind, width, limit int) (string, error) {
	if !kind.Valid() {
		return "", &domain.CallError{Op: domain.OpRender, Kind: domain.ErrOperation, Message: fmt.Sprintf("unknown render kind %q", kind)}
	}
	return g.text(ctx, domain.OpRender, string(table), string(kind), strconv.Itoa(width), strconv.Itoa(limit))
}

// Columns returns the table's column names in order.
func (g *Gateway) Columns(ctx context.Context, table domain.Snapshot) ([]string, error) {
	var cols []string
	if err := g.decode(ctx, domain.OpColumns, &cols, string(table)); err != nil {
		return nil, err
	}
	if cols == nil {
		cols = []string{}
	}
	return cols, nil
}

// Count returns the number of rows.
func (g *Gateway) Count(ctx context.Context, table domain.Snapshot) (int, error) {
	return g.integer(ctx, domain.OpCount, string(table))
}

// CountDuplicates counts rows whose values over columns repeat an earlier row.
// No columns means all columns.
func (g *Gateway) CountDuplicates(ctx context.Context, table domain.Snapshot, columns []string) (int, error) {
	payload, err := encodeJSON(domain.OpCountDuplicates, nonNil(columns))
	if err != nil {
		return 0, err
	}
	return g.integer(ctx, domain.OpCountDuplicates, string(table), payload)
}

// CountDistinct counts distinct value combinations over columns.
func (g *Gateway) CountDistinct(ctx context.Context, table domain.Snapshot, columns []string) (int, error) {
	payload, err := encodeJSON(domain.OpCountDistinct, nonNil(columns))
	if err != nil {
		return 0, err
	}
	return g.integer(ctx, domain.OpCountDistinct, string(table), payload)
}

// Collect returns the values of one column in row order.
func (g *Gateway) Collect(ctx context.Context, table domain.Snapshot, column string) ([]any, error) {
	var values []any
	if err := g.decode(ctx, domain.OpCollect, &values, string(table), column); err != nil {
		return nil, err
	}
	if values == nil {
		return []any{}, nil
	}
	return domain.NormalizeJSON(values).([]any), nil
}

// Apply derives newColumn from e and returns the successor snapshot.
// The expression is validated before anything is sent.
func (g *Gateway) Apply(ctx context.Context, table domain.Snapshot, newColumn string, e expr.Expr) (domain.Snapshot, error) {
	if err := expr.Validate(e); err != nil {
		return "", err
	}
	if newColumn == "" {
		return "", fmt.Errorf("%w: empty target column", domain.ErrInvalidExpression)
	}

	switch v := e.(type) {
	case expr.FunctionCall:
		op := functionOp(v.Name)
		if op != domain.OpApplyFunction {
			// Collection builders take a single source column.
			return g.snapshot(ctx, op, string(table), newColumn, v.Args[0])
		}
		args, err := encodeJSON(op, v.Args)
		if err != nil {
			return "", err
		}
		return g.snapshot(ctx, op, string(table), newColumn, v.Name, args)
	case expr.Split:
		return g.snapshot(ctx, domain.OpApplySplit, string(table), newColumn, v.Source, v.Delimiter)
	default:
		return "", fmt.Errorf("%w: unsupported expression %T", domain.ErrInvalidExpression, e)
	}
}

func functionOp(name string) domain.Op {
	switch name {
	case expr.FnCollectList:
		return domain.OpApplyCollectList
	case expr.FnCollectSet:
		return domain.OpApplyCollectSet
	}
	return domain.OpApplyFunction
}

// Chart builds the embeddable chart fragment for spec.
func (g *Gateway) Chart(ctx context.Context, table domain.Snapshot, spec domain.ChartSpec) (domain.Chart, error) {
	op, ok := spec.Kind.Op()
	if !ok {
		return domain.Chart{}, &domain.CallError{Op: domain.Op("chart." + spec.Kind), Kind: domain.ErrOperation, Message: "unknown chart kind"}
	}
	if spec.GroupBy == "" {
		return domain.Chart{}, &domain.CallError{Op: op, Kind: domain.ErrOperation, Message: "group_by column is required"}
	}
	aggs, err := encodeJSON(op, nonNilAggs(spec.Aggregations))
	if err != nil {
		return domain.Chart{}, err
	}
	html, err := g.text(ctx, op, string(table), spec.Title, spec.Subtitle, spec.GroupBy, aggs)
	if err != nil {
		return domain.Chart{}, err
	}
	return domain.Chart{Spec: spec, HTML: html}, nil
}

// DisplayInline returns the HTML rendering of a table.
func (g *Gateway) DisplayInline(ctx context.Context, table domain.Snapshot) (string, error) {
	return g.text(ctx, domain.OpDisplayInline, string(table))
}

// DisplayToFile asks the engine to write the HTML rendering to path.
func (g *Gateway) DisplayToFile(ctx context.Context, table domain.Snapshot, path string) error {
	return g.status(ctx, domain.OpDisplayFile, string(table), path)
}

// DisplayInBrowser asks the engine to open the HTML rendering in a browser.
func (g *Gateway) DisplayInBrowser(ctx context.Context, table domain.Snapshot) error {
	return g.status(ctx, domain.OpDisplayBrowser, string(table))
}

func nonNil(cols []string) []string {
	if cols == nil {
		return []string{}
	}
	return cols
}

func nonNilAggs(aggs []domain.Aggregation) []domain.Aggregation {
	if aggs == nil {
		return []domain.Aggregation{}
	}
	return aggs
}
