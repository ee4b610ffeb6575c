package tabula

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/expr"
)

// Table is a handle on one table snapshot.
//
// Every mutation is a single engine round-trip that either replaces the
// snapshot or leaves it untouched and returns an error. A Table must not be
// used from several goroutines at once; independent tables may.
type Table struct {
	client *Client
	snap   domain.Snapshot
}

// Snapshot returns the current serialized state (empty before Load).
func (t *Table) Snapshot() domain.Snapshot {
	return t.snap
}

// Loaded reports whether the table holds a snapshot.
func (t *Table) Loaded() bool {
	return !t.snap.IsZero()
}

func (t *Table) current() (domain.Snapshot, error) {
	if t.snap.IsZero() {
		return "", ErrNotLoaded
	}
	return t.snap, nil
}

// Load replaces the table with the given records.
// Keys are column names; column order is the order keys are first seen.
func (t *Table) Load(ctx context.Context, records []map[string]any) (*Table, error) {
	snap, err := t.client.gw.Load(ctx, records)
	if err != nil {
		return t, err
	}
	t.snap = snap
	return t, nil
}

// LoadJSON replaces the table with a JSON array of objects. Unlike Load it
// keeps the key order of the document.
func (t *Table) LoadJSON(ctx context.Context, records string) (*Table, error) {
	snap, err := t.client.gw.LoadJSON(ctx, records)
	if err != nil {
		return t, err
	}
	t.snap = snap
	return t, nil
}

// Render returns a text rendering of up to rowLimit rows, cells truncated to width.
func (t *Table) Render(ctx context.Context, kind domain.RenderKind, width, rowLimit int) (string, error) {
	snap, err := t.current()
	if err != nil {
		return "", err
	}
	return t.client.gw.Render(ctx, snap, kind, width, rowLimit)
}

// Columns returns the column names in order.
func (t *Table) Columns(ctx context.Context) ([]string, error) {
	snap, err := t.current()
	if err != nil {
		return nil, err
	}
	return t.client.gw.Columns(ctx, snap)
}

// Count returns the number of rows.
func (t *Table) Count(ctx context.Context) (int, error) {
	snap, err := t.current()
	if err != nil {
		return 0, err
	}
	return t.client.gw.Count(ctx, snap)
}

// CountDuplicates counts rows repeating an earlier row over the given columns
// (all columns when none are given).
func (t *Table) CountDuplicates(ctx context.Context, columns ...string) (int, error) {
	snap, err := t.current()
	if err != nil {
		return 0, err
	}
	return t.client.gw.CountDuplicates(ctx, snap, columns)
}

// CountDistinct counts distinct rows over the given columns (all columns when none are given).
func (t *Table) CountDistinct(ctx context.Context, columns ...string) (int, error) {
	snap, err := t.current()
	if err != nil {
		return 0, err
	}
	return t.client.gw.CountDistinct(ctx, snap, columns)
}

// Collect returns every value of one column in row order.
func (t *Table) Collect(ctx context.Context, column string) ([]any, error) {
	snap, err := t.current()
	if err != nil {
		return nil, err
	}
	return t.client.gw.Collect(ctx, snap, column)
}

// ApplyColumn computes column name from e and appends or replaces it.
// An unrecognized or malformed expression fails with ErrInvalidExpression
// before the engine is contacted.
func (t *Table) ApplyColumn(ctx context.Context, name string, e expr.Expr) (*Table, error) {
	snap, err := t.current()
	if err != nil {
		return t, err
	}
	next, err := t.client.gw.Apply(ctx, snap, name, e)
	if err != nil {
		return t, err
	}
	t.snap = next
	return t, nil
}

// DisplayInline renders the table as HTML and shows it on the client sink.
func (t *Table) DisplayInline(ctx context.Context) error {
	snap, err := t.current()
	if err != nil {
		return err
	}
	html, err := t.client.gw.DisplayInline(ctx, snap)
	if err != nil {
		return err
	}
	return t.client.show(ctx, domain.OpDisplayInline, html)
}

// DisplayToFile writes the HTML rendering to path.
func (t *Table) DisplayToFile(ctx context.Context, path string) error {
	snap, err := t.current()
	if err != nil {
		return err
	}
	return t.client.gw.DisplayToFile(ctx, snap, path)
}

// DisplayInBrowser opens the HTML rendering in a browser.
func (t *Table) DisplayInBrowser(ctx context.Context) error {
	snap, err := t.current()
	if err != nil {
		return err
	}
	return t.client.gw.DisplayInBrowser(ctx, snap)
}

// BarChart renders a horizontal bar chart of aggs grouped by groupCol.
func (t *Table) BarChart(ctx context.Context, title, subtitle, groupCol string, aggs ...domain.Aggregation) (domain.Chart, error) {
	return t.Chart(ctx, domain.ChartBar, title, subtitle, groupCol, aggs...)
}

// ColumnChart renders a vertical column chart.
func (t *Table) ColumnChart(ctx context.Context, title, subtitle, groupCol string, aggs ...domain.Aggregation) (domain.Chart, error) {
	return t.Chart(ctx, domain.ChartColumn, title, subtitle, groupCol, aggs...)
}

// StackedBarChart renders stacked horizontal bars.
func (t *Table) StackedBarChart(ctx context.Context, title, subtitle, groupCol string, aggs ...domain.Aggregation) (domain.Chart, error) {
	return t.Chart(ctx, domain.ChartStackedBar, title, subtitle, groupCol, aggs...)
}

// StackedPercentChart renders bars stacked to 100%.
func (t *Table) StackedPercentChart(ctx context.Context, title, subtitle, groupCol string, aggs ...domain.Aggregation) (domain.Chart, error) {
	return t.Chart(ctx, domain.ChartStackedPercent, title, subtitle, groupCol, aggs...)
}

// Chart renders a chart of the given kind and, unless disabled on the client,
// shows its markup on the sink. When only the display fails the rendered chart
// is still returned together with an ErrDisplay error.
func (t *Table) Chart(ctx context.Context, kind domain.ChartKind, title, subtitle, groupCol string, aggs ...domain.Aggregation) (domain.Chart, error) {
	snap, err := t.current()
	if err != nil {
		return domain.Chart{}, err
	}
	spec := domain.ChartSpec{
		Kind:         kind,
		Title:        title,
		Subtitle:     subtitle,
		GroupBy:      groupCol,
		Aggregations: aggs,
	}
	chart, err := t.client.gw.Chart(ctx, snap, spec)
	if err != nil {
		return domain.Chart{}, err
	}
	if t.client.inlineCharts {
		op, _ := kind.Op()
		return chart, t.client.show(ctx, op, chart.HTML)
	}
	return chart, nil
}

// CreateDashboard starts a dashboard seeded from the current table.
func (t *Table) CreateDashboard(ctx context.Context, title string) (*Dashboard, error) {
	snap, err := t.current()
	if err != nil {
		return nil, err
	}
	dash, err := t.client.gw.CreateDashboard(ctx, snap, title)
	if err != nil {
		return nil, err
	}
	return &Dashboard{client: t.client, snap: dash, title: title}, nil
}

// Describe returns a markdown summary of the table: row counts and, per
// column, the number of distinct values.
func (t *Table) Describe(ctx context.Context) (string, error) {
	cols, err := t.Columns(ctx)
	if err != nil {
		return "", err
	}
	rows, err := t.Count(ctx)
	if err != nil {
		return "", err
	}
	distinct, err := t.CountDistinct(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Table\n\n")
	fmt.Fprintf(&b, "- **Rows:** %d\n", rows)
	fmt.Fprintf(&b, "- **Distinct rows:** %d\n", distinct)
	fmt.Fprintf(&b, "- **Columns:** %d\n\n", len(cols))

	if len(cols) == 0 {
		return b.String(), nil
	}
	b.WriteString("| # | Column | Distinct |\n|---|---|---|\n")
	for i, col := range cols {
		n, err := t.CountDistinct(ctx, col)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "| %d | %s | %d |\n", i+1, strings.ReplaceAll(col, "|", `\|`), n)
	}
	return b.String(), nil
}
