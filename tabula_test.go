package tabula_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/internal/testutils"
	"github.com/aretw0/tabula/pkg/adapters/memory"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records everything shown on it.
type captureSink struct {
	mu      sync.Mutex
	shown   []string
	files   map[string]string
	browsed []string
	failAll error
}

func newCaptureSink() *captureSink {
	return &captureSink{files: map[string]string{}}
}

func (s *captureSink) Show(_ context.Context, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	s.shown = append(s.shown, markup)
	return nil
}

func (s *captureSink) WriteFile(_ context.Context, path, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	s.files[path] = markup
	return nil
}

func (s *captureSink) Browse(_ context.Context, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	s.browsed = append(s.browsed, markup)
	return nil
}

func newClient(t *testing.T, opts ...tabula.Option) (*tabula.Client, *captureSink) {
	t.Helper()
	sink := newCaptureSink()
	client, err := tabula.New(context.Background(), append([]tabula.Option{tabula.WithSink(sink)}, opts...)...)
	require.NoError(t, err)
	return client, sink
}

var sample = []map[string]any{
	{"id": 1, "name": "ana", "team": "red", "score": 10},
	{"id": 2, "name": "bo", "team": "blue", "score": 7},
	{"id": 3, "name": "cy", "team": "red", "score": 4},
	{"id": 4, "name": "ana", "team": "red", "score": 10},
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.LoadJSON(ctx, `[{"a":"1","b":"x"},{"a":"2","b":"y"}]`)
	require.NoError(t, err)

	cols, err := table.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)

	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	d, err := table.CountDistinct(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, d)
}

func TestNew_EngineUnavailable(t *testing.T) {
	client, err := tabula.New(context.Background(), tabula.WithEngine(testutils.Unreachable))
	assert.ErrorIs(t, err, tabula.ErrEngineUnavailable)
	assert.Nil(t, client)
}

func TestApplyColumn_KeepsEveryColumnOnce(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	before, err := table.Columns(ctx)
	require.NoError(t, err)

	steps := []struct {
		name string
		e    expr.Expr
	}{
		{"key", expr.SHA256("name", "team")},
		{"key512", expr.SHA512("id")},
		{"copy", expr.Column("name")},
		{"const", expr.Literal(true)},
		{"letters", expr.SplitOn("name", "")},
		{"wrapped", expr.CollectList("team")},
		{"set", expr.CollectSet("letters")},
		{"key", expr.SHA256("id")}, // replaces, does not duplicate
	}
	for _, s := range steps {
		_, err := table.ApplyColumn(ctx, s.name, s.e)
		require.NoError(t, err, s.name)
	}

	after, err := table.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after[:len(before)], "prior columns keep their order")

	seen := map[string]int{}
	for _, c := range after {
		seen[c]++
	}
	for _, s := range steps {
		assert.Equal(t, 1, seen[s.name], s.name)
	}
	assert.Len(t, after, len(before)+7)
}

func TestApplyColumn_Chaining(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)

	same, err := table.ApplyColumn(ctx, "h", expr.SHA256("id"))
	require.NoError(t, err)
	assert.Same(t, table, same)
}

// bogus satisfies expr.Expr through embedding but is not one of the known tags.
type bogus struct{ expr.FunctionCall }

func TestApplyColumn_UnrecognizedExpression(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	before := table.Snapshot()

	for _, e := range []expr.Expr{
		nil,
		bogus{expr.Column("id")},
		expr.Call(expr.FnCollectList, "id", "name"),
		expr.Call(expr.FnCollectSet, "id", "name"),
	} {
		_, err := table.ApplyColumn(ctx, "x", e)
		assert.ErrorIs(t, err, tabula.ErrInvalidExpression)
		assert.Equal(t, before, table.Snapshot())
	}
}

func TestApplyColumn_EngineRejectionKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	before := table.Snapshot()

	_, err = table.ApplyColumn(ctx, "x", expr.SHA256("missing"))
	assert.ErrorIs(t, err, tabula.ErrOperation)
	_, err = table.ApplyColumn(ctx, "x", expr.Call("NOPE", "id"))
	assert.ErrorIs(t, err, tabula.ErrOperation)
	assert.Equal(t, before, table.Snapshot())
}

func TestLoadCollectRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)

	names, err := table.Collect(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []any{"ana", "bo", "cy", "ana"}, names)

	scores, err := table.Collect(ctx, "score")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10), int64(7), int64(4), int64(10)}, scores)
}

func TestCollect_KeepsLargeIntegersExact(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.LoadJSON(ctx, `[{"id":9007199254740993,"ratio":0.5},{"id":12345678901234567,"ratio":2}]`)
	require.NoError(t, err)

	ids, err := table.Collect(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(9007199254740993), int64(12345678901234567)}, ids)

	ratios, err := table.Collect(ctx, "ratio")
	require.NoError(t, err)
	assert.Equal(t, []any{0.5, int64(2)}, ratios)
}

func TestQueriesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)

	c1, _ := table.Columns(ctx)
	c2, _ := table.Columns(ctx)
	assert.Equal(t, c1, c2)

	n1, _ := table.Count(ctx)
	n2, _ := table.Count(ctx)
	assert.Equal(t, n1, n2)
}

func TestCountBounds(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	inputs := [][]map[string]any{
		sample,
		{},
		{{"a": 1}, {"a": 1}, {"a": 1}},
		{{"a": 1}, {"b": 2}},
	}
	for _, records := range inputs {
		table, err := client.Load(ctx, records)
		require.NoError(t, err)

		distinct, err := table.CountDistinct(ctx)
		require.NoError(t, err)
		count, err := table.Count(ctx)
		require.NoError(t, err)

		assert.LessOrEqual(t, distinct, count)
		assert.LessOrEqual(t, count, len(records))
	}

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	dups, err := table.CountDuplicates(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, 1, dups)
	dups, err = table.CountDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dups)
}

func TestNotLoaded(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	table := client.NewTable()

	_, err := table.Columns(ctx)
	assert.ErrorIs(t, err, tabula.ErrNotLoaded)
	_, err = table.ApplyColumn(ctx, "x", expr.Column("a"))
	assert.ErrorIs(t, err, tabula.ErrNotLoaded)
	_, err = table.CreateDashboard(ctx, "T")
	assert.ErrorIs(t, err, tabula.ErrNotLoaded)
	assert.False(t, table.Loaded())
}

func TestLoad_FailureKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	before := table.Snapshot()

	_, err = table.LoadJSON(ctx, `{"not":"an array"}`)
	assert.ErrorIs(t, err, tabula.ErrLoad)
	assert.Equal(t, before, table.Snapshot())
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	before := table.Snapshot()

	out, err := table.Render(ctx, domain.RenderShow, 10, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "ana")
	assert.NotContains(t, out, "cy")
	assert.Equal(t, before, table.Snapshot())

	_, err = table.Render(ctx, domain.RenderKind("sideways"), 10, 2)
	assert.Error(t, err)
}

func TestDisplay(t *testing.T) {
	ctx := context.Background()
	client, sink := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)

	require.NoError(t, table.DisplayInline(ctx))
	require.Len(t, sink.shown, 1)
	assert.Contains(t, sink.shown[0], "<table")

	require.NoError(t, table.DisplayToFile(ctx, "out.html"))
	assert.Contains(t, sink.files["out.html"], "<html")

	require.NoError(t, table.DisplayInBrowser(ctx))
	assert.Len(t, sink.browsed, 1)
}

func TestDisplay_FailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	client, sink := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	before := table.Snapshot()

	sink.failAll = errors.New("screen off")
	assert.ErrorIs(t, table.DisplayInline(ctx), tabula.ErrDisplay)
	assert.ErrorIs(t, table.DisplayToFile(ctx, "x.html"), tabula.ErrDisplay)
	assert.ErrorIs(t, table.DisplayInBrowser(ctx), tabula.ErrDisplay)

	assert.Equal(t, before, table.Snapshot())
	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCharts(t *testing.T) {
	ctx := context.Background()
	client, sink := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	before := table.Snapshot()

	charts := []func() (domain.Chart, error){
		func() (domain.Chart, error) { return table.BarChart(ctx, "Scores", "", "team", expr.Sum("score")) },
		func() (domain.Chart, error) { return table.ColumnChart(ctx, "Scores", "", "team", expr.Mean("score")) },
		func() (domain.Chart, error) {
			return table.StackedBarChart(ctx, "Scores", "by team", "team", expr.Min("score"), expr.Max("score"))
		},
		func() (domain.Chart, error) {
			return table.StackedPercentChart(ctx, "Scores", "", "team", expr.Count("id"))
		},
	}
	for i, render := range charts {
		chart, err := render()
		require.NoError(t, err)
		assert.Contains(t, chart.HTML, "Highcharts.chart")
		assert.Equal(t, "team", chart.Spec.GroupBy)
		assert.Len(t, sink.shown, i+1, "chart markup goes to the sink")
	}
	assert.Equal(t, before, table.Snapshot())

	_, err = table.BarChart(ctx, "x", "", "missing", expr.Sum("score"))
	assert.ErrorIs(t, err, tabula.ErrOperation)
}

func TestCharts_InlineDisabled(t *testing.T) {
	ctx := context.Background()
	client, sink := newClient(t, tabula.WithInlineCharts(false))

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)

	chart, err := table.ColumnChart(ctx, "Scores", "", "team", expr.Sum("score"))
	require.NoError(t, err)
	assert.NotEmpty(t, chart.HTML)
	assert.Empty(t, sink.shown)
}

func TestCharts_DisplayFailureStillReturnsChart(t *testing.T) {
	ctx := context.Background()
	client, sink := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	sink.failAll = errors.New("no terminal")

	chart, err := table.BarChart(ctx, "Scores", "", "team", expr.Sum("score"))
	assert.ErrorIs(t, err, tabula.ErrDisplay)
	assert.NotEmpty(t, chart.HTML)
}

func TestDashboardScenario(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)

	dash, err := table.CreateDashboard(ctx, "T")
	require.NoError(t, err)
	_, err = dash.AddPage(ctx, "P1")
	require.NoError(t, err)
	_, err = dash.AddText(ctx, "P1", "hello")
	require.NoError(t, err)

	view, err := dash.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T", view.Title)
	page, ok := view.Page("P1")
	require.True(t, ok)
	require.Len(t, page.Blocks, 1)
	assert.Equal(t, domain.BlockText, page.Blocks[0].Kind)
	assert.Equal(t, "hello", page.Blocks[0].Text)
}

func TestDashboard_AllBlocks(t *testing.T) {
	ctx := context.Background()
	client, sink := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	chart, err := table.BarChart(ctx, "Scores", "", "team", expr.Sum("score"))
	require.NoError(t, err)

	dash, err := table.CreateDashboard(ctx, "Report")
	require.NoError(t, err)
	assert.Equal(t, "Report", dash.Title())

	steps := []func() (*tabula.Dashboard, error){
		func() (*tabula.Dashboard, error) { return dash.AddPage(ctx, "Overview") },
		func() (*tabula.Dashboard, error) { return dash.AddHeading(ctx, "Overview", "Scores", 2) },
		func() (*tabula.Dashboard, error) { return dash.AddSubText(ctx, "Overview", "as of today") },
		func() (*tabula.Dashboard, error) { return dash.AddBullets(ctx, "Overview", "one", "two") },
		func() (*tabula.Dashboard, error) { return dash.AddHTML(ctx, "Overview", "<i>raw</i>") },
		func() (*tabula.Dashboard, error) { return dash.AddDataframe(ctx, "Overview", table) },
		func() (*tabula.Dashboard, error) { return dash.AddChart(ctx, "Overview", chart) },
	}
	for _, step := range steps {
		same, err := step()
		require.NoError(t, err)
		assert.Same(t, dash, same)
	}

	// Later table changes do not reach the embedded copy.
	embedded := table.Snapshot()
	_, err = table.ApplyColumn(ctx, "extra", expr.Literal(1))
	require.NoError(t, err)

	view, err := dash.Inspect(ctx)
	require.NoError(t, err)
	page, ok := view.Page("Overview")
	require.True(t, ok)
	kinds := make([]domain.BlockKind, len(page.Blocks))
	for i, b := range page.Blocks {
		kinds[i] = b.Kind
	}
	assert.Equal(t, []domain.BlockKind{
		domain.BlockHeading, domain.BlockSubText, domain.BlockBullets,
		domain.BlockHTML, domain.BlockTable, domain.BlockChart,
	}, kinds)
	assert.Equal(t, embedded, page.Blocks[4].Table)
	assert.Equal(t, []string{"one", "two"}, page.Blocks[2].Items)

	html, err := dash.Render(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "Report")
	assert.Contains(t, html, "Highcharts.chart")

	require.NoError(t, dash.Save(ctx, "report.html"))
	assert.Equal(t, html, sink.files["report.html"])
	require.NoError(t, dash.Open(ctx))
	assert.Len(t, sink.browsed, 1)
}

func TestDashboard_RejectedAddKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	dash, err := table.CreateDashboard(ctx, "T")
	require.NoError(t, err)
	before := dash.Snapshot()

	_, err = dash.AddText(ctx, "no-such-page", "hello")
	assert.ErrorIs(t, err, tabula.ErrOperation)
	assert.Equal(t, before, dash.Snapshot())

	_, err = dash.AddDataframe(ctx, "P", client.NewTable())
	assert.ErrorIs(t, err, tabula.ErrNotLoaded)
	assert.Equal(t, before, dash.Snapshot())
}

func TestDashboard_EmptyEngineResponseKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	engine := testutils.NewRecordingEngine().
		Reply(domain.OpLoad, "T0").
		Reply(domain.OpDashboardCreate, "D0").
		Reply(domain.OpDashboardAddPage, "")
	client, _ := newClient(t, tabula.WithEngine(engine))

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	dash, err := table.CreateDashboard(ctx, "T")
	require.NoError(t, err)

	_, err = dash.AddPage(ctx, "P1")
	assert.ErrorIs(t, err, tabula.ErrOperation)
	assert.Equal(t, domain.Snapshot("D0"), dash.Snapshot())
}

func TestDashboard_SaveFailureIsReported(t *testing.T) {
	ctx := context.Background()
	client, sink := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	dash, err := table.CreateDashboard(ctx, "T")
	require.NoError(t, err)
	before := dash.Snapshot()

	sink.failAll = errors.New("disk full")
	assert.ErrorIs(t, dash.Save(ctx, "out.html"), tabula.ErrSave)
	assert.ErrorIs(t, dash.Open(ctx), tabula.ErrDisplay)
	assert.Equal(t, before, dash.Snapshot())
}

func TestDescribe(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)

	md, err := table.Describe(ctx)
	require.NoError(t, err)
	assert.Contains(t, md, "- **Rows:** 4")
	assert.Contains(t, md, "- **Distinct rows:** 4")
	assert.Contains(t, md, "| 2 | name | 3 |")
	assert.Contains(t, md, "| 4 | team | 2 |")
}

func TestIndependentTablesConcurrently(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := client.Load(ctx, sample)
			if err != nil {
				errs <- err
				return
			}
			if _, err := table.ApplyColumn(ctx, "h", expr.SHA256("name")); err != nil {
				errs <- err
				return
			}
			if n, err := table.Count(ctx); err != nil || n != 4 {
				errs <- errors.Join(err, errors.New("unexpected count"))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestPersistAndResume(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t, tabula.WithStore(memory.NewStore()))

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	require.NoError(t, table.Persist(ctx, "t1"))

	resumed, err := client.Resume(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, table.Snapshot(), resumed.Snapshot())

	dash, err := table.CreateDashboard(ctx, "Report")
	require.NoError(t, err)
	_, err = dash.AddPage(ctx, "P")
	require.NoError(t, err)
	require.NoError(t, dash.Persist(ctx, "d1"))

	back, err := client.ResumeDashboard(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, dash.Snapshot(), back.Snapshot())
	assert.Equal(t, "Report", back.Title())

	_, err = client.Resume(ctx, "d1")
	assert.Error(t, err, "a dashboard session is not a table")
	_, err = client.Resume(ctx, "missing")
	assert.ErrorIs(t, err, tabula.ErrSnapshotNotFound)
}

func TestUpdateTable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client, _ := newClient(t, tabula.WithStore(store))

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	require.NoError(t, table.Persist(ctx, "s"))

	updated, err := client.UpdateTable(ctx, "s", func(ctx context.Context, t *tabula.Table) error {
		_, err := t.ApplyColumn(ctx, "h", expr.SHA256("id"))
		return err
	})
	require.NoError(t, err)

	stored, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, updated.Snapshot(), stored.Data)

	_, err = client.UpdateTable(ctx, "s", func(ctx context.Context, t *tabula.Table) error {
		_, err := t.ApplyColumn(ctx, "x", expr.Column("missing"))
		return err
	})
	assert.ErrorIs(t, err, tabula.ErrOperation)
	after, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, stored.Data, after.Data)

	_, err = client.UpdateTable(ctx, "nope", func(context.Context, *tabula.Table) error { return nil })
	assert.ErrorIs(t, err, tabula.ErrSnapshotNotFound)
}

func TestNoStore(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	table, err := client.Load(ctx, sample)
	require.NoError(t, err)
	assert.ErrorIs(t, table.Persist(ctx, "x"), tabula.ErrNoStore)
	_, err = client.Resume(ctx, "x")
	assert.ErrorIs(t, err, tabula.ErrNoStore)
	assert.NoError(t, client.Close())
}
