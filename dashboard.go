package tabula

import (
	"context"

	"github.com/aretw0/tabula/pkg/domain"
)

// Dashboard is a handle on one dashboard snapshot. Add* calls replace the
// snapshot only when the engine answers with a new one.
type Dashboard struct {
	client *Client
	snap   domain.Snapshot
	title  string
}

// Snapshot returns the current serialized state.
func (d *Dashboard) Snapshot() domain.Snapshot {
	return d.snap
}

// Title returns the title the dashboard was created or resumed with.
func (d *Dashboard) Title() string {
	return d.title
}

func (d *Dashboard) swap(next domain.Snapshot, err error) (*Dashboard, error) {
	if err != nil {
		return d, err
	}
	d.snap = next
	return d, nil
}

// AddPage appends a page.
func (d *Dashboard) AddPage(ctx context.Context, name string) (*Dashboard, error) {
	return d.swap(d.client.gw.AddPage(ctx, d.snap, name))
}

// AddHeading adds a heading of the given size (1 largest to 10 smallest).
// Sizes outside that range fall back to domain.DefaultHeadingSize.
func (d *Dashboard) AddHeading(ctx context.Context, page, text string, size int) (*Dashboard, error) {
	return d.swap(d.client.gw.AddHeading(ctx, d.snap, page, text, size))
}

// AddText adds a paragraph.
func (d *Dashboard) AddText(ctx context.Context, page, text string) (*Dashboard, error) {
	return d.swap(d.client.gw.AddText(ctx, d.snap, page, text))
}

// AddSubText adds secondary text.
func (d *Dashboard) AddSubText(ctx context.Context, page, text string) (*Dashboard, error) {
	return d.swap(d.client.gw.AddSubText(ctx, d.snap, page, text))
}

// AddHTML embeds raw HTML.
func (d *Dashboard) AddHTML(ctx context.Context, page, html string) (*Dashboard, error) {
	return d.swap(d.client.gw.AddHTML(ctx, d.snap, page, html))
}

// AddBullets adds a bullet list in the given order.
func (d *Dashboard) AddBullets(ctx context.Context, page string, items ...string) (*Dashboard, error) {
	return d.swap(d.client.gw.AddBullets(ctx, d.snap, page, items))
}

// AddDataframe embeds a copy of the table's current snapshot. Later changes to
// the table do not affect the dashboard.
func (d *Dashboard) AddDataframe(ctx context.Context, page string, table *Table) (*Dashboard, error) {
	if table == nil || !table.Loaded() {
		return d, ErrNotLoaded
	}
	return d.swap(d.client.gw.AddDataframe(ctx, d.snap, page, table.Snapshot()))
}

// AddChart embeds a rendered chart.
func (d *Dashboard) AddChart(ctx context.Context, page string, chart domain.Chart) (*Dashboard, error) {
	return d.swap(d.client.gw.AddChart(ctx, d.snap, page, chart))
}

// Inspect returns the pages and blocks of the dashboard.
func (d *Dashboard) Inspect(ctx context.Context) (domain.DashboardView, error) {
	return d.client.gw.Inspect(ctx, d.snap)
}

// Render returns the dashboard as a standalone HTML document.
func (d *Dashboard) Render(ctx context.Context) (string, error) {
	return d.client.gw.RenderDashboard(ctx, d.snap)
}

// Open shows the dashboard in a browser. Failures are reported as ErrDisplay
// and leave the dashboard usable.
func (d *Dashboard) Open(ctx context.Context) error {
	return d.client.gw.OpenDashboard(ctx, d.snap)
}

// Save writes the rendered dashboard to path. Failures are reported as ErrSave.
func (d *Dashboard) Save(ctx context.Context, path string) error {
	return d.client.gw.SaveDashboard(ctx, d.snap, path)
}
