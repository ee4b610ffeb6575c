package gateway

import (
	"context"
	"strconv"

	"github.com/aretw0/tabula/pkg/domain"
)

// CreateDashboard seeds a dashboard from a table snapshot.
func (g *Gateway) CreateDashboard(ctx context.Context, table domain.Snapshot, title string) (domain.Snapshot, error) {
	return g.snapshot(ctx, domain.OpDashboardCreate, string(table), title)
}

// AddPage appends a page.
func (g *Gateway) AddPage(ctx context.Context, dash domain.Snapshot, page string) (domain.Snapshot, error) {
	return g.snapshot(ctx, domain.OpDashboardAddPage, string(dash), page)
}

// AddHeading appends a heading of the given size (1 largest, 10 smallest).
func (g *Gateway) AddHeading(ctx context.Context, dash domain.Snapshot, page, text string, size int) (domain.Snapshot, error) {
	return g.snapshot(ctx, domain.OpDashboardAddHeading, string(dash), page, text, strconv.Itoa(size))
}

// AddText appends a paragraph.
func (g *Gateway) AddText(ctx context.Context, dash domain.Snapshot, page, text string) (domain.Snapshot, error) {
	return g.snapshot(ctx, domain.OpDashboardAddText, string(dash), page, text)
}

// AddSubText appends secondary text.
func (g *Gateway) AddSubText(ctx context.Context, dash domain.Snapshot, page, text string) (domain.Snapshot, error) {
	return g.snapshot(ctx, domain.OpDashboardAddSubText, string(dash), page, text)
}

// AddHTML appends a raw HTML fragment.
func (g *Gateway) AddHTML(ctx context.Context, dash domain.Snapshot, page, html string) (domain.Snapshot, error) {
	return g.snapshot(ctx, domain.OpDashboardAddHTML, string(dash), page, html)
}

// AddBullets appends a bullet list.
func (g *Gateway) AddBullets(ctx context.Context, dash domain.Snapshot, page string, items []string) (domain.Snapshot, error) {
	payload, err := encodeJSON(domain.OpDashboardAddBullets, nonNil(items))
	if err != nil {
		return "", err
	}
	return g.snapshot(ctx, domain.OpDashboardAddBullets, string(dash), page, payload)
}

// AddDataframe embeds a table snapshot.
func (g *Gateway) AddDataframe(ctx context.Context, dash domain.Snapshot, page string, table domain.Snapshot) (domain.Snapshot, error) {
	return g.snapshot(ctx, domain.OpDashboardAddDataframe, string(dash), page, string(table))
}

// AddChart embeds a chart built by Chart.
func (g *Gateway) AddChart(ctx context.Context, dash domain.Snapshot, page string, chart domain.Chart) (domain.Snapshot, error) {
	payload, err := encodeJSON(domain.OpDashboardAddChart, chart)
	if err != nil {
		return "", err
	}
	return g.snapshot(ctx, domain.OpDashboardAddChart, string(dash), page, payload)
}

// Inspect decodes the dashboard structure.
func (g *Gateway) Inspect(ctx context.Context, dash domain.Snapshot) (domain.DashboardView, error) {
	var view domain.DashboardView
	if err := g.decode(ctx, domain.OpDashboardInspect, &view, string(dash)); err != nil {
		return domain.DashboardView{}, err
	}
	return view, nil
}

// RenderDashboard returns the full HTML document of a dashboard.
func (g *Gateway) RenderDashboard(ctx context.Context, dash domain.Snapshot) (string, error) {
	return g.text(ctx, domain.OpDashboardRender, string(dash))
}

// OpenDashboard asks the engine to show the dashboard in a browser.
func (g *Gateway) OpenDashboard(ctx context.Context, dash domain.Snapshot) error {
	return g.status(ctx, domain.OpDashboardOpen, string(dash))
}

// SaveDashboard asks the engine to write the dashboard to path.
func (g *Gateway) SaveDashboard(ctx context.Context, dash domain.Snapshot, path string) error {
	return g.status(ctx, domain.OpDashboardSave, string(dash), path)
}
