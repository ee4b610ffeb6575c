// Package recipe describes a dashboard declaratively in YAML: where the
// records come from, which columns to derive, which charts to render and how
// the pages are laid out. Build replays a recipe through a tabula.Client.
package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/expr"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Recipe is a decoded recipe file.
type Recipe struct {
	Title string `mapstructure:"title"`
	// Source is a JSON array, NDJSON or CSV file, relative to the recipe file.
	// Format overrides the format implied by the source extension.
	Source  string           `mapstructure:"source"`
	Format  string           `mapstructure:"format"`
	Records []map[string]any `mapstructure:"records"`
	Columns []Column         `mapstructure:"columns"`
	Charts  []Chart          `mapstructure:"charts"`
	Pages   []Page           `mapstructure:"pages"`
	// Output is the default destination of the rendered dashboard.
	Output string `mapstructure:"output"`

	dir string
}

// Column derives a new column from an expression.
type Column struct {
	Name      string `mapstructure:"name"`
	expr.Spec `mapstructure:",squash"`
}

// Chart is a named chart that page blocks refer to.
type Chart struct {
	Name             string `mapstructure:"name"`
	domain.ChartSpec `mapstructure:",squash"`
}

type Page struct {
	Name   string  `mapstructure:"name"`
	Blocks []Block `mapstructure:"blocks"`
}

// Block sets exactly one content field. Size only applies to headings.
type Block struct {
	Heading string   `mapstructure:"heading"`
	Size    int      `mapstructure:"size"`
	Text    string   `mapstructure:"text"`
	SubText string   `mapstructure:"subtext"`
	HTML    string   `mapstructure:"html"`
	Bullets []string `mapstructure:"bullets"`
	Table   bool     `mapstructure:"table"`
	Chart   string   `mapstructure:"chart"`
}

func (b Block) kinds() []domain.BlockKind {
	var kinds []domain.BlockKind
	if b.Heading != "" {
		kinds = append(kinds, domain.BlockHeading)
	}
	if b.Text != "" {
		kinds = append(kinds, domain.BlockText)
	}
	if b.SubText != "" {
		kinds = append(kinds, domain.BlockSubText)
	}
	if b.HTML != "" {
		kinds = append(kinds, domain.BlockHTML)
	}
	if len(b.Bullets) > 0 {
		kinds = append(kinds, domain.BlockBullets)
	}
	if b.Table {
		kinds = append(kinds, domain.BlockTable)
	}
	if b.Chart != "" {
		kinds = append(kinds, domain.BlockChart)
	}
	return kinds
}

// Load reads and validates a recipe file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", path, err)
	}
	r.dir = filepath.Dir(path)
	return r, nil
}

// Parse decodes and validates recipe YAML. Unknown keys are rejected.
func Parse(data []byte) (*Recipe, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	var r Recipe
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &r,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the references between columns, charts and pages.
func (r *Recipe) Validate() error {
	var errs []error

	if r.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if (r.Source == "") == (r.Records == nil) {
		errs = append(errs, errors.New("exactly one of source or records is required"))
	}
	if _, err := ParseFormat(r.Format); err != nil {
		errs = append(errs, err)
	}

	for i, c := range r.Columns {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("columns[%d]: name is required", i))
		}
		if _, err := c.Spec.Build(); err != nil {
			errs = append(errs, fmt.Errorf("columns[%d]: %w", i, err))
		}
	}

	charts := map[string]bool{}
	for i, c := range r.Charts {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("charts[%d]: name is required", i))
			continue
		}
		if charts[c.Name] {
			errs = append(errs, fmt.Errorf("charts[%d]: duplicate name %q", i, c.Name))
		}
		charts[c.Name] = true
		if _, ok := c.Kind.Op(); !ok {
			errs = append(errs, fmt.Errorf("chart %q: unknown kind %q", c.Name, c.Kind))
		}
	}

	if len(r.Pages) == 0 {
		errs = append(errs, errors.New("at least one page is required"))
	}
	for i, p := range r.Pages {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("pages[%d]: name is required", i))
		}
		for j, b := range p.Blocks {
			kinds := b.kinds()
			if len(kinds) != 1 {
				errs = append(errs, fmt.Errorf("pages[%d].blocks[%d]: exactly one content field must be set, got %d", i, j, len(kinds)))
				continue
			}
			if b.Chart != "" && !charts[b.Chart] {
				errs = append(errs, fmt.Errorf("pages[%d].blocks[%d]: unknown chart %q", i, j, b.Chart))
			}
		}
	}

	return errors.Join(errs...)
}

// records returns the records as a JSON array. Inline records are YAML maps,
// so their columns come out in key order.
func (r *Recipe) records() (string, error) {
	if r.Source == "" {
		b, err := json.Marshal(r.Records)
		if err != nil {
			return "", fmt.Errorf("encode records: %w", err)
		}
		return string(b), nil
	}
	path := r.Source
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}
	format, err := ParseFormat(r.Format)
	if err != nil {
		return "", err
	}
	if format == FormatAuto {
		format = FormatFromPath(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()
	return ReadRecords(f, format)
}

// Build loads the records, derives the columns, renders the charts and lays
// out the dashboard. Every step is an engine call made through client.
func (r *Recipe) Build(ctx context.Context, client *tabula.Client) (*tabula.Dashboard, error) {
	records, err := r.records()
	if err != nil {
		return nil, err
	}

	table, err := client.LoadJSON(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	for _, c := range r.Columns {
		e, err := c.Spec.Build()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		if table, err = table.ApplyColumn(ctx, c.Name, e); err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
	}

	charts := make(map[string]domain.Chart, len(r.Charts))
	for _, c := range r.Charts {
		chart, err := table.Chart(ctx, c.Kind, c.Title, c.Subtitle, c.GroupBy, c.Aggregations...)
		if err != nil && !errors.Is(err, domain.ErrDisplay) {
			return nil, fmt.Errorf("chart %s: %w", c.Name, err)
		}
		charts[c.Name] = chart
	}

	dash, err := table.CreateDashboard(ctx, r.Title)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	for _, p := range r.Pages {
		if dash, err = dash.AddPage(ctx, p.Name); err != nil {
			return nil, fmt.Errorf("page %s: %w", p.Name, err)
		}
		for _, b := range p.Blocks {
			if dash, err = addBlock(ctx, dash, p.Name, b, table, charts); err != nil {
				return nil, fmt.Errorf("page %s: %w", p.Name, err)
			}
		}
	}
	return dash, nil
}

func addBlock(ctx context.Context, dash *tabula.Dashboard, page string, b Block, table *tabula.Table, charts map[string]domain.Chart) (*tabula.Dashboard, error) {
	switch {
	case b.Heading != "":
		return dash.AddHeading(ctx, page, b.Heading, b.Size)
	case b.Text != "":
		return dash.AddText(ctx, page, b.Text)
	case b.SubText != "":
		return dash.AddSubText(ctx, page, b.SubText)
	case b.HTML != "":
		return dash.AddHTML(ctx, page, b.HTML)
	case len(b.Bullets) > 0:
		return dash.AddBullets(ctx, page, b.Bullets...)
	case b.Table:
		return dash.AddDataframe(ctx, page, table)
	default:
		return dash.AddChart(ctx, page, charts[b.Chart])
	}
}
