package local

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tabula/pkg/domain"
)

// chartFragment renders a Highcharts container and the script that fills it.
// The fragment expects highcharts.js to be loaded by the enclosing document.
func chartFragment(id string, kind domain.ChartKind, title, subtitle, groupCol string, g *grouped) (string, error) {
	chartType := "bar"
	stacking := ""
	switch kind {
	case domain.ChartBar:
	case domain.ChartColumn:
		chartType = "column"
	case domain.ChartStackedBar:
		stacking = "normal"
	case domain.ChartStackedPercent:
		stacking = "percent"
	default:
		return "", fmt.Errorf("unknown chart kind %q", kind)
	}

	plot := map[string]any{
		"dataLabels":   map[string]any{"enabled": stacking == ""},
		"groupPadding": 0.1,
		"borderRadius": "50%",
	}
	if stacking != "" {
		plot["stacking"] = stacking
	}

	categories := g.categories
	if categories == nil {
		categories = []string{}
	}
	data := g.series
	if data == nil {
		data = []series{}
	}

	options := map[string]any{
		"chart":    map[string]any{"type": chartType},
		"title":    map[string]any{"text": title},
		"subtitle": map[string]any{"text": subtitle},
		"xAxis": map[string]any{
			"categories":    categories,
			"title":         map[string]any{"text": groupCol},
			"gridLineWidth": 1,
			"lineWidth":     0,
		},
		"yAxis": map[string]any{
			"min":           0,
			"title":         map[string]any{"text": "", "align": "middle"},
			"gridLineWidth": 0,
		},
		"plotOptions": map[string]any{"series": plot},
		"credits":     map[string]any{"enabled": false},
		"series":      data,
	}

	optsJSON, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encode chart options: %w", err)
	}
	idJSON, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<div id=%q class=\"tabula-chart\"></div>\n<script>Highcharts.chart(%s, %s);</script>\n", id, idJSON, optsJSON), nil
}
