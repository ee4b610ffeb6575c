package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/internal/recipe"
	"github.com/aretw0/tabula/pkg/adapters/file"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/spf13/cobra"
)

// parseAggregations parses column:func pairs, e.g. amount:sum.
func parseAggregations(raw []string) ([]domain.Aggregation, error) {
	aggs := make([]domain.Aggregation, 0, len(raw))
	for _, r := range raw {
		col, fn, ok := strings.Cut(r, ":")
		if !ok || col == "" || fn == "" {
			return nil, fmt.Errorf("aggregation %q must look like column:func", r)
		}
		aggs = append(aggs, domain.Aggregation{Column: col, Func: domain.AggFunc(strings.ToLower(fn))})
	}
	return aggs, nil
}

func newChartCmd(a *app) *cobra.Command {
	var (
		sessionID string
		kind      string
		title     string
		subtitle  string
		groupBy   string
		aggs      []string
		out       string
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a grouped chart of a table",
		Long: `Groups the table by --group-by, applies each --agg (column:func with func one of
sum, count, mean, min, max, median, mode, unique, first) and renders a chart
fragment to stdout or --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			aggregations, err := parseAggregations(aggs)
			if err != nil {
				return err
			}
			client, err := a.client(cmd, tabula.WithInlineCharts(false))
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			table, err := client.Resume(ctx, sessionID)
			if err != nil {
				return err
			}
			chart, err := table.Chart(ctx, domain.ChartKind(kind), title, subtitle, groupBy, aggregations...)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), chart.HTML)
				return nil
			}
			if err := file.WriteAtomic(out, []byte(chart.HTML), 0o644); err != nil {
				return err
			}
			status(cmd, "wrote %s", out)
			return nil
		},
	}
	sessionFlag(cmd, &sessionID)
	cmd.Flags().StringVarP(&kind, "kind", "k", string(domain.ChartBar), "bar, column, stacked_bar or stacked_percent")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Chart title")
	cmd.Flags().StringVar(&subtitle, "subtitle", "", "Chart subtitle")
	cmd.Flags().StringVarP(&groupBy, "group-by", "g", "", "Column to group by")
	cmd.Flags().StringArrayVarP(&aggs, "agg", "a", nil, "Aggregation as column:func (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the chart markup to a file")
	_ = cmd.MarkFlagRequired("group-by")
	_ = cmd.MarkFlagRequired("agg")
	return cmd
}

func newBuildCmd(a *app) *cobra.Command {
	var (
		out       string
		open      bool
		sessionID string
	)
	cmd := &cobra.Command{
		Use:   "build <recipe.yaml>",
		Short: "Build a dashboard from a recipe",
		Long: `Replays a YAML recipe (records, derived columns, charts, pages and blocks)
and saves the rendered dashboard as a single HTML file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := recipe.Load(args[0])
			if err != nil {
				return err
			}
			client, err := a.client(cmd, tabula.WithInlineCharts(false))
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			dash, err := r.Build(ctx, client)
			if err != nil {
				return err
			}
			return finishDashboard(ctx, cmd, dash, dashboardOutput(out, r.Output), open, sessionID)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: the recipe's output, else dashboard.html)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the dashboard in a browser")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Also store the dashboard under this session")
	return cmd
}

func dashboardOutput(flag, fromRecipe string) string {
	switch {
	case flag != "":
		return flag
	case fromRecipe != "":
		return fromRecipe
	}
	return "dashboard.html"
}

func finishDashboard(ctx context.Context, cmd *cobra.Command, dash *tabula.Dashboard, out string, open bool, sessionID string) error {
	if err := dash.Save(ctx, out); err != nil {
		return err
	}
	status(cmd, "saved %q to %s", dash.Title(), out)
	if sessionID != "" {
		if err := dash.Persist(ctx, sessionID); err != nil {
			return err
		}
	}
	if open {
		return dash.Open(ctx)
	}
	return nil
}
