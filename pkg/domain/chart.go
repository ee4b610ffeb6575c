package domain

// ChartKind selects the chart renderer.
type ChartKind string

const (
	ChartBar            ChartKind = "bar"
	ChartColumn         ChartKind = "column"
	ChartStackedBar     ChartKind = "stacked_bar"
	ChartStackedPercent ChartKind = "stacked_percent"
)

// Op returns the engine operation rendering this chart kind.
func (k ChartKind) Op() (Op, bool) {
	switch k {
	case ChartBar:
		return OpChartBar, true
	case ChartColumn:
		return OpChartColumn, true
	case ChartStackedBar:
		return OpChartStackedBar, true
	case ChartStackedPercent:
		return OpChartStackedPercent, true
	}
	return "", false
}

// AggFunc names an aggregation applied per group.
type AggFunc string

const (
	AggSum    AggFunc = "sum"
	AggCount  AggFunc = "count"
	AggMean   AggFunc = "mean"
	AggMin    AggFunc = "min"
	AggMax    AggFunc = "max"
	AggMedian AggFunc = "median"
	AggMode   AggFunc = "mode"
	AggUnique AggFunc = "unique"
	AggFirst  AggFunc = "first"
)

// Aggregation is one aggregation spec of a chart: the column it reads and the
// function the engine applies to each group.
type Aggregation struct {
	Column string  `json:"column" yaml:"column" mapstructure:"column"`
	Func   AggFunc `json:"func" yaml:"func" mapstructure:"func"`
}

// ChartSpec is the flat descriptor passed to chart renderers.
// The core serializes it and never looks inside.
type ChartSpec struct {
	Kind         ChartKind     `json:"kind" yaml:"kind" mapstructure:"kind"`
	Title        string        `json:"title" yaml:"title" mapstructure:"title"`
	Subtitle     string        `json:"subtitle,omitempty" yaml:"subtitle,omitempty" mapstructure:"subtitle"`
	GroupBy      string        `json:"group_by" yaml:"group_by" mapstructure:"group_by"`
	Aggregations []Aggregation `json:"aggregations" yaml:"aggregations" mapstructure:"aggregations"`
}

// Chart is a rendered chart: the descriptor it came from and the markup the
// engine produced for it. Dashboards embed it by value.
type Chart struct {
	Spec ChartSpec `json:"spec"`
	HTML string    `json:"html"`
}
