package domain

// Op names one operation on the engine call surface.
type Op string

// Table operations.
const (
	OpLoad             Op = "load"
	OpRender           Op = "render"
	OpColumns          Op = "columns"
	OpCount            Op = "count"
	OpCountDuplicates  Op = "count_duplicates"
	OpCountDistinct    Op = "count_distinct"
	OpCollect          Op = "collect"
	OpApplyFunction    Op = "apply.function"
	OpApplySplit       Op = "apply.split"
	OpApplyCollectList Op = "apply.collect_list"
	OpApplyCollectSet  Op = "apply.collect_set"
)

// Chart renderers.
const (
	OpChartBar            Op = "chart.bar"
	OpChartColumn         Op = "chart.column"
	OpChartStackedBar     Op = "chart.stacked_bar"
	OpChartStackedPercent Op = "chart.stacked_percent"
)

// Display operations.
const (
	OpDisplayInline  Op = "display.inline"
	OpDisplayFile    Op = "display.file"
	OpDisplayBrowser Op = "display.browser"
)

// Dashboard operations.
const (
	OpDashboardCreate       Op = "dashboard.create"
	OpDashboardAddPage      Op = "dashboard.add_page"
	OpDashboardAddHeading   Op = "dashboard.add_heading"
	OpDashboardAddText      Op = "dashboard.add_text"
	OpDashboardAddSubText   Op = "dashboard.add_subtext"
	OpDashboardAddHTML      Op = "dashboard.add_html"
	OpDashboardAddBullets   Op = "dashboard.add_bullets"
	OpDashboardAddDataframe Op = "dashboard.add_dataframe"
	OpDashboardAddChart     Op = "dashboard.add_chart"
	OpDashboardInspect      Op = "dashboard.inspect"
	OpDashboardRender       Op = "dashboard.render"
	OpDashboardOpen         Op = "dashboard.open"
	OpDashboardSave         Op = "dashboard.save"
)

// OpPing is answered by every engine with a non-empty text. The gateway uses it
// to fail fast when an engine cannot be reached.
const OpPing Op = "ping"

// Call is a single request on the engine call surface. Every argument is UTF-8
// text: JSON for structured values, raw text for scalars.
type Call struct {
	Op   Op       `json:"op"`
	Args []string `json:"args"`
}

// NewCall builds a Call, copying args so callers may reuse their slice.
func NewCall(op Op, args ...string) Call {
	cp := make([]string, len(args))
	copy(cp, args)
	return Call{Op: op, Args: cp}
}

// Arg returns the i-th argument or "" when absent.
func (c Call) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Envelope wraps an engine response on transports that cannot return a Go error
// (process pipes, HTTP bodies). An empty Error means the call reached the engine
// and Result holds its raw response.
type Envelope struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}
