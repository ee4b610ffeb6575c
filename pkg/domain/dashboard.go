package domain

// BlockKind identifies a dashboard content block.
type BlockKind string

const (
	BlockHeading BlockKind = "heading"
	BlockText    BlockKind = "text"
	BlockSubText BlockKind = "subtext"
	BlockHTML    BlockKind = "html"
	BlockBullets BlockKind = "bullets"
	BlockTable   BlockKind = "table"
	BlockChart   BlockKind = "chart"
)

// DefaultHeadingSize is used when a heading is added without an explicit size.
const DefaultHeadingSize = 8

// Block is one piece of page content.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Size  int       `json:"size,omitempty"`
	Items []string  `json:"items,omitempty"`
	// Table holds the embedded table snapshot for BlockTable.
	Table Snapshot `json:"table,omitempty"`
	// Chart holds the rendered chart for BlockChart.
	Chart *Chart `json:"chart,omitempty"`
}

// PageView is one named page and its blocks in insertion order.
type PageView struct {
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// DashboardView is the read-only projection of a dashboard snapshot.
type DashboardView struct {
	Title string     `json:"title"`
	Pages []PageView `json:"pages"`
}

// Page returns the first page with the given name.
func (v DashboardView) Page(name string) (PageView, bool) {
	for _, p := range v.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return PageView{}, false
}
