package domain

// RenderKind selects a text rendering of a table.
type RenderKind string

const (
	RenderHead     RenderKind = "head"
	RenderTail     RenderKind = "tail"
	RenderVertical RenderKind = "vertical"
	RenderShow     RenderKind = "show"
)

// Valid reports whether k is one of the known render kinds.
func (k RenderKind) Valid() bool {
	switch k {
	case RenderHead, RenderTail, RenderVertical, RenderShow:
		return true
	}
	return false
}
