/*
Package expr defines the expression model used to describe column-producing
operations.

An Expr is a closed tagged variant: it is either a FunctionCall (a named
function applied to one or more source columns, which also covers literals,
plain column references and per-row aggregates) or a Split. Expressions are
pure data. They carry no behaviour beyond construction and serialization; all
domain validation (column existence, function names) happens in the engine.

	b := expr.SHA256("name", "age")
	s := expr.SplitOn("tags", ",")
	l := expr.Literal(42)

Aggregation helpers (Sum, Mean, ...) build the descriptors consumed by chart
renderers.
*/
package expr
