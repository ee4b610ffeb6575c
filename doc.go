/*
Package tabula is a tabular-data and dashboard facade over a pluggable engine.

A Table is a handle on an opaque snapshot owned by the engine. Every operation
serializes the current snapshot together with an operation descriptor, sends it
through the engine gateway and, for mutations, replaces the snapshot with the
engine's answer. A failed call never half-applies: the previous snapshot is kept
and an error is returned.

# Concept

Columns are computed from expressions (package expr): hashes over several
columns, literals, column copies, per-row collections and string splits. Tables
can be rendered as text or HTML, summarized, charted and assembled into
multi-page dashboards.

The engine itself is an adapter (ports.Engine). The default is the in-process
local engine; process and HTTP engines are available for out-of-process use.

# Usage

	ctx := context.Background()
	client, err := tabula.New(ctx)
	if err != nil {
		log.Fatal(err)
	}

	table, err := client.Load(ctx, []map[string]any{
		{"a": "1", "b": "x"},
		{"a": "2", "b": "y"},
	})
	if err != nil {
		log.Fatal(err)
	}

	if _, err := table.ApplyColumn(ctx, "h", expr.SHA256("a", "b")); err != nil {
		log.Fatal(err)
	}

	dash, _ := table.CreateDashboard(ctx, "Report")
	dash.AddPage(ctx, "Overview")
	dash.AddDataframe(ctx, "Overview", table)
	dash.Save(ctx, "report.html")

# Sessions

With a snapshot store (WithStore) tables and dashboards can be persisted by
session ID and resumed from another process. UpdateTable performs a locked
read-modify-write of a stored table.
*/
package tabula
