// Package mcp exposes table operations as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/expr"
	"github.com/aretw0/tabula/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is advertised to MCP clients.
var Version = "dev"

// TableSummary is returned by tools that create or change a table.
type TableSummary struct {
	Session string   `json:"session" jsonschema_description:"Session ID holding the table"`
	Columns []string `json:"columns" jsonschema_description:"Column names in order"`
	Rows    int      `json:"rows" jsonschema_description:"Number of rows"`
}

// LoadArgs are the arguments of load_table.
type LoadArgs struct {
	Session string `json:"session,omitempty"`
	Records string `json:"records"`
}

// ApplyArgs are the arguments of apply_column.
type ApplyArgs struct {
	Session   string `json:"session"`
	Column    string `json:"column"`
	Function  string `json:"function,omitempty"`
	Args      string `json:"args,omitempty"`
	Split     string `json:"split,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
}

// CountArgs are the arguments of table_count.
type CountArgs struct {
	Session string `json:"session"`
	Mode    string `json:"mode,omitempty"`
	Columns string `json:"columns,omitempty"`
}

// CountResult is returned by table_count.
type CountResult struct {
	Mode  string `json:"mode"`
	Count int    `json:"count"`
}

// RenderArgs are the arguments of table_render.
type RenderArgs struct {
	Session string `json:"session"`
	Kind    string `json:"kind,omitempty"`
	Width   int    `json:"width,omitempty"`
	Rows    int    `json:"rows,omitempty"`
}

// SessionArgs identify a stored table.
type SessionArgs struct {
	Session string `json:"session"`
}

// Server wraps a Tabula client and exposes it as an MCP server.
// Tables live in the client's snapshot store between tool calls.
type Server struct {
	client    *tabula.Client
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server. The client must have a snapshot store.
func NewServer(client *tabula.Client) (*Server, error) {
	if client.Sessions() == nil {
		return nil, fmt.Errorf("mcp server: %w", tabula.ErrNoStore)
	}
	s := &Server{
		client:    client,
		logger:    client.Logger(),
		mcpServer: server.NewMCPServer("tabula-mcp", strings.TrimSpace(Version)),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP server over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("load_table",
		mcp.WithDescription("Load a JSON array of objects into a new table session."),
		mcp.WithString("records", mcp.Required(), mcp.Description("JSON array of objects; keys are column names")),
		mcp.WithString("session", mcp.Description("Session ID to store the table under (generated when omitted)")),
		mcp.WithOutputSchema[TableSummary](),
	), mcp.NewStructuredToolHandler(s.handleLoad))

	s.mcpServer.AddTool(mcp.NewTool("apply_column",
		mcp.WithDescription("Compute a column from a function (Col, Lit, SHA256, SHA512, CollectList, CollectSet) or a split."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Table session ID")),
		mcp.WithString("column", mcp.Required(), mcp.Description("Name of the column to create or replace")),
		mcp.WithString("function", mcp.Description("Function name")),
		mcp.WithString("args", mcp.Description("JSON array or comma separated list of source columns (or the literal value for Lit)")),
		mcp.WithString("split", mcp.Description("Source column to split instead of applying a function")),
		mcp.WithString("delimiter", mcp.Description("Delimiter used with split")),
		mcp.WithOutputSchema[TableSummary](),
	), mcp.NewStructuredToolHandler(s.handleApply))

	s.mcpServer.AddTool(mcp.NewTool("table_columns",
		mcp.WithDescription("List the columns of a table session."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Table session ID")),
		mcp.WithOutputSchema[TableSummary](),
	), mcp.NewStructuredToolHandler(s.handleColumns))

	s.mcpServer.AddTool(mcp.NewTool("table_count",
		mcp.WithDescription("Count rows, distinct rows or duplicate rows."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Table session ID")),
		mcp.WithString("mode", mcp.Description("rows (default), distinct or duplicates")),
		mcp.WithString("columns", mcp.Description("Comma separated columns to consider (all when omitted)")),
		mcp.WithOutputSchema[CountResult](),
	), mcp.NewStructuredToolHandler(s.handleCount))

	s.mcpServer.AddTool(mcp.NewTool("table_render",
		mcp.WithDescription("Render a table session as text."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Table session ID")),
		mcp.WithString("kind", mcp.Description("head, tail, show (default) or vertical")),
		mcp.WithNumber("width", mcp.Description("Cell width")),
		mcp.WithNumber("rows", mcp.Description("Row limit for show and vertical")),
	), s.handleRender)

	s.mcpServer.AddTool(mcp.NewTool("table_describe",
		mcp.WithDescription("Summarize a table session as markdown."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Table session ID")),
	), s.handleDescribe)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("tabula://sessions", "Stored sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.client.Sessions().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "tabula://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) summary(ctx context.Context, id string, t *tabula.Table) (TableSummary, error) {
	cols, err := t.Columns(ctx)
	if err != nil {
		return TableSummary{}, err
	}
	rows, err := t.Count(ctx)
	if err != nil {
		return TableSummary{}, err
	}
	return TableSummary{Session: id, Columns: cols, Rows: rows}, nil
}

func (s *Server) handleLoad(ctx context.Context, _ mcp.CallToolRequest, args LoadArgs) (TableSummary, error) {
	id := args.Session
	if id == "" {
		id = session.NewID()
	}
	table, err := s.client.LoadJSON(ctx, args.Records)
	if err != nil {
		return TableSummary{}, fmt.Errorf("load failed: %w", err)
	}
	if err := table.Persist(ctx, id); err != nil {
		return TableSummary{}, fmt.Errorf("persist failed: %w", err)
	}
	s.logger.Info("MCP: table loaded", "session", id)
	return s.summary(ctx, id, table)
}

func (s *Server) handleApply(ctx context.Context, _ mcp.CallToolRequest, args ApplyArgs) (TableSummary, error) {
	e, err := expressionFrom(args)
	if err != nil {
		return TableSummary{}, err
	}
	table, err := s.client.UpdateTable(ctx, args.Session, func(ctx context.Context, t *tabula.Table) error {
		_, err := t.ApplyColumn(ctx, args.Column, e)
		return err
	})
	if err != nil {
		return TableSummary{}, fmt.Errorf("apply failed: %w", err)
	}
	return s.summary(ctx, args.Session, table)
}

func (s *Server) handleColumns(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (TableSummary, error) {
	table, err := s.client.Resume(ctx, args.Session)
	if err != nil {
		return TableSummary{}, err
	}
	return s.summary(ctx, args.Session, table)
}

func (s *Server) handleCount(ctx context.Context, _ mcp.CallToolRequest, args CountArgs) (CountResult, error) {
	table, err := s.client.Resume(ctx, args.Session)
	if err != nil {
		return CountResult{}, err
	}
	cols := splitList(args.Columns)

	mode := args.Mode
	if mode == "" {
		mode = "rows"
	}
	var n int
	switch mode {
	case "rows":
		n, err = table.Count(ctx)
	case "distinct":
		n, err = table.CountDistinct(ctx, cols...)
	case "duplicates":
		n, err = table.CountDuplicates(ctx, cols...)
	default:
		return CountResult{}, fmt.Errorf("unknown count mode %q", mode)
	}
	if err != nil {
		return CountResult{}, err
	}
	return CountResult{Mode: mode, Count: n}, nil
}

func (s *Server) handleRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args RenderArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	table, err := s.client.Resume(ctx, args.Session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind := domain.RenderKind(args.Kind)
	if kind == "" {
		kind = domain.RenderShow
	}
	out, err := table.Render(ctx, kind, args.Width, args.Rows)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SessionArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	table, err := s.client.Resume(ctx, args.Session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := table.Describe(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("describe failed: %v", err)), nil
	}
	return mcp.NewToolResultText(md), nil
}

// expressionFrom builds the expression described by apply_column arguments.
func expressionFrom(args ApplyArgs) (expr.Expr, error) {
	spec := expr.Spec{
		Function:  args.Function,
		Split:     args.Split,
		Delimiter: args.Delimiter,
	}
	if expr.FunctionName(args.Function) == expr.FnLit {
		spec.Args = []string{args.Args}
	} else {
		spec.Args = columnsArg(args.Args)
	}
	return spec.Build()
}

// columnsArg accepts a JSON array or a comma separated list.
func columnsArg(raw string) []string {
	var cols []string
	if err := json.Unmarshal([]byte(raw), &cols); err == nil {
		return cols
	}
	return splitList(raw)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
