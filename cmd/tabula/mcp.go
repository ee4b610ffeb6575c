package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/pkg/adapters/display"
	"github.com/aretw0/tabula/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	var (
		transport string
		port      int
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes table operations as MCP tools so AI agents can load records, derive
columns and inspect tables. Tables are kept in the configured session store.

Supported transports:
- stdio (default): JSON-RPC over standard input and output.
- sse: Server-Sent Events over HTTP on --port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mcp.Version = tabula.Version

			// Stdout belongs to JSON-RPC; anything displayed goes to stderr.
			sink := display.New(display.WithWriter(cmd.ErrOrStderr()), display.WithLogger(a.logger))
			client, err := a.client(cmd, tabula.WithSink(sink), tabula.WithInlineCharts(false))
			if err != nil {
				return err
			}
			defer client.Close()

			srv, err := mcp.NewServer(client)
			if err != nil {
				return err
			}

			switch transport {
			case "stdio":
				log.SetOutput(os.Stderr)
				a.logger.Info("Starting Tabula MCP Server (Stdio)")
				return srv.ServeStdio()
			case "sse":
				a.logger.Info("Starting Tabula MCP Server (SSE)", "port", port)
				return srv.ServeSSE(cmd.Context(), port)
			}
			return fmt.Errorf("unknown transport %q (use stdio or sse)", transport)
		},
	}
	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "stdio or sse")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port for the sse transport")
	return cmd
}
