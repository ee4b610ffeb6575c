package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/internal/preview"
	"github.com/aretw0/tabula/pkg/adapters/display"
	tabulahttp "github.com/aretw0/tabula/pkg/adapters/http"
	"github.com/aretw0/tabula/pkg/adapters/local"
	"github.com/aretw0/tabula/pkg/adapters/process"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port int
		dir  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a directory of dashboards over HTTP",
		Long:  `Serves the files of --dir (default: the current directory) on --port until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Serve.Port
			}
			if !cmd.Flags().Changed("dir") {
				dir = a.cfg.Serve.Dir
			}
			status(cmd, "serving %s on http://localhost:%d", dir, port)
			return preview.New(dir, port, preview.WithLogger(a.logger)).ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", preview.DefaultPort, "Port to listen on")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to serve")
	return cmd
}

func newEngineCmd(a *app) *cobra.Command {
	var (
		stdio bool
		port  int
	)
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Expose the local engine to other processes",
		Long: `Runs the built-in engine as a server for the process and http engine kinds.

With --stdio one call is read from stdin and its envelope written to stdout,
which is the protocol of the process engine (trailing arguments are ignored).
Otherwise an HTTP server answers POST /invoke on --port.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Status operations of a served engine display on the server side.
			sink := display.New(display.WithWriter(cmd.ErrOrStderr()), display.WithLogger(a.logger))
			engine := local.New(local.WithSink(sink), local.WithLogger(a.logger))

			if stdio {
				return process.Serve(cmd.Context(), engine, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			tabulahttp.Version = tabula.Version
			handler := tabulahttp.NewHandler(engine, tabulahttp.WithLogger(a.logger))
			status(cmd, "engine listening on :%d", port)
			return listen(cmd.Context(), fmt.Sprintf(":%d", port), handler, a.logger)
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Answer a single call over stdin/stdout")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port of the HTTP engine server")
	return cmd
}

// listen serves handler on addr until ctx is done, then shuts down gracefully.
func listen(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down", "addr", addr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Graceful shutdown did not complete: %v\n", err)
		return srv.Close()
	}
	return nil
}
