package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/internal/cli"
	"github.com/aretw0/tabula/internal/config"
	"github.com/aretw0/tabula/internal/logging"
	"github.com/aretw0/tabula/internal/presentation/tui"
	"github.com/aretw0/tabula/pkg/adapters/display"
	"github.com/spf13/cobra"
)

// app carries what every command needs once the persistent flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tabula",
		Short: "Tabula builds tables and dashboards on a pluggable columnar engine",
		Long: `Tabula loads records into tables, derives columns from expressions, renders
charts and assembles them into HTML dashboards. Every operation is delegated to
an engine: the built-in local engine, an engine binary, or a remote engine server.

Tables live in sessions so that successive commands can build on each other:

  id=$(tabula load sales.json)
  tabula apply -s $id --column key --fn sha256 --args region,amount
  tabula show -s $id`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tui.PrintBanner(cmd.ErrOrStderr())
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: tabula.yaml when present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn, error or off (overrides the config)")

	root.AddCommand(
		newLoadCmd(a),
		newApplyCmd(a),
		newShowCmd(a),
		newColumnsCmd(a),
		newCountCmd(a),
		newCollectCmd(a),
		newDescribeCmd(a),
		newChartCmd(a),
		newBuildCmd(a),
		newServeCmd(a),
		newEngineCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
// SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, tui.Failure("%v", err))
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := logging.FromName(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// client builds a client whose inline output goes to the command's stdout.
// Later options override earlier ones.
func (a *app) client(cmd *cobra.Command, opts ...tabula.Option) (*tabula.Client, error) {
	sink := display.New(display.WithWriter(cmd.OutOrStdout()), display.WithLogger(a.logger))
	all := append([]tabula.Option{tabula.WithSink(sink)}, opts...)
	return cli.NewClient(cmd.Context(), a.cfg, a.logger, all...)
}

// status prints a human-readable confirmation on stderr, keeping stdout for data.
func status(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.ErrOrStderr(), tui.Success(format, args...))
}
