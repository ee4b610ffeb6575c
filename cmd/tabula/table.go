package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/internal/cli"
	"github.com/aretw0/tabula/internal/presentation/tui"
	"github.com/aretw0/tabula/internal/recipe"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/expr"
	"github.com/aretw0/tabula/pkg/session"
	"github.com/spf13/cobra"
)

func sessionFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "session", "s", "", "Session id of the table")
	_ = cmd.MarkFlagRequired("session")
}

// withTable resumes the table stored under sessionID and runs fn on it.
func (a *app) withTable(cmd *cobra.Command, sessionID string, fn func(context.Context, *tabula.Table) error) error {
	client, err := a.client(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	table, err := client.Resume(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), table)
}

func newLoadCmd(a *app) *cobra.Command {
	var sessionID, format string
	cmd := &cobra.Command{
		Use:   "load <file|->",
		Short: "Load JSON, NDJSON or CSV records into a new table session",
		Long: `Loads records from a JSON array, newline-delimited JSON or CSV file ("-" reads
stdin) and stores the table under a session. The session id is printed on stdout.

The format follows the file extension (.json, .ndjson, .jsonl, .csv) unless
--format is given; stdin is sniffed. CSV values are loaded as strings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := recipe.ParseFormat(format)
			if err != nil {
				return err
			}
			records, err := cli.ReadRecordsFile(args[0], f, cmd.InOrStdin())
			if err != nil {
				return err
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			table, err := client.LoadJSON(ctx, records)
			if err != nil {
				return err
			}
			rows, err := table.Count(ctx)
			if err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = session.NewID()
			}
			if err := table.Persist(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sessionID)
			status(cmd, "loaded %d records into session %s", rows, sessionID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id (generated when empty; an existing session is replaced)")
	cmd.Flags().StringVar(&format, "format", "", "Records format: json, ndjson or csv (default: from extension)")
	return cmd
}

func newApplyCmd(a *app) *cobra.Command {
	var (
		sessionID string
		column    string
		function  string
		args      []string
		value     string
		split     string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Derive a column from an expression",
		Long: `Adds or replaces a column with the result of an expression.

  --fn sha256 --args a,b        hash of the concatenated values of a and b
  --fn col --args a             copy of column a
  --fn lit --value 3            constant column
  --fn collect_set --args tags  list column of distinct values
  --split path:/                split column path on "/"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := buildExpr(function, args, value, cmd.Flags().Changed("value"), split)
			if err != nil {
				return err
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			table, err := client.UpdateTable(cmd.Context(), sessionID, func(ctx context.Context, t *tabula.Table) error {
				_, err := t.ApplyColumn(ctx, column, e)
				return err
			})
			if err != nil {
				return err
			}
			cols, err := table.Columns(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cols, "\n"))
			status(cmd, "%s = %s", column, expr.String(e))
			return nil
		},
	}
	sessionFlag(cmd, &sessionID)
	cmd.Flags().StringVarP(&column, "column", "c", "", "Name of the column to write")
	cmd.Flags().StringVar(&function, "fn", "", "Function name: col, lit, sha256, sha512, collect_list, collect_set")
	cmd.Flags().StringSliceVar(&args, "args", nil, "Function arguments (source columns)")
	cmd.Flags().StringVar(&value, "value", "", "Constant for lit, parsed as JSON when possible")
	cmd.Flags().StringVar(&split, "split", "", "Split expression as column:delimiter")
	_ = cmd.MarkFlagRequired("column")
	cmd.MarkFlagsMutuallyExclusive("fn", "split")
	cmd.MarkFlagsOneRequired("fn", "split")
	return cmd
}

func buildExpr(function string, args []string, value string, hasValue bool, split string) (expr.Expr, error) {
	if split != "" {
		return expr.ParseSplit(split)
	}
	spec := expr.Spec{Function: function, Args: args}
	if hasValue {
		spec.Value = expr.LiteralValue(value)
	}
	return spec.Build()
}

func newShowCmd(a *app) *cobra.Command {
	var (
		sessionID string
		kind      string
		width     int
		rows      int
		inline    bool
		file      string
		browser   bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print or display a table",
		Long: `Prints a text rendering of the table. head and tail show at most five rows;
--rows bounds every kind. With --inline, --file or --browser the HTML rendering
is displayed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withTable(cmd, sessionID, func(ctx context.Context, t *tabula.Table) error {
				switch {
				case file != "":
					if err := t.DisplayToFile(ctx, file); err != nil {
						return err
					}
					status(cmd, "wrote %s", file)
					return nil
				case browser:
					return t.DisplayInBrowser(ctx)
				case inline:
					return t.DisplayInline(ctx)
				}
				text, err := t.Render(ctx, domain.RenderKind(kind), width, rows)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	sessionFlag(cmd, &sessionID)
	cmd.Flags().StringVarP(&kind, "kind", "k", string(domain.RenderHead), "head, tail, show or vertical")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "Maximum cell width (0 uses the engine default)")
	cmd.Flags().IntVarP(&rows, "rows", "n", 20, "Row limit (0 for all; head and tail never exceed five)")
	cmd.Flags().BoolVar(&inline, "inline", false, "Write the HTML rendering to stdout")
	cmd.Flags().StringVarP(&file, "file", "o", "", "Write the HTML rendering to a file")
	cmd.Flags().BoolVar(&browser, "browser", false, "Open the HTML rendering in a browser")
	cmd.MarkFlagsMutuallyExclusive("inline", "file", "browser")
	return cmd
}

func newColumnsCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List the columns of a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withTable(cmd, sessionID, func(ctx context.Context, t *tabula.Table) error {
				cols, err := t.Columns(ctx)
				if err != nil {
					return err
				}
				for _, c := range cols {
					fmt.Fprintln(cmd.OutOrStdout(), c)
				}
				return nil
			})
		},
	}
	sessionFlag(cmd, &sessionID)
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var (
		sessionID  string
		distinct   bool
		duplicates bool
	)
	cmd := &cobra.Command{
		Use:   "count [column...]",
		Short: "Count rows, distinct rows or duplicate rows",
		Long: `Counts the rows of a table. With --distinct or --duplicates rows are compared
on the given columns, or on all columns when none are named.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && !distinct && !duplicates {
				return errors.New("columns only apply to --distinct or --duplicates")
			}
			return a.withTable(cmd, sessionID, func(ctx context.Context, t *tabula.Table) error {
				var (
					n   int
					err error
				)
				switch {
				case distinct:
					n, err = t.CountDistinct(ctx, args...)
				case duplicates:
					n, err = t.CountDuplicates(ctx, args...)
				default:
					n, err = t.Count(ctx)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
	sessionFlag(cmd, &sessionID)
	cmd.Flags().BoolVar(&distinct, "distinct", false, "Count distinct rows")
	cmd.Flags().BoolVar(&duplicates, "duplicates", false, "Count rows repeating an earlier row")
	cmd.MarkFlagsMutuallyExclusive("distinct", "duplicates")
	return cmd
}

func newCollectCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "collect <column>",
		Short: "Print the values of a column as a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTable(cmd, sessionID, func(ctx context.Context, t *tabula.Table) error {
				values, err := t.Collect(ctx, args[0])
				if err != nil {
					return err
				}
				out, err := json.Marshal(values)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}
	sessionFlag(cmd, &sessionID)
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	var (
		sessionID string
		raw       bool
	)
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarize a table: rows, distinct rows and distinct values per column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withTable(cmd, sessionID, func(ctx context.Context, t *tabula.Table) error {
				md, err := t.Describe(ctx)
				if err != nil {
					return err
				}
				if !raw {
					render := tui.NewRenderer(tui.TerminalWidth())
					if md, err = render(md); err != nil {
						return err
					}
				}
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			})
		},
	}
	sessionFlag(cmd, &sessionID)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without terminal styling")
	return cmd
}
