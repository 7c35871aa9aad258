package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dynquery/internal/harness"
	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Data      string // dataset YAML seeded before the query runs
	CountOnly bool
}

// RunResult is the outcome of one executed request.
type RunResult struct {
	Backend string           `json:"backend"`
	Shape   string           `json:"shape"`
	Count   int64            `json:"count"`
	Rows    []map[string]any `json:"rows,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <request.yaml>",
		Short: "Execute a request against a backend",
		Long: `Build a request and execute it on the configured backend.

Tables for every record type in the schema are created first and, when
--data is given, the dataset is inserted. With a file-backed SQLite
database (--db) previously loaded records are queried as well.

Example:
  dynquery run --schema ./schema --data users.yaml request.yaml
  dynquery run --schema ./schema --backend sqlite --db ./users.db request.yaml
  dynquery run --schema ./schema --backend postgres --pg-url $PG_URL --count request.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "dataset file to load before querying")
	cmd.Flags().BoolVar(&opts.CountOnly, "count", false, "print only the number of matching records")

	return cmd
}

func runRequest(opts *RunOptions, requestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	queryID := newQueryID()
	logger := opts.logger().With("query_id", queryID)

	backend, err := harness.ParseBackend(opts.Backend)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	reg, err := LoadSchema(opts.Schema)
	if err != nil {
		return loadFailure(formatter, err)
	}
	req, err := LoadRequest(requestPath, cmd.InOrStdin())
	if err != nil {
		return loadFailure(formatter, err)
	}
	var records map[string][]map[string]any
	if opts.Data != "" {
		if records, err = LoadDataset(opts.Data); err != nil {
			return loadFailure(formatter, err)
		}
	}

	q, err := buildLoaded(formatter, reg, req)
	if err != nil {
		return err
	}
	shape, err := queryir.ShapeHash(q)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash query shape", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec, closeFn, err := harness.Open(ctx, backend, harness.BackendConfig{
		SQLitePath:  opts.Database,
		PostgresURL: opts.PostgresURL,
		Logger:      logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to open %s backend", backend), err)
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil {
			logger.Error("error closing backend", "error", closeErr)
		}
	}()

	if err := harness.Seed(ctx, exec, reg, records); err != nil {
		return WrapExitError(ExitCommandError, "failed to load dataset", err)
	}
	logger.Debug("executing request", "backend", backend, "query", q.String(), "shape", shape)

	count, err := exec.Count(ctx, q)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}
	result := RunResult{Backend: string(backend), Shape: shape, Count: count}

	var rows []ir.IRObject
	if !opts.CountOnly {
		if rows, err = exec.Query(ctx, q); err != nil {
			return WrapExitError(ExitFailure, "query failed", err)
		}
		result.Rows = make([]map[string]any, len(rows))
		for i, rec := range rows {
			result.Rows[i] = schema.Document(rec)
		}
	}
	logger.Info("request executed", "backend", backend, "count", count)

	if formatter.Format == "json" {
		return formatter.SuccessFor(queryID, result)
	}

	if opts.CountOnly {
		fmt.Fprintln(formatter.Writer, count)
		return nil
	}
	return writeRowsText(formatter, q.ResultType(), rows)
}

// writeRowsText prints rows as an aligned table with a header of rt's
// field names.
func writeRowsText(f *OutputFormatter, rt *schema.RecordType, rows []ir.IRObject) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	names := rt.FieldNames()
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	for _, rec := range rows {
		cells := make([]string, len(names))
		for i, name := range names {
			cells[i] = formatCell(rec[name])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	noun := "rows"
	if len(rows) == 1 {
		noun = "row"
	}
	fmt.Fprintf(f.Writer, "(%d %s)\n", len(rows), noun)
	return nil
}

func formatCell(v ir.IRValue) string {
	if s, ok := v.(ir.IRString); ok {
		return string(s)
	}
	return ir.Format(v)
}
