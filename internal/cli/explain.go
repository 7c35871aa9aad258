package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/dynquery/internal/builder"
	"github.com/roach88/dynquery/internal/celexec"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/querysql"
	"github.com/roach88/dynquery/internal/schema"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Dialect string // sqlite | postgres | cel | all
}

// StatementView is one rendering of a query.
type StatementView struct {
	Dialect string `json:"dialect"`
	Text    string `json:"text"`
	Args    []any  `json:"args"`
}

// ExplainResult describes a built query.
type ExplainResult struct {
	Query      string          `json:"query"`
	Params     string          `json:"params,omitempty"`
	Shape      string          `json:"shape"`
	Statements []StatementView `json:"statements"`
}

var explainDialects = []string{"sqlite", "postgres", "cel"}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <request.yaml>",
		Short: "Show how a request compiles",
		Long: `Build a request against the schema and print the query it produces,
its parameter values, its shape hash and its SQL or CEL renderings.

Requests differing only in values share a shape hash and compile to the
same statement text.

Examples:
  dynquery explain --schema ./schema request.yaml
  dynquery explain --schema ./schema --dialect postgres request.yaml
  cat request.yaml | dynquery explain --schema ./schema -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "all", "rendering to show (sqlite|postgres|cel|all)")

	return cmd
}

func runExplain(opts *ExplainOptions, requestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	dialects, err := explainDialectList(opts.Dialect)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	q, err := buildRequest(opts.RootOptions, requestPath, cmd)
	if err != nil {
		return err
	}

	result, err := explainQuery(q, dialects)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to render query", err)
	}
	opts.logger().Debug("explained request", "request", requestPath, "shape", result.Shape)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeExplainText(formatter, result)
	return nil
}

func explainDialectList(name string) ([]string, error) {
	switch name {
	case "", "all":
		return explainDialects, nil
	case "sqlite", "postgres", "cel":
		return []string{name}, nil
	default:
		return nil, fmt.Errorf("invalid dialect %q: must be one of sqlite, postgres, cel or all", name)
	}
}

// explainQuery renders q in every requested dialect.
func explainQuery(q queryir.Query, dialects []string) (ExplainResult, error) {
	shape, err := queryir.ShapeHash(q)
	if err != nil {
		return ExplainResult{}, err
	}
	result := ExplainResult{
		Query:  q.String(),
		Params: queryir.FormatParameters(q.Filter),
		Shape:  shape,
	}
	for _, name := range dialects {
		var view StatementView
		if name == "cel" {
			expr, args, err := celexec.Render(q.Filter)
			if err != nil {
				return ExplainResult{}, err
			}
			view = StatementView{Dialect: name, Text: expr, Args: args}
		} else {
			d, err := querysql.ParseDialect(name)
			if err != nil {
				return ExplainResult{}, err
			}
			stmt, err := querysql.NewCompiler(d).Compile(q)
			if err != nil {
				return ExplainResult{}, err
			}
			view = StatementView{Dialect: name, Text: stmt.SQL, Args: stmt.Args}
		}
		if view.Args == nil {
			view.Args = []any{}
		}
		result.Statements = append(result.Statements, view)
	}
	return result, nil
}

func writeExplainText(f *OutputFormatter, r ExplainResult) {
	w := f.Writer
	fmt.Fprintf(w, "query:    %s\n", r.Query)
	params := r.Params
	if params == "" {
		params = "(none)"
	}
	fmt.Fprintf(w, "params:   %s\n", params)
	fmt.Fprintf(w, "shape:    %s\n", r.Shape)
	for _, s := range r.Statements {
		fmt.Fprintf(w, "%-9s %s\n", s.Dialect+":", s.Text)
		if len(s.Args) > 0 {
			fmt.Fprintf(w, "  args:   %s\n", formatArgs(s.Args))
		}
	}
}

// buildRequest loads the schema and the request at path and builds it.
// Failures are reported through the formatter; a request that does not
// validate exits with ExitFailure, anything else with ExitCommandError.
func buildRequest(opts *RootOptions, path string, cmd *cobra.Command) (queryir.Query, error) {
	formatter := newFormatter(opts, cmd)
	reg, err := LoadSchema(opts.Schema)
	if err != nil {
		return queryir.Query{}, loadFailure(formatter, err)
	}
	req, err := LoadRequest(path, cmd.InOrStdin())
	if err != nil {
		return queryir.Query{}, loadFailure(formatter, err)
	}
	return buildLoaded(formatter, reg, req)
}

func buildLoaded(formatter *OutputFormatter, reg *schema.Registry, req builder.Request) (queryir.Query, error) {
	q, err := builder.New(nil).Build(reg, req)
	if err != nil {
		code := MapBuildErrorToCode(err)
		_ = formatter.Error(code, err.Error(), nil)
		exit := ExitFailure
		if !builder.IsValidationError(err) {
			exit = ExitCommandError
		}
		return queryir.Query{}, NewExitError(exit, fmt.Sprintf("%s: %s", code, err.Error()))
	}
	return q, nil
}

// newQueryID returns the identifier logged with one command invocation.
func newQueryID() string {
	return uuid.NewString()
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatArg(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatArg(a any) string {
	switch v := a.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
