package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dynquery/internal/builder"
	"github.com/roach88/dynquery/internal/queryir"
)

// RequestValidation is the validation outcome of one request file.
type RequestValidation struct {
	File    string `json:"file"`
	Valid   bool   `json:"valid"`
	Shape   string `json:"shape,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Requests []RequestValidation `json:"requests"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <request.yaml>...",
		Short: "Validate requests without executing them",
		Long: `Build each request against the schema and report whether it is valid.

Fields that do not resolve are skipped rather than reported, except in
projections. Operators a field cannot support, values that do not convert
and unknown projection fields are reported with their error code.

Exit codes:
  0 - All requests valid
  1 - One or more requests do not validate
  2 - Command error (unreadable schema or request, unsupported operator)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg, err := LoadSchema(opts.Schema)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded %d record type(s) from %s", len(reg.Types()), opts.Schema)

	b := builder.New(nil)
	result := ValidationResult{Valid: true, Requests: make([]RequestValidation, 0, len(paths))}
	exit := ExitSuccess

	for _, path := range paths {
		formatter.VerboseLog("Validating request: %s", path)
		v := RequestValidation{File: path}

		req, err := LoadRequest(path, cmd.InOrStdin())
		if err == nil {
			var q queryir.Query
			if q, err = b.Build(reg, req); err == nil {
				v.Shape, err = queryir.ShapeHash(q)
			}
		}

		if err != nil {
			v.Code = MapBuildErrorToCode(err)
			v.Message = err.Error()
			result.Valid = false
			if builder.IsValidationError(err) {
				exit = max(exit, ExitFailure)
			} else {
				exit = ExitCommandError
			}
		} else {
			v.Valid = true
		}
		result.Requests = append(result.Requests, v)
	}

	if err := outputValidation(formatter, result); err != nil {
		return err
	}
	if exit != ExitSuccess {
		first := firstInvalid(result)
		return NewExitError(exit, fmt.Sprintf("%s: %s", first.Code, first.Message))
	}
	return nil
}

func firstInvalid(r ValidationResult) RequestValidation {
	for _, v := range r.Requests {
		if !v.Valid {
			return v
		}
	}
	return RequestValidation{}
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		if result.Valid {
			return formatter.Success(result)
		}
		first := firstInvalid(result)
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	}

	for _, v := range result.Requests {
		if v.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", v.File)
			formatter.VerboseLog("  shape %s", v.Shape)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", v.File)
		fmt.Fprintf(formatter.Writer, "  [%s] %s\n", v.Code, v.Message)
	}
	if result.Valid {
		fmt.Fprintln(formatter.Writer, "✓ All requests valid")
	}
	return nil
}
