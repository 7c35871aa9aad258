package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dynquery/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Backends  []string // backends to run on; defaults to --backend
	GoldenDir string   // directory of SQL snapshot golden files
	Update    bool     // regenerate golden files
	Filter    string   // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string                 `json:"name"`
	Backend string                 `json:"backend"`
	Pass    bool                   `json:"pass"`
	Queries []harness.QueryOutcome `json:"queries,omitempty"`
	Errors  []string               `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// goldenBackend labels golden file comparisons in the results.
const goldenBackend = "golden"

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run scenario files through the query builder and one or more backends.

Each scenario declares its record types, a dataset and query cases with
expected results. With --golden, the SQL each query compiles to is also
compared against <golden-dir>/<scenario>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unknown backend, etc.)

Examples:
  dynquery test ./scenarios
  dynquery test ./scenarios --backends memory,cel,sqlite
  dynquery test ./scenarios --filter "user*" --golden ./golden
  dynquery test ./scenarios --golden ./golden --update
  dynquery test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Backends, "backends", nil, "backends to run on (default --backend)")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "directory of SQL snapshot golden files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update needs a golden directory (use --golden)")
	}

	backends, err := testBackends(opts)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	cfg := harness.BackendConfig{
		SQLitePath:  opts.Database,
		PostgresURL: opts.PostgresURL,
		Logger:      opts.logger(),
	}

	var result TestResult
	result.Scenarios = []ScenarioResult{}
	record := func(r ScenarioResult) {
		if opts.Format != "json" {
			printScenarioResult(cmd, r)
		}
		result.Scenarios = append(result.Scenarios, r)
		result.Total++
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	for _, scenarioFile := range scenarioFiles {
		scenario, err := harness.LoadScenario(scenarioFile)
		if err != nil {
			record(ScenarioResult{
				Name:   filepath.Base(scenarioFile),
				Pass:   false,
				Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
			})
			continue
		}

		for _, backend := range backends {
			record(runScenario(cmd, scenario, backend, cfg))
		}
		if opts.GoldenDir != "" {
			record(checkGolden(scenario, opts.GoldenDir, opts.Update))
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// testBackends resolves the backends to run on. Postgres needs a URL.
func testBackends(opts *TestOptions) ([]harness.Backend, error) {
	names := opts.Backends
	if len(names) == 0 {
		names = []string{opts.Backend}
	}
	backends := make([]harness.Backend, 0, len(names))
	for _, name := range names {
		b, err := harness.ParseBackend(name)
		if err != nil {
			return nil, err
		}
		if b == harness.BackendPostgres && opts.PostgresURL == "" {
			return nil, fmt.Errorf("postgres backend needs a connection URL (use --pg-url or DYNQUERY_PG_URL)")
		}
		backends = append(backends, b)
	}
	return backends, nil
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario on one backend.
func runScenario(cmd *cobra.Command, scenario *harness.Scenario, backend harness.Backend, cfg harness.BackendConfig) ScenarioResult {
	result, err := harness.Run(cmd.Context(), scenario, backend, cfg)
	if err != nil {
		return ScenarioResult{
			Name:    scenario.Name,
			Backend: string(backend),
			Pass:    false,
			Errors:  []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}
	return ScenarioResult{
		Name:    scenario.Name,
		Backend: string(backend),
		Pass:    result.Pass,
		Queries: result.Queries,
		Errors:  result.Errors,
	}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(goldenDir, scenarioName string) string {
	return filepath.Join(goldenDir, scenarioName+".golden")
}

// checkGolden compares the scenario's SQL snapshot with its golden file,
// or rewrites the file when update is set.
func checkGolden(scenario *harness.Scenario, goldenDir string, update bool) ScenarioResult {
	r := ScenarioResult{Name: scenario.Name, Backend: goldenBackend}
	fail := func(format string, args ...any) ScenarioResult {
		r.Errors = []string{fmt.Sprintf(format, args...)}
		return r
	}

	snapshot, err := harness.SQLSnapshot(scenario)
	if err != nil {
		return fail("failed to build snapshot: %v", err)
	}
	path := goldenFilePath(goldenDir, scenario.Name)

	if update {
		if err := os.MkdirAll(goldenDir, 0755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(path, snapshot, 0644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
		r.Pass = true
		return r
	}

	golden, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fail("golden file not found: %s (run with --update to create it)", path)
	}
	if err != nil {
		return fail("failed to read golden file: %v", err)
	}
	if !bytes.Equal(golden, snapshot) {
		return fail("SQL snapshot does not match %s (run with --update to regenerate)", path)
	}
	r.Pass = true
	return r
}

func printScenarioResult(cmd *cobra.Command, r ScenarioResult) {
	w := cmd.OutOrStdout()
	label := r.Name
	if r.Backend != "" {
		label += " [" + r.Backend + "]"
	}
	if r.Pass {
		fmt.Fprintf(w, "✓ %s\n", label)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", label)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
