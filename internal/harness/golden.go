package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dynquery/internal/builder"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/querysql"
)

// SQLSnapshot renders every query of scenario in both SQL dialects. The
// text depends only on query shapes and parameter values, so it is stable
// across runs and backends.
func SQLSnapshot(scenario *Scenario) ([]byte, error) {
	reg, err := LoadSchema(scenario)
	if err != nil {
		return nil, err
	}
	b := builder.New(nil)
	sqlite := querysql.NewCompiler(querysql.SQLite)
	postgres := querysql.NewCompiler(querysql.Postgres)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", scenario.Name)
	for _, qc := range scenario.Queries {
		fmt.Fprintf(&buf, "\n-- %s\n", qc.Name)
		q, err := b.Build(reg, qc.Request)
		if err != nil {
			fmt.Fprintf(&buf, "error:    %s\n", err)
			continue
		}
		lite, err := sqlite.Compile(q)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", qc.Name, err)
		}
		pg, err := postgres.Compile(q)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", qc.Name, err)
		}
		params := queryir.FormatParameters(q.Filter)
		if params == "" {
			params = "(none)"
		}
		fmt.Fprintf(&buf, "query:    %s\n", q)
		fmt.Fprintf(&buf, "params:   %s\n", params)
		fmt.Fprintf(&buf, "sqlite:   %s\n", lite.SQL)
		fmt.Fprintf(&buf, "postgres: %s\n", pg.SQL)
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario on backend, fails t on any unmet
// expectation, and compares the scenario's SQL snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, backend Backend, cfg BackendConfig) *Result {
	t.Helper()

	result, err := Run(t.Context(), scenario, backend, cfg)
	if err != nil {
		t.Fatalf("run %s on %s: %v", scenario.Name, backend, err)
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	AssertGolden(t, scenario)
	return result
}

// AssertGolden compares the scenario's SQL snapshot against its golden
// file without executing anything.
func AssertGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	snapshot, err := SQLSnapshot(scenario)
	if err != nil {
		t.Fatalf("snapshot %s: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
}
