package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/dynquery/internal/builder"
	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// Harness runs scenarios on one executor.
type Harness struct {
	exec    Executor
	backend Backend
	logger  *slog.Logger
}

// New creates a Harness that executes on exec. A nil logger discards.
func New(exec Executor, backend Backend, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Harness{exec: exec, backend: backend, logger: logger}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the scenario's CUE schema into a fresh registry
//  2. Create a table per record type and insert the dataset
//  3. Build and execute each query case, checking its expectations
//  4. Evaluate cross-query assertions
//
// Failed expectations are reported in the Result; the error return is
// reserved for scenarios that cannot be set up.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	reg, err := LoadSchema(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	if err := Seed(ctx, h.exec, reg, scenario.Records); err != nil {
		return nil, fmt.Errorf("failed to seed dataset: %w", err)
	}

	result := NewResult(scenario.Name, h.backend)
	b := builder.New(nil)
	built := make(map[string]queryir.Query, len(scenario.Queries))

	for _, qc := range scenario.Queries {
		outcome, q, errs := h.runQuery(ctx, b, reg, qc)
		result.Queries = append(result.Queries, outcome)
		if q != nil {
			built[qc.Name] = *q
		}
		for _, e := range errs {
			result.AddError(e.Error())
		}
		h.logger.Debug("query case",
			"scenario", scenario.Name,
			"query", qc.Name,
			"rows", outcome.Rows,
			"failures", len(errs))
	}

	for _, a := range scenario.Assertions {
		if err := evaluateAssertion(a, built); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// Run executes scenario on a fresh executor for backend.
func Run(ctx context.Context, scenario *Scenario, backend Backend, cfg BackendConfig) (*Result, error) {
	exec, closeFn, err := Open(ctx, backend, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", backend, err)
	}
	defer closeFn()
	return New(exec, backend, cfg.Logger).Run(ctx, scenario)
}

// LoadSchema compiles the scenario's record types into a new registry.
func LoadSchema(scenario *Scenario) (*schema.Registry, error) {
	var (
		types []schema.RecordType
		err   error
	)
	if scenario.Schema != "" {
		types, err = schema.CompileCUE(scenario.Schema, scenario.Name+".cue")
	} else {
		types, err = schema.LoadCUE(scenario.SchemaDir)
	}
	if err != nil {
		return nil, err
	}
	reg := schema.NewRegistry()
	if _, err := schema.RegisterAll(reg, types); err != nil {
		return nil, err
	}
	return reg, nil
}

// Seed creates a table for every type in reg on exec and inserts records,
// keyed by record type name. Types are loaded in name order.
func Seed(ctx context.Context, exec Executor, reg *schema.Registry, records map[string][]map[string]any) error {
	for _, rt := range reg.Types() {
		if err := exec.CreateTable(ctx, rt); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		rt, ok := reg.Lookup(name)
		if !ok {
			return fmt.Errorf("records for unknown type %q", name)
		}
		recs := make([]ir.IRObject, len(records[name]))
		for i, raw := range records[name] {
			rec, err := param.Record(rt, raw)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			recs[i] = rec
		}
		if err := exec.Insert(ctx, rt, recs...); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) runQuery(ctx context.Context, b *builder.Builder, reg *schema.Registry, qc QueryCase) (QueryOutcome, *queryir.Query, []error) {
	outcome := QueryOutcome{Name: qc.Name}

	q, err := b.Build(reg, qc.Request)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, nil, checkError(qc, err)
	}
	if outcome.ShapeHash, err = queryir.ShapeHash(q); err != nil {
		return outcome, &q, []error{fmt.Errorf("%s: shape hash: %w", qc.Name, err)}
	}

	rows, err := h.exec.Query(ctx, q)
	if err == nil {
		outcome.Count, err = h.exec.Count(ctx, q)
	}
	if err != nil {
		outcome.Error = err.Error()
		return outcome, &q, checkError(qc, err)
	}
	outcome.Rows = len(rows)

	if qc.Expect.Error != "" {
		return outcome, &q, []error{&ExpectationError{
			Query:    qc.Name,
			Kind:     "error",
			Expected: fmt.Sprintf("error containing %q", qc.Expect.Error),
			Actual:   fmt.Sprintf("%d rows", len(rows)),
		}}
	}
	return outcome, &q, checkExpect(qc, q, rows, outcome.Count)
}

// checkError matches err against the case's expected error.
func checkError(qc QueryCase, err error) []error {
	if qc.Expect.Error != "" && strings.Contains(err.Error(), qc.Expect.Error) {
		return nil
	}
	expected := "success"
	if qc.Expect.Error != "" {
		expected = fmt.Sprintf("error containing %q", qc.Expect.Error)
	}
	return []error{&ExpectationError{Query: qc.Name, Kind: "error", Expected: expected, Actual: err.Error()}}
}
