package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/querysql"
	"github.com/roach88/dynquery/internal/schema"
)

// ExpectationError is returned when a query result does not match its
// expectation. It carries enough context to debug the failure.
type ExpectationError struct {
	Query    string // Query case name
	Kind     string // Expectation kind: ids, count, rows, first, empty, error
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Expectation failed: %s.%s\n", e.Query, e.Kind)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// rowType describes q's output rows, used to parse expected values.
func rowType(q queryir.Query) *schema.RecordType {
	outputs := q.OutputFields()
	fields := make([]schema.FieldDescriptor, len(outputs))
	for i, b := range outputs {
		fields[i] = b.Target
	}
	return &schema.RecordType{Name: q.ResultType().Name, Fields: fields}
}

// checkExpect evaluates every set expectation of qc against the result.
func checkExpect(qc QueryCase, q queryir.Query, rows []ir.IRObject, count int64) []error {
	var errs []error
	exp := qc.Expect
	rt := rowType(q)
	fail := func(kind, expected, actual string) {
		errs = append(errs, &ExpectationError{Query: qc.Name, Kind: kind, Expected: expected, Actual: actual})
	}

	if exp.Count != nil && *exp.Count != count {
		fail("count", fmt.Sprintf("%d", *exp.Count), fmt.Sprintf("%d", count))
	}
	if exp.Count != nil && int64(len(rows)) != count {
		fail("count", fmt.Sprintf("%d rows, as counted", count), fmt.Sprintf("%d rows", len(rows)))
	}

	if exp.Empty && len(rows) > 0 {
		fail("empty", "no rows", fmt.Sprintf("%d rows", len(rows)))
	}

	if exp.IDs != nil {
		if err := checkIDs(qc.Name, rt, exp, rows); err != nil {
			errs = append(errs, err)
		}
	}

	if exp.Rows != nil {
		if len(exp.Rows) != len(rows) {
			fail("rows", fmt.Sprintf("%d rows", len(exp.Rows)), fmt.Sprintf("%d rows", len(rows)))
		} else {
			for i, raw := range exp.Rows {
				want, err := param.Record(rt, raw)
				if err != nil {
					fail("rows", fmt.Sprintf("row %d to parse", i), err.Error())
					continue
				}
				if !rowsEqual(want, rows[i], true) {
					fail("rows", fmt.Sprintf("row %d = %s", i, formatRow(rt, want)), formatRow(rt, rows[i]))
				}
			}
		}
	}

	if exp.First != nil {
		want, err := param.Record(rt, exp.First)
		switch {
		case err != nil:
			fail("first", "first row to parse", err.Error())
		case len(rows) == 0:
			fail("first", formatRow(rt, want), "no rows")
		case !rowsEqual(want, rows[0], false):
			fail("first", formatRow(rt, want), formatRow(rt, rows[0]))
		}
	}
	return errs
}

func checkIDs(name string, rt *schema.RecordType, exp Expect, rows []ir.IRObject) error {
	key := exp.Key
	if key == "" {
		key = "Id"
	}
	fd, ok := rt.Field(key)
	if !ok {
		return &ExpectationError{Query: name, Kind: "ids", Expected: fmt.Sprintf("key column %q", key), Actual: "not in result"}
	}

	want := make([]ir.IRValue, len(exp.IDs))
	for i, raw := range exp.IDs {
		v, err := param.Value(raw, fd)
		if err != nil {
			return &ExpectationError{Query: name, Kind: "ids", Expected: fmt.Sprintf("ids[%d] to parse", i), Actual: err.Error()}
		}
		want[i] = v
	}
	got := make([]ir.IRValue, len(rows))
	for i, r := range rows {
		got[i] = r.Get(key)
	}

	equal := len(want) == len(got)
	for i := 0; equal && i < len(want); i++ {
		equal = ir.Equal(want[i], got[i])
	}
	if !equal {
		return &ExpectationError{Query: name, Kind: "ids", Expected: formatValues(want), Actual: formatValues(got)}
	}
	return nil
}

// rowsEqual compares want against got. With exact set, got may not carry
// fields want lacks.
func rowsEqual(want, got ir.IRObject, exact bool) bool {
	if exact && len(want) != len(got) {
		return false
	}
	for k, v := range want {
		actual, ok := got[k]
		if !ok || !ir.Equal(v, actual) {
			return false
		}
	}
	return true
}

func formatValues(vals []ir.IRValue) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = ir.Format(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatRow renders rec's fields in declaration order.
func formatRow(rt *schema.RecordType, rec ir.IRObject) string {
	parts := make([]string, 0, len(rec))
	for _, f := range rt.Fields {
		if v, ok := rec[f.Name]; ok {
			parts = append(parts, f.Name+"="+ir.Format(v))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// evaluateAssertion checks a cross-query assertion. Queries that failed to
// build cannot take part and fail the assertion.
func evaluateAssertion(a Assertion, built map[string]queryir.Query) error {
	compiler := querysql.NewCompiler(querysql.SQLite)
	hashes := make([]string, len(a.Queries))
	texts := make([]string, len(a.Queries))
	for i, name := range a.Queries {
		q, ok := built[name]
		if !ok {
			return fmt.Errorf("assertion %s: query %q did not build", a.Type, name)
		}
		h, err := queryir.ShapeHash(q)
		if err != nil {
			return fmt.Errorf("assertion %s: %w", a.Type, err)
		}
		stmt, err := compiler.Compile(q)
		if err != nil {
			return fmt.Errorf("assertion %s: %w", a.Type, err)
		}
		hashes[i], texts[i] = h, stmt.SQL
	}

	switch a.Type {
	case AssertSameShape:
		for i := 1; i < len(hashes); i++ {
			if hashes[i] != hashes[0] || texts[i] != texts[0] {
				return &ExpectationError{
					Query:    a.Queries[i],
					Kind:     AssertSameShape,
					Expected: fmt.Sprintf("shape of %s: %s", a.Queries[0], texts[0]),
					Actual:   texts[i],
				}
			}
		}
	case AssertDistinctShape:
		seen := make(map[string]string, len(hashes))
		for i, h := range hashes {
			if prev, ok := seen[h]; ok {
				return &ExpectationError{
					Query:    a.Queries[i],
					Kind:     AssertDistinctShape,
					Expected: "a shape different from " + prev,
					Actual:   texts[i],
				}
			}
			seen[h] = a.Queries[i]
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
