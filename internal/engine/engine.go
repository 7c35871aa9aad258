package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// row is a stored record with its insertion number.
type row struct {
	seq int64
	rec ir.IRObject
}

type collection struct {
	rt        *schema.RecordType
	validator *schema.RecordValidator
	rows      []row
}

// Filter reports whether a record satisfies a compiled predicate.
type Filter func(rec ir.IRObject) (bool, error)

// FilterCompiler turns a predicate into a Filter. The default evaluates
// the predicate tree directly; celexec supplies one backed by CEL.
type FilterCompiler interface {
	CompileFilter(p queryir.Predicate) (Filter, error)
}

// Memory holds one collection per record type and evaluates queries
// against them.
type Memory struct {
	mu          sync.RWMutex
	collections map[*schema.RecordType]*collection
	seq         *Sequence
	filters     FilterCompiler
}

// Option configures a Memory.
type Option func(*Memory)

// WithFilterCompiler replaces the built-in predicate evaluator.
func WithFilterCompiler(fc FilterCompiler) Option {
	return func(m *Memory) {
		if fc != nil {
			m.filters = fc
		}
	}
}

// New creates an empty Memory.
func New(opts ...Option) *Memory {
	m := &Memory{
		collections: make(map[*schema.RecordType]*collection),
		seq:         NewSequence(),
		filters:     Evaluator{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateTable prepares a collection for rt. Calling it again for the same
// type is a no-op.
func (m *Memory) CreateTable(_ context.Context, rt *schema.RecordType) error {
	if err := rt.Validate(); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[rt]; ok {
		return nil
	}
	v, err := schema.NewRecordValidator(rt)
	if err != nil {
		return err
	}
	m.collections[rt] = &collection{rt: rt, validator: v}
	return nil
}

// Insert coerces, validates and appends recs. Any failure rejects the
// whole batch.
func (m *Memory) Insert(ctx context.Context, rt *schema.RecordType, recs ...ir.IRObject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[rt]
	if !ok {
		return unknownRecord(rt)
	}

	batch := make([]ir.IRObject, len(recs))
	for i, rec := range recs {
		coerced, err := param.CoerceRecord(rt, rec)
		if err != nil {
			return fmt.Errorf("insert %s[%d]: %w", rt.Name, i, err)
		}
		if err := c.validator.Validate(coerced); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", rt.Name, i, err)
		}
		// Absent nullable fields read as null.
		for _, f := range rt.Fields {
			if _, ok := coerced[f.Name]; !ok {
				coerced[f.Name] = ir.IRNull{}
			}
		}
		batch[i] = coerced
	}
	for _, rec := range batch {
		c.rows = append(c.rows, row{seq: m.seq.Next(), rec: rec})
	}
	return nil
}

// Query evaluates q and returns the matching records, shaped by q's
// projection.
func (m *Memory) Query(ctx context.Context, q queryir.Query) ([]ir.IRObject, error) {
	matched, err := m.match(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := sortRows(q.Record.Name, matched, q.Order); err != nil {
		return nil, err
	}

	outputs := q.OutputFields()
	out := make([]ir.IRObject, len(matched))
	for i, r := range matched {
		rec := make(ir.IRObject, len(outputs))
		for _, b := range outputs {
			rec[b.Target.Name] = r.rec.Get(b.Source.Name)
		}
		out[i] = rec
	}
	return out, nil
}

// Count returns how many records q's filter selects.
func (m *Memory) Count(ctx context.Context, q queryir.Query) (int64, error) {
	matched, err := m.match(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Len returns the number of records stored for rt.
func (m *Memory) Len(rt *schema.RecordType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.collections[rt]; ok {
		return len(c.rows)
	}
	return 0
}

// match returns the rows satisfying q's filter, in insertion order.
func (m *Memory) match(ctx context.Context, q queryir.Query) ([]row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res := queryir.Validate(q); !res.Valid {
		return nil, &EvalError{Code: ErrCodeInvalidQuery, Message: strings.Join(res.Problems, "; ")}
	}

	filter, err := m.filters.CompileFilter(q.Filter)
	if err != nil {
		return nil, &EvalError{Code: ErrCodeInvalidQuery, Message: err.Error(), Record: q.Record.Name}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[q.Record]
	if !ok {
		return nil, unknownRecord(q.Record)
	}

	matched := []row{}
	for _, r := range c.rows {
		ok, err := filter(r.rec)
		if err != nil {
			return nil, incomparable(q.Record.Name, "", err)
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func unknownRecord(rt *schema.RecordType) *EvalError {
	return &EvalError{Code: ErrCodeUnknownRecord, Message: "no collection for record type", Record: rt.Name}
}
