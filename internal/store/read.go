package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/querysql"
	"github.com/roach88/dynquery/internal/schema"
)

// Query evaluates q and returns the matching records, shaped by q's
// projection. Results are ordered by q's order keys, then by insertion
// order.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Query(ctx context.Context, q queryir.Query) ([]ir.IRObject, error) {
	compiled, err := s.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	stmt, err := s.prepare(ctx, compiled.SQL)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, compiled.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Record.Name, err)
	}
	defer rows.Close()

	recs := []ir.IRObject{}
	raw := make([]any, len(compiled.Columns))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Record.Name, err)
		}
		rec, err := querysql.DecodeRow(compiled.Columns, raw)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Record.Name, err)
	}
	return recs, nil
}

// Count returns how many records q's filter selects.
func (s *Store) Count(ctx context.Context, q queryir.Query) (int64, error) {
	compiled, err := s.compiler.CompileCount(q)
	if err != nil {
		return 0, err
	}
	stmt, err := s.prepare(ctx, compiled.SQL)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := stmt.QueryRowContext(ctx, compiled.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Record.Name, err)
	}
	return n, nil
}

// Explain returns the SQL and arguments Query would run, without running
// them.
func (s *Store) Explain(q queryir.Query) (string, []any, error) {
	compiled, err := s.compiler.Compile(q)
	if err != nil {
		return "", nil, err
	}
	return compiled.SQL, compiled.Args, nil
}

// Catalog returns the record types defined in this database, in creation
// order.
func (s *Store) Catalog(ctx context.Context) ([]schema.RecordType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT definition FROM dynquery_records
		ORDER BY seq ASC, name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	types := []schema.RecordType{}
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		rt, err := unmarshalDefinition(def)
		if err != nil {
			return nil, err
		}
		types = append(types, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return types, nil
}

// Lookup returns the catalog definition of name.
func (s *Store) Lookup(ctx context.Context, name string) (schema.RecordType, bool, error) {
	var def string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM dynquery_records WHERE name = ?`, name).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.RecordType{}, false, nil
	}
	if err != nil {
		return schema.RecordType{}, false, fmt.Errorf("lookup %s: %w", name, err)
	}
	rt, err := unmarshalDefinition(def)
	if err != nil {
		return schema.RecordType{}, false, err
	}
	return rt, true, nil
}
