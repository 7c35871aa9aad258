// Package pgstore is the PostgreSQL execution layer. It mirrors the SQLite
// store: tables are created from record types, records are bulk-loaded
// with COPY, and queries are compiled by querysql in the Postgres dialect.
//
// pgx prepares and caches statements per connection keyed by SQL text, so
// the shape-stable SQL from querysql is what makes that cache effective.
// CacheStats reports how often a SQL text repeats.
package pgstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/querysql"
	"github.com/roach88/dynquery/internal/schema"
)

// Store evaluates queries against PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	compiler *querysql.Compiler
	logger   *slog.Logger
	schema   string

	mu         sync.Mutex
	seen       map[string]bool
	hits       int64
	misses     int64
	validators map[*schema.RecordType]*schema.RecordValidator
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSchema places every table in the named Postgres schema, creating it
// if needed.
func WithSchema(name string) Option {
	return func(s *Store) { s.schema = name }
}

// Open connects to the database at url.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	s := &Store{
		compiler:   querysql.NewCompiler(querysql.Postgres),
		logger:     slog.New(slog.DiscardHandler),
		seen:       make(map[string]bool),
		validators: make(map[*schema.RecordType]*schema.RecordValidator),
	}
	for _, opt := range opts {
		opt(s)
	}

	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	if s.schema != "" {
		config.ConnConfig.RuntimeParams["search_path"] = s.schema
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if s.schema != "" {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{s.schema}.Sanitize()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create schema %s: %w", s.schema, err)
		}
	}
	s.pool = pool
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// DropSchema removes the store's schema and everything in it.
func (s *Store) DropSchema(ctx context.Context) error {
	if s.schema == "" {
		return fmt.Errorf("store has no dedicated schema")
	}
	_, err := s.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{s.schema}.Sanitize()+" CASCADE")
	return err
}

// CreateTable creates rt's table if it does not exist.
func (s *Store) CreateTable(ctx context.Context, rt *schema.RecordType) error {
	if err := rt.Validate(); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	ddl := s.compiler.CreateTable(rt)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", rt.Name, err)
	}
	s.logger.Debug("created table", "record", rt.Name, "ddl", ddl)
	return nil
}

// Insert coerces and validates recs, then loads them with COPY in one
// round trip. Insertion order is preserved in the sequence column.
func (s *Store) Insert(ctx context.Context, rt *schema.RecordType, recs ...ir.IRObject) error {
	validator, err := s.validator(rt)
	if err != nil {
		return err
	}
	rows := make([][]any, len(recs))
	for i, rec := range recs {
		coerced, err := param.CoerceRecord(rt, rec)
		if err != nil {
			return fmt.Errorf("insert %s[%d]: %w", rt.Name, i, err)
		}
		if err := validator.Validate(coerced); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", rt.Name, i, err)
		}
		if rows[i], err = querysql.EncodeRecord(querysql.Postgres, rt, coerced); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", rt.Name, i, err)
		}
	}

	_, err = s.pool.CopyFrom(ctx, pgx.Identifier{rt.Name}, rt.FieldNames(), pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert %s: %w", rt.Name, err)
	}
	return nil
}

func (s *Store) validator(rt *schema.RecordType) (*schema.RecordValidator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.validators[rt]; ok {
		return v, nil
	}
	v, err := schema.NewRecordValidator(rt)
	if err != nil {
		return nil, err
	}
	s.validators[rt] = v
	return v, nil
}

// Query evaluates q and returns the matching records.
func (s *Store) Query(ctx context.Context, q queryir.Query) ([]ir.IRObject, error) {
	compiled, err := s.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	s.observe(compiled.SQL)

	rows, err := s.pool.Query(ctx, compiled.SQL, compiled.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Record.Name, err)
	}
	defer rows.Close()

	recs := []ir.IRObject{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Record.Name, err)
		}
		rec, err := querysql.DecodeRow(compiled.Columns, values)
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
	s.observe(compiled.SQL)

	var n int64
	if err := s.pool.QueryRow(ctx, compiled.SQL, compiled.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Record.Name, err)
	}
	return n, nil
}

// Explain returns the SQL and arguments Query would run.
func (s *Store) Explain(q queryir.Query) (string, []any, error) {
	compiled, err := s.compiler.Compile(q)
	if err != nil {
		return "", nil, err
	}
	return compiled.SQL, compiled.Args, nil
}

// CacheStats counts repeated SQL texts.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// CacheStats returns a snapshot of the SQL text counters.
func (s *Store) CacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CacheStats{Hits: s.hits, Misses: s.misses, Size: len(s.seen)}
}

func (s *Store) observe(sqlText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[sqlText] {
		s.hits++
		return
	}
	s.seen[sqlText] = true
	s.misses++
	s.logger.Debug("new statement", "sql", sqlText)
}
