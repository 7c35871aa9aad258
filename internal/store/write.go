package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/querysql"
	"github.com/roach88/dynquery/internal/schema"
)

// CreateTable creates rt's table and records its definition in the catalog.
// Creating the same definition twice is a no-op; a different definition
// under an existing name is an error.
func (s *Store) CreateTable(ctx context.Context, rt *schema.RecordType) error {
	if err := rt.Validate(); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	def, err := marshalDefinition(rt)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	hash := definitionHash(def)

	var existing string
	err = s.db.QueryRowContext(ctx,
		`SELECT definition_hash FROM dynquery_records WHERE name = ?`, rt.Name).Scan(&existing)
	switch {
	case err == nil && existing == hash:
		return nil
	case err == nil:
		return fmt.Errorf("create table: %s is already defined with a different shape", rt.Name)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("create table: catalog: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	defer tx.Rollback()

	ddl := s.compiler.CreateTable(rt)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", rt.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dynquery_records (name, definition, definition_hash, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM dynquery_records))
	`, rt.Name, def, hash); err != nil {
		return fmt.Errorf("create table %s: catalog: %w", rt.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create table %s: %w", rt.Name, err)
	}
	s.logger.Debug("created table", "record", rt.Name, "ddl", ddl)
	return nil
}

// Insert loads records into rt's table in one transaction. Each record is
// coerced to rt's field types and validated against rt's JSON Schema
// first; any failure rejects the whole batch.
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
		if rows[i], err = querysql.EncodeRecord(querysql.SQLite, rt, coerced); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", rt.Name, i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert %s: %w", rt.Name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.compiler.Insert(rt))
	if err != nil {
		return fmt.Errorf("insert %s: %w", rt.Name, err)
	}
	defer stmt.Close()

	for i, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", rt.Name, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
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
