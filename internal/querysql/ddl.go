package querysql

import (
	"strings"

	"github.com/roach88/dynquery/internal/schema"
)

// CreateTable returns the DDL for rt's table. Non-nullable fields are
// NOT NULL; the table also carries the insertion-sequence key.
func (c *Compiler) CreateTable(rt *schema.RecordType) string {
	defs := make([]string, 0, len(rt.Fields)+1)
	defs = append(defs, c.dialect.seqColumnDef())
	for _, f := range rt.Fields {
		def := quote(f.Name) + " " + c.dialect.columnType(f.Type)
		if !f.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return "CREATE TABLE IF NOT EXISTS " + quote(rt.Name) + " (" + strings.Join(defs, ", ") + ")"
}

// Insert returns the parameterized INSERT for rt, with one placeholder per
// field in declaration order.
func (c *Compiler) Insert(rt *schema.RecordType) string {
	cols := make([]string, len(rt.Fields))
	phs := make([]string, len(rt.Fields))
	for i, f := range rt.Fields {
		cols[i] = quote(f.Name)
		phs[i] = c.dialect.placeholder(i + 1)
	}
	return "INSERT INTO " + quote(rt.Name) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(phs, ", ") + ")"
}
