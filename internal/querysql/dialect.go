package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dynquery/internal/schema"
)

// Dialect selects the SQL flavour a Compiler emits.
type Dialect int

const (
	// SQLite numbers placeholders ?1..?N and matches with LIKE, which is
	// ASCII case-insensitive.
	SQLite Dialect = iota
	// Postgres numbers placeholders $1..$N and matches with ILIKE.
	Postgres
)

// ParseDialect resolves a dialect by name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unknown SQL dialect %q", name)
	}
}

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "Dialect(" + strconv.Itoa(int(d)) + ")"
	}
}

// placeholder returns the marker for the n-th argument, counting from 1.
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?" + strconv.Itoa(n)
}

// quote returns name as a double-quoted identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// collate returns the byte-order collation clause for string keys.
func (d Dialect) collate() string {
	if d == Postgres {
		return ` COLLATE "C"`
	}
	return " COLLATE BINARY"
}

// match renders a pattern match of column against placeholder ph.
func (d Dialect) match(column, ph string) string {
	if d == Postgres {
		return column + " ILIKE " + ph + ` ESCAPE '\'`
	}
	return column + " LIKE " + ph + ` ESCAPE '\'`
}

// columnType returns the storage type for a field.
func (d Dialect) columnType(t schema.FieldType) string {
	switch d {
	case Postgres:
		switch t {
		case schema.TypeString:
			return `TEXT COLLATE "C"`
		case schema.TypeInt, schema.TypeEnum:
			return "BIGINT"
		case schema.TypeDecimal:
			return "DOUBLE PRECISION"
		case schema.TypeBool:
			return "BOOLEAN"
		case schema.TypeDateTime:
			return "TIMESTAMPTZ"
		}
	default:
		switch t {
		case schema.TypeString, schema.TypeDateTime:
			return "TEXT"
		case schema.TypeInt, schema.TypeEnum, schema.TypeBool:
			return "INTEGER"
		case schema.TypeDecimal:
			return "REAL"
		}
	}
	return "TEXT"
}

// seqColumn is the insertion-order column every table carries. It is the
// final tiebreaker of every ORDER BY.
const seqColumn = "_seq"

func (d Dialect) seqColumnDef() string {
	if d == Postgres {
		return quote(seqColumn) + " BIGSERIAL PRIMARY KEY"
	}
	return quote(seqColumn) + " INTEGER PRIMARY KEY"
}
