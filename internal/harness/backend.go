package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/dynquery/internal/celexec"
	"github.com/roach88/dynquery/internal/engine"
	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
	"github.com/roach88/dynquery/internal/store"
	"github.com/roach88/dynquery/internal/store/pgstore"
)

// Executor is an execution layer a scenario can run on.
type Executor interface {
	CreateTable(ctx context.Context, rt *schema.RecordType) error
	Insert(ctx context.Context, rt *schema.RecordType, recs ...ir.IRObject) error
	Query(ctx context.Context, q queryir.Query) ([]ir.IRObject, error)
	Count(ctx context.Context, q queryir.Query) (int64, error)
}

var (
	_ Executor = (*engine.Memory)(nil)
	_ Executor = (*store.Store)(nil)
	_ Executor = (*pgstore.Store)(nil)
)

// Backend names an execution layer.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendCEL      Backend = "cel"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Backends lists every execution layer in a stable order.
var Backends = []Backend{BackendMemory, BackendCEL, BackendSQLite, BackendPostgres}

// ParseBackend resolves a backend name, ignoring case.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q (want memory, cel, sqlite or postgres)", s)
}

// BackendConfig carries what the SQL backends need to connect.
type BackendConfig struct {
	// SQLitePath is the database file. Empty means a private in-memory
	// database.
	SQLitePath string

	// PostgresURL is required by the postgres backend. Each executor works
	// in its own schema, dropped when the executor is closed.
	PostgresURL string

	Logger *slog.Logger
}

// Open creates an executor for b. The returned close function releases it.
func Open(ctx context.Context, b Backend, cfg BackendConfig) (Executor, func() error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	noop := func() error { return nil }

	switch b {
	case BackendMemory:
		return engine.New(), noop, nil
	case BackendCEL:
		ev, err := celexec.New()
		if err != nil {
			return nil, nil, err
		}
		return engine.New(engine.WithFilterCompiler(ev)), noop, nil
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = ":memory:"
		}
		st, err := store.Open(path, store.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case BackendPostgres:
		if cfg.PostgresURL == "" {
			return nil, nil, fmt.Errorf("postgres backend needs a connection URL")
		}
		schemaName := "dynquery_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		st, err := pgstore.Open(ctx, cfg.PostgresURL, pgstore.WithSchema(schemaName), pgstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() error {
			defer st.Close()
			return st.DropSchema(context.Background())
		}
		return st, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", b)
	}
}
