// Package celexec evaluates query filters as CEL programs.
//
// A predicate tree renders to a CEL expression over two variables: r, the
// record as a map from field name to value, and p, the list of parameter
// values. Parameter values never appear in the expression text, so
// queries of the same shape share one compiled program. Programs are
// cached by expression text.
//
// Plugged into engine.Memory through engine.WithFilterCompiler it forms a
// complete execution layer with the same semantics as the others.
package celexec

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/roach88/dynquery/internal/engine"
	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// Evaluator compiles predicates into CEL programs.
// It is safe for concurrent use.
type Evaluator struct {
	env      *cel.Env
	prgCache sync.Map // map[string]cel.Program
	hits     atomic.Int64
	misses   atomic.Int64
}

// New creates an Evaluator with the record environment.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("r", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("p", cel.ListType(cel.DynType)),
		cel.Function("fold",
			cel.MemberOverload("string_fold", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					s, ok := v.(types.String)
					if !ok {
						return types.MaybeNoSuchOverloadErr(v)
					}
					return types.String(schema.Fold(string(s)))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cel environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// CompileFilter implements engine.FilterCompiler.
func (e *Evaluator) CompileFilter(p queryir.Predicate) (engine.Filter, error) {
	expr, args, err := Render(p)
	if err != nil {
		return nil, err
	}
	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}
	return func(rec ir.IRObject) (bool, error) {
		out, _, err := prg.Eval(map[string]any{"r": native(rec), "p": args})
		if err != nil {
			return false, fmt.Errorf("eval error: %w", err)
		}
		result, ok := out.Value().(bool)
		if !ok {
			return false, fmt.Errorf("filter must return boolean, got %T", out.Value())
		}
		return result, nil
	}, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	if val, ok := e.prgCache.Load(expr); ok {
		e.hits.Add(1)
		return val.(cel.Program), nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program construction error: %w", err)
	}
	e.misses.Add(1)
	actual, _ := e.prgCache.LoadOrStore(expr, prg)
	return actual.(cel.Program), nil
}

// CacheStats counts program cache lookups.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// CacheStats returns a snapshot of the program cache counters.
func (e *Evaluator) CacheStats() CacheStats {
	return CacheStats{Hits: e.hits.Load(), Misses: e.misses.Load()}
}

// Render returns the CEL expression for p and the parameter list it
// references. A nil predicate renders as "true".
func Render(p queryir.Predicate) (string, []any, error) {
	r := &renderer{slots: make(map[slotKey]int)}
	expr, err := r.predicate(p)
	if err != nil {
		return "", nil, err
	}
	return expr, r.args, nil
}

type slotKey struct {
	param *queryir.Parameter
	fold  bool
}

type renderer struct {
	slots map[slotKey]int
	args  []any
}

func (r *renderer) predicate(p queryir.Predicate) (string, error) {
	switch n := p.(type) {
	case nil:
		return "true", nil
	case *queryir.And:
		return r.binary("&&", n.Left, n.Right)
	case *queryir.Or:
		return r.binary("||", n.Left, n.Right)
	case *queryir.NullCheck:
		if n.Negated {
			return field(n.Field) + " != null", nil
		}
		return field(n.Field) + " == null", nil
	case *queryir.Comparison:
		switch v := n.Value.(type) {
		case queryir.NullLiteral:
			return field(n.Field) + " == null", nil
		case *queryir.Parameter:
			slot, err := r.bind(v, false)
			if err != nil {
				return "", err
			}
			return guard(n.Field, field(n.Field)+" "+celOp(n.Op)+" "+slot), nil
		default:
			return "", fmt.Errorf("unsupported operand type: %T", n.Value)
		}
	case *queryir.StringMatch:
		slot, err := r.bind(n.Value, true)
		if err != nil {
			return "", err
		}
		var method string
		switch n.Method {
		case schema.MethodContains:
			method = "contains"
		case schema.MethodStartsWith:
			method = "startsWith"
		case schema.MethodEndsWith:
			method = "endsWith"
		default:
			return "", fmt.Errorf("unsupported string method %q", n.Method)
		}
		return guard(n.Field, field(n.Field)+".fold()."+method+"("+slot+")"), nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (r *renderer) binary(op string, left, right queryir.Predicate) (string, error) {
	l, err := r.predicate(left)
	if err != nil {
		return "", err
	}
	rr, err := r.predicate(right)
	if err != nil {
		return "", err
	}
	return "(" + l + " " + op + " " + rr + ")", nil
}

// bind returns the list element for p. Match terms are bound folded.
func (r *renderer) bind(p *queryir.Parameter, fold bool) (string, error) {
	key := slotKey{param: p, fold: fold}
	if n, ok := r.slots[key]; ok {
		return "p[" + strconv.Itoa(n) + "]", nil
	}
	v, err := nativeValue(p.Value())
	if err != nil {
		return "", err
	}
	if fold {
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("match term must be a string, got %T", v)
		}
		v = schema.Fold(s)
	}
	n := len(r.args)
	r.args = append(r.args, v)
	r.slots[key] = n
	return "p[" + strconv.Itoa(n) + "]", nil
}

func field(fd schema.FieldDescriptor) string {
	return "r[" + strconv.Quote(fd.Name) + "]"
}

// guard makes expr false for null values of a nullable field.
func guard(fd schema.FieldDescriptor, expr string) string {
	if !fd.Nullable {
		return expr
	}
	return "(" + field(fd) + " != null && " + expr + ")"
}

func celOp(op queryir.CompareOp) string {
	if op == queryir.OpEqual {
		return "=="
	}
	return string(op)
}

// native converts a record into values the CEL type adapter understands.
func native(rec ir.IRObject) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		nv, err := nativeValue(v)
		if err != nil {
			// Unrepresentable values read as null.
			nv = nil
		}
		out[k] = nv
	}
	return out
}

// nativeValue maps decimals to doubles, datetimes to timestamps and enums
// to their ordinal.
func nativeValue(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil, nil
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRDecimal:
		return val.Float64(), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRTime:
		return val.Time(), nil
	case ir.IREnum:
		return val.Ordinal, nil
	default:
		return nil, fmt.Errorf("%s value has no CEL form", v.Kind())
	}
}

// Describe renders p with its arguments inlined, for diagnostics only.
func Describe(p queryir.Predicate) (string, error) {
	expr, args, err := Render(p)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("p[%d]=%#v", i, a)
	}
	if len(parts) == 0 {
		return expr, nil
	}
	return expr + "  -- " + strings.Join(parts, ", "), nil
}
