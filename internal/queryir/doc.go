// Package queryir defines the predicate, ordering and projection specs that
// the builders produce and execution layers consume.
//
// The IR is the abstraction boundary between callers that describe queries
// by field name and the engines that evaluate them:
//
//	[names + values] → [builder] → [Query IR] → [SQL (SQLite, PostgreSQL)]
//	                                          → [in-memory engine]
//	                                          → [CEL]
//
// IDENTITY:
//
// A nil Predicate means "no filtering"; an empty OrderSpec means "source
// order"; a nil *ProjectionSpec means "return records unchanged". Execution
// layers must treat all three as no-ops.
//
// PARAMETERS:
//
// Every literal reaches the IR wrapped in a *Parameter. Two queries that
// differ only in parameter values have the same shape: the same ShapeHash,
// the same SQL text, and therefore the same prepared statement. A Parameter
// may be referenced by several nodes (multi-field search shares one term);
// renderers bind it once.
//
// NULL SEMANTICS:
//
// Comparisons and string matches on a null field value are false. Only
// NullCheck (and Equal against a NullLiteral) observe nulls.
//
// SEALED INTERFACES:
//
// Predicate and Operand are sealed with marker methods so every backend can
// use an exhaustive type switch:
//
//	switch p := pred.(type) {
//	case *Comparison:
//	case *StringMatch:
//	case *NullCheck:
//	case *And:
//	case *Or:
//	}
//
// All nodes are immutable once built and safe to share between goroutines.
package queryir
