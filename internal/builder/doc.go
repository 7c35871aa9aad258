// Package builder turns field names, operators and values into validated
// query specs.
//
// The builders never execute anything. They resolve names against record
// metadata, check operators against field types and nullability, route every
// literal through param.Make, and return queryir nodes that an execution
// layer evaluates later.
//
// Two failure disciplines coexist:
//   - tolerant skip: a blank or unknown field name contributes nothing
//     (Clause returns a nil predicate, Order drops the key, Search ignores
//     the field)
//   - validation errors: an operator the field cannot support, a value that
//     cannot be converted, or an unusable projection is reported as a typed
//     error and aborts the whole call
//
// A Builder holds only its Resolver and is safe for concurrent use.
package builder
