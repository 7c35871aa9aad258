// Package engine is the in-memory execution layer. It evaluates queries
// directly against records held in memory, with the same observable
// semantics as the SQL stores:
//
//   - comparisons and string matches are false for null field values
//   - Contains/StartsWith/EndsWith ignore case; Equal does not
//   - strings order by bytes, enums by ordinal, false before true
//   - nulls sort first ascending and last descending
//   - ties keep insertion order
//
// Every record carries a sequence number from a Sequence, which plays the
// role of the SQL stores' "_seq" column.
//
// Concurrency: a Memory is safe for concurrent use. Queries take a read
// lock and never observe a partially applied Insert.
package engine
