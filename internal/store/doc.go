// Package store is the SQLite execution layer. It materializes record
// types as tables, loads records into them and evaluates queries by
// compiling them with querysql.
//
// # Plan cache
//
// Compiled SQL depends only on a query's shape, never on its parameter
// values, so the store keeps one prepared statement per distinct SQL text.
// CacheStats reports hits and misses; repeated queries that differ only in
// values hit the same entry.
//
// # Storage mapping
//
//   - string: TEXT, compared in byte order
//   - int, enum (ordinal), bool (0/1): INTEGER
//   - decimal: REAL
//   - datetime: fixed-width UTC TEXT, so text order is time order
//
// Every table carries an INTEGER "_seq" key in insertion order, used as
// the final ORDER BY tiebreaker.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
