// Package ir provides the closed value variant shared by every dynquery
// package: literals handed to the builders, parameter values, and records
// returned by execution layers.
//
// ir imports nothing internal, which keeps it the foundational layer with no
// circular dependencies.
//
// Key constraints:
//   - no float variant; fractional numbers are IRDecimal (cockroachdb/apd)
//   - datetimes are UTC instants
//   - enums compare by ordinal
//   - canonical JSON (RFC 8785) is the only encoding used for hashing
package ir
