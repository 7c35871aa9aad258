// Package schema holds record type metadata and the field resolver.
//
// Record types are registered explicitly, either from Go code or from CUE
// schema files. The Resolver maps caller-supplied field names onto field
// descriptors case-insensitively and caches every successful lookup for the
// lifetime of the Resolver.
package schema
