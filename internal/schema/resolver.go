package schema

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// StringMethod is a string-manipulation capability a filter may invoke.
type StringMethod string

const (
	MethodContains   StringMethod = "contains"
	MethodStartsWith StringMethod = "startswith"
	MethodEndsWith   StringMethod = "endswith"
)

// Fold returns the case-folded form of s used for name matching.
// A Caser holds state, so each call builds its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

type cacheKey struct {
	record *RecordType
	name   string
}

// Resolver maps field names to descriptors. Successful lookups are cached
// per (record type, folded name) and never evicted; misses are recomputed
// on every call. A Resolver is safe for concurrent use.
type Resolver struct {
	cache sync.Map // cacheKey -> FieldDescriptor
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve finds the public field of rt whose name matches name ignoring case.
// Leading and trailing whitespace in name is not significant.
func (r *Resolver) Resolve(rt *RecordType, name string) (FieldDescriptor, bool) {
	name = strings.TrimSpace(name)
	if rt == nil || name == "" {
		return FieldDescriptor{}, false
	}

	key := cacheKey{record: rt, name: Fold(name)}
	if fd, ok := r.cache.Load(key); ok {
		return fd.(FieldDescriptor), true
	}

	for _, f := range rt.Fields {
		if Fold(f.Name) == key.name {
			// Concurrent inserts store identical values, so losing the race is harmless.
			r.cache.Store(key, f)
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Len reports how many lookups are cached.
func (r *Resolver) Len() int {
	n := 0
	r.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// SupportsMethod reports whether method can be invoked on fd's value.
func (r *Resolver) SupportsMethod(fd FieldDescriptor, method StringMethod) bool {
	switch method {
	case MethodContains, MethodStartsWith, MethodEndsWith:
		return fd.IsString()
	default:
		return false
	}
}
