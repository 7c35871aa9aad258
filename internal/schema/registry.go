package schema

import (
	"fmt"
	"slices"
	"sync"
)

// Registry is the static table of record types known to a process.
// Registered types are copied and never mutated afterwards, so the returned
// pointers are stable identities for the Resolver cache.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*RecordType
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*RecordType)}
}

// Register validates rt and adds a copy of it.
// Names are unique ignoring case.
func (r *Registry) Register(rt RecordType) (*RecordType, error) {
	if err := rt.Validate(); err != nil {
		return nil, err
	}

	stored := &RecordType{
		Name:     rt.Name,
		Abstract: rt.Abstract,
		Fields:   make([]FieldDescriptor, len(rt.Fields)),
	}
	for i, f := range rt.Fields {
		f.EnumValues = slices.Clone(f.EnumValues)
		stored.Fields[i] = f
	}

	key := Fold(rt.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.types[key]; ok {
		return nil, &SchemaError{Field: rt.Name, Message: fmt.Sprintf("record type already registered as %q", existing.Name)}
	}
	r.types[key] = stored
	r.order = append(r.order, key)
	return stored, nil
}

// MustRegister is like Register but panics on error.
// Use only in tests or for types declared in code.
func (r *Registry) MustRegister(rt RecordType) *RecordType {
	stored, err := r.Register(rt)
	if err != nil {
		panic(err)
	}
	return stored
}

// Lookup finds a record type by name, ignoring case.
func (r *Registry) Lookup(name string) (*RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.types[Fold(name)]
	return rt, ok
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RecordType, len(r.order))
	for i, key := range r.order {
		out[i] = r.types[key]
	}
	return out
}
