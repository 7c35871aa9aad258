package builder

import (
	"strings"

	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// Projection maps the requested fields of source onto target.
//
// Names are trimmed, blanks dropped, and duplicates (ignoring case) removed
// keeping the first. No names at all yields nil, the identity projection.
// Every name must resolve on source; all failures are reported together in
// one *UnknownFieldsError. Each resolved field binds to the target field of
// the same name (ignoring case) when its value is assignable; other fields
// are dropped. If nothing binds the result is *NoCompatibleFieldsError.
// A nil target projects onto source itself; a nil source is an
// *UnknownRecordError.
func (b *Builder) Projection(source, target *schema.RecordType, fields []string) (*queryir.ProjectionSpec, error) {
	names := normalizeFields(fields)
	if len(names) == 0 {
		return nil, nil
	}
	if source == nil {
		return nil, &UnknownRecordError{}
	}
	if target == nil {
		target = source
	}

	resolved := make([]schema.FieldDescriptor, 0, len(names))
	var unknown []string
	for _, name := range names {
		fd, ok := b.resolver.Resolve(source, name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		resolved = append(resolved, fd)
	}
	if len(unknown) > 0 {
		return nil, &UnknownFieldsError{Entity: source.Name, Fields: unknown}
	}

	if target.Abstract {
		return nil, &NoDefaultConstructorError{ResultShape: target.Name}
	}

	spec := &queryir.ProjectionSpec{Source: source, Target: target}
	for _, src := range resolved {
		dst, ok := b.resolver.Resolve(target, src.Name)
		if !ok || !src.AssignableTo(dst) {
			continue
		}
		spec.Bindings = append(spec.Bindings, queryir.Binding{Source: src, Target: dst})
	}
	if len(spec.Bindings) == 0 {
		return nil, &NoCompatibleFieldsError{Entity: source.Name, ResultShape: target.Name}
	}
	return spec, nil
}

// ParseFieldList splits a comma-separated field list.
func ParseFieldList(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, ",")
}

func normalizeFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		key := schema.Fold(f)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}
