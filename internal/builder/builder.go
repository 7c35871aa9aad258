package builder

import (
	"github.com/roach88/dynquery/internal/schema"
)

// Builder constructs query specs for registered record types.
type Builder struct {
	resolver *schema.Resolver
}

// New creates a Builder that resolves field names with resolver.
// A nil resolver gets a private one.
func New(resolver *schema.Resolver) *Builder {
	if resolver == nil {
		resolver = schema.NewResolver()
	}
	return &Builder{resolver: resolver}
}

// Resolver returns the resolver the builder consults.
func (b *Builder) Resolver() *schema.Resolver {
	return b.resolver
}
