package builder

import (
	"strings"

	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// OrderItem is one requested sort key.
type OrderItem struct {
	Field      string `yaml:"field" json:"field"`
	Descending bool   `yaml:"desc,omitempty" json:"desc,omitempty"`
}

// Order resolves items into an OrderSpec. Input order is key precedence;
// blank and unresolved names are dropped. An empty result is the identity
// ordering.
func (b *Builder) Order(rt *schema.RecordType, items []OrderItem) queryir.OrderSpec {
	var spec queryir.OrderSpec
	for _, item := range items {
		if strings.TrimSpace(item.Field) == "" {
			continue
		}
		fd, ok := b.resolver.Resolve(rt, item.Field)
		if !ok {
			continue
		}
		spec.Keys = append(spec.Keys, queryir.OrderKey{Field: fd, Descending: item.Descending})
	}
	return spec
}

// ParseOrder reads a comma-separated key list such as "-Name, Id".
// A leading '-' sorts descending; a leading '+' is accepted and ignored.
func ParseOrder(text string) []OrderItem {
	var items []OrderItem
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		desc := false
		switch {
		case strings.HasPrefix(part, "-"):
			desc = true
			part = strings.TrimSpace(part[1:])
		case strings.HasPrefix(part, "+"):
			part = strings.TrimSpace(part[1:])
		}
		if part == "" {
			continue
		}
		items = append(items, OrderItem{Field: part, Descending: desc})
	}
	return items
}
