package queryir

// Walk visits p and its descendants depth-first, left before right.
// Returning false from fn stops the descent below the current node.
func Walk(p Predicate, fn func(Predicate) bool) {
	if p == nil || !fn(p) {
		return
	}
	switch n := p.(type) {
	case *And:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Or:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	}
}

// Parameters returns the distinct parameters referenced by p in order of
// first appearance. A parameter shared by several nodes appears once.
func Parameters(p Predicate) []*Parameter {
	var params []*Parameter
	seen := make(map[*Parameter]bool)
	add := func(param *Parameter) {
		if param != nil && !seen[param] {
			seen[param] = true
			params = append(params, param)
		}
	}
	Walk(p, func(node Predicate) bool {
		switch n := node.(type) {
		case *Comparison:
			if param, ok := n.Value.(*Parameter); ok {
				add(param)
			}
		case *StringMatch:
			add(n.Value)
		}
		return true
	})
	return params
}

// FieldNames returns the distinct field names p reads, in order of first
// appearance.
func FieldNames(p Predicate) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	Walk(p, func(node Predicate) bool {
		switch n := node.(type) {
		case *Comparison:
			add(n.Field.Name)
		case *StringMatch:
			add(n.Field.Name)
		case *NullCheck:
			add(n.Field.Name)
		}
		return true
	})
	return names
}

// Leaves counts the comparison, match and null-check nodes in p.
func Leaves(p Predicate) int {
	n := 0
	Walk(p, func(node Predicate) bool {
		switch node.(type) {
		case *Comparison, *StringMatch, *NullCheck:
			n++
		}
		return true
	})
	return n
}
