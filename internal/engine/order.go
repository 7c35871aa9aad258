package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
)

// sortRows orders rows by spec. Nulls sort first on ascending keys and
// last on descending ones; ties fall back to insertion order.
func sortRows(record string, rows []row, spec queryir.OrderSpec) error {
	if spec.IsIdentity() {
		return nil
	}
	var failure error
	slices.SortStableFunc(rows, func(a, b row) int {
		for _, key := range spec.Keys {
			c, err := compareKey(a.rec.Get(key.Field.Name), b.rec.Get(key.Field.Name))
			if err != nil {
				if failure == nil {
					failure = incomparable(record, key.Field.Name, err)
				}
				return 0
			}
			if key.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return failure
}

// compareKey orders two values of one field, with null lowest.
func compareKey(a, b ir.IRValue) (int, error) {
	switch an, bn := ir.IsNull(a), ir.IsNull(b); {
	case an && bn:
		return 0, nil
	case an:
		return -1, nil
	case bn:
		return 1, nil
	}
	return ir.Compare(a, b)
}
