package ir

import (
	"fmt"
	"strings"
)

// Compare orders two non-null scalar values of compatible kinds.
// Int and decimal compare numerically with each other; every other pair must
// share a kind. Strings compare by byte order, enums by ordinal and
// false sorts before true.
func Compare(a, b IRValue) (int, error) {
	switch av := a.(type) {
	case IRString:
		if bv, ok := b.(IRString); ok {
			return strings.Compare(string(av), string(bv)), nil
		}
	case IRInt:
		switch bv := b.(type) {
		case IRInt:
			return cmpInt(int64(av), int64(bv)), nil
		case IRDecimal:
			return DecimalFromInt(int64(av)).Cmp(bv), nil
		}
	case IRDecimal:
		switch bv := b.(type) {
		case IRDecimal:
			return av.Cmp(bv), nil
		case IRInt:
			return av.Cmp(DecimalFromInt(int64(bv))), nil
		}
	case IRBool:
		if bv, ok := b.(IRBool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !bool(av):
				return -1, nil
			default:
				return 1, nil
			}
		}
	case IRTime:
		if bv, ok := b.(IRTime); ok {
			return av.t.Compare(bv.t), nil
		}
	case IREnum:
		if bv, ok := b.(IREnum); ok {
			return cmpInt(av.Ordinal, bv.Ordinal), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", kindOf(a), kindOf(b))
}

// Equal reports whether a and b hold the same scalar value.
// Null equals only null.
func Equal(a, b IRValue) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func kindOf(v IRValue) string {
	if v == nil {
		return KindNull.String()
	}
	return v.Kind().String()
}
