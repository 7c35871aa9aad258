package builder

import (
	"strings"
)

// Operator is a comparison operator callers may request by name.
type Operator string

const (
	OpContains           Operator = "contains"
	OpStartsWith         Operator = "startswith"
	OpEndsWith           Operator = "endswith"
	OpEqual              Operator = "eq"
	OpGreaterThan        Operator = "gt"
	OpGreaterThanOrEqual Operator = "gte"
	OpLessThan           Operator = "lt"
	OpLessThanOrEqual    Operator = "lte"
	OpIsNull             Operator = "isnull"
	OpIsNotNull          Operator = "isnotnull"
)

// Operators lists the declared operators.
var Operators = []Operator{
	OpContains, OpStartsWith, OpEndsWith,
	OpEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
	OpIsNull, OpIsNotNull,
}

var operatorAliases = map[string]Operator{
	"contains":           OpContains,
	"like":               OpContains,
	"startswith":         OpStartsWith,
	"starts_with":        OpStartsWith,
	"endswith":           OpEndsWith,
	"ends_with":          OpEndsWith,
	"eq":                 OpEqual,
	"equal":              OpEqual,
	"=":                  OpEqual,
	"==":                 OpEqual,
	"gt":                 OpGreaterThan,
	"greaterthan":        OpGreaterThan,
	">":                  OpGreaterThan,
	"gte":                OpGreaterThanOrEqual,
	"ge":                 OpGreaterThanOrEqual,
	"greaterthanorequal": OpGreaterThanOrEqual,
	">=":                 OpGreaterThanOrEqual,
	"lt":                 OpLessThan,
	"lessthan":           OpLessThan,
	"<":                  OpLessThan,
	"lte":                OpLessThanOrEqual,
	"le":                 OpLessThanOrEqual,
	"lessthanorequal":    OpLessThanOrEqual,
	"<=":                 OpLessThanOrEqual,
	"isnull":             OpIsNull,
	"is_null":            OpIsNull,
	"null":               OpIsNull,
	"isnotnull":          OpIsNotNull,
	"is_not_null":        OpIsNotNull,
	"notnull":            OpIsNotNull,
}

// ParseOperator resolves an operator name or symbol, ignoring case.
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return "", &UnsupportedOperatorError{Operator: s}
}

// UnmarshalText lets declarative requests spell operators any way
// ParseOperator accepts.
func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// SearchMode selects how a search term is matched against each field.
type SearchMode string

const (
	SearchContains   SearchMode = "contains"
	SearchStartsWith SearchMode = "startswith"
	SearchEndsWith   SearchMode = "endswith"
	SearchExactly    SearchMode = "exactly"
)

// ParseSearchMode resolves a mode name, ignoring case. Empty means Contains.
func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contains":
		return SearchContains, nil
	case "startswith", "starts_with":
		return SearchStartsWith, nil
	case "endswith", "ends_with":
		return SearchEndsWith, nil
	case "exactly", "exact", "equal", "eq":
		return SearchExactly, nil
	default:
		return "", &UnsupportedOperatorError{Operator: s}
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SearchMode) UnmarshalText(text []byte) error {
	mode, err := ParseSearchMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// CombineMode joins filter clauses. The zero value means And.
type CombineMode string

const (
	CombineAnd CombineMode = "and"
	CombineOr  CombineMode = "or"
)

// ParseCombineMode resolves a combine mode, ignoring case. Empty means And.
func ParseCombineMode(s string) (CombineMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and", "&&":
		return CombineAnd, nil
	case "or", "||":
		return CombineOr, nil
	default:
		return "", &UnsupportedOperatorError{Operator: s}
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CombineMode) UnmarshalText(text []byte) error {
	mode, err := ParseCombineMode(string(text))
	if err != nil {
		return err
	}
	*c = mode
	return nil
}
