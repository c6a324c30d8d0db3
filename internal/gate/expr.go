package gate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Prefixes of the custom gate expressions.
const (
	prefixYAMLField = "yaml_field:"
	prefixCommand   = "command:"
)

// Operator is a comparison operator of a yaml_field expression.
type Operator string

const (
	OpNotEqual     Operator = "!="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
)

// operators in match order; two-character operators must precede their prefixes.
var operators = []Operator{OpNotEqual, OpGreaterEqual, OpLessEqual, OpEqual, OpGreater, OpLess}

var (
	errMissingOperator = errors.New("Invalid yaml_field expression: missing operator and value")
	errMissingPath     = errors.New("Invalid yaml_field expression: expected file:field_path")
)

// FieldExpr is a parsed "yaml_field:<file>:<dot.path> <op> <value>" expression.
type FieldExpr struct {
	File  string
	Path  string
	Op    Operator
	Value string
}

// ParseFieldExpr parses the part of a custom target after the yaml_field: prefix.
// Error messages are suitable as gate evidence.
func ParseFieldExpr(expr string) (FieldExpr, error) {
	fileAndPath, opAndValue, ok := strings.Cut(expr, " ")
	if !ok {
		return FieldExpr{}, errMissingOperator
	}
	opAndValue = strings.TrimSpace(opAndValue)

	file, path, ok := strings.Cut(fileAndPath, ":")
	if !ok {
		return FieldExpr{}, errMissingPath
	}

	for _, op := range operators {
		if rest, found := strings.CutPrefix(opAndValue, string(op)); found {
			return FieldExpr{File: file, Path: path, Op: op, Value: strings.TrimSpace(rest)}, nil
		}
	}
	return FieldExpr{}, fmt.Errorf("Invalid operator in expression: %s", opAndValue)
}

// Compare applies the operator to the stringified actual value.
// Equality is a string comparison. Ordering operators need both sides to parse
// as numbers and are false otherwise.
func (op Operator) Compare(actual, expected string) bool {
	switch op {
	case OpEqual:
		return actual == expected
	case OpNotEqual:
		return actual != expected
	}

	a, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if err != nil {
		return false
	}
	e, err := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	if err != nil {
		return false
	}
	switch op {
	case OpGreater:
		return a > e
	case OpLess:
		return a < e
	case OpGreaterEqual:
		return a >= e
	case OpLessEqual:
		return a <= e
	}
	return false
}

// lookup walks a dot-separated path through nested mappings.
// A missing segment, a non-mapping step or a null leaf yields ok=false.
func lookup(data any, path string) (any, bool) {
	current := data
	for _, part := range strings.Split(path, ".") {
		m, isMap := current.(map[string]any)
		if !isMap {
			return nil, false
		}
		next, found := m[part]
		if !found {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

// stringify renders a YAML scalar the way it compares in expressions.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
