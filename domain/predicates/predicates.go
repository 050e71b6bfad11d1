// Package predicates evaluates attribute comparisons against graph records
// and composes them with AND/OR logic.
package predicates

import (
	"graphstore/domain/core/valueobjects"
	pkgerrors "graphstore/pkg/errors"
)

// Attributed is anything that exposes named attribute values.
// *entities.Node satisfies it.
type Attributed interface {
	Attribute(name string) (valueobjects.Value, bool)
}

// Predicate decides whether a record passes a filter
type Predicate interface {
	Matches(record Attributed) bool
}

// Operator is an attribute comparison operator
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpLessOrEqual    Operator = "<="
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpGreater        Operator = ">"
	OpIn             Operator = "in"
	OpContains       Operator = "contains"
)

// ParseOperator validates an operator string
func ParseOperator(op string) (Operator, error) {
	switch Operator(op) {
	case OpEqual, OpNotEqual, OpLessOrEqual, OpGreaterOrEqual, OpLess, OpGreater, OpIn, OpContains:
		return Operator(op), nil
	}
	return "", pkgerrors.ErrInvalidOperator.New().WithDetail("operator", op)
}

// AttributeFilter compares one attribute against a fixed value
type AttributeFilter struct {
	attribute string
	operator  Operator
	value     valueobjects.Value
}

// NewAttributeFilter builds a filter, rejecting unknown operators
func NewAttributeFilter(attribute, operator string, value valueobjects.Value) (*AttributeFilter, error) {
	op, err := ParseOperator(operator)
	if err != nil {
		return nil, err
	}
	return &AttributeFilter{attribute: attribute, operator: op, value: value}, nil
}

// MustAttributeFilter is NewAttributeFilter for operators known to be valid
func MustAttributeFilter(attribute, operator string, value valueobjects.Value) *AttributeFilter {
	f, err := NewAttributeFilter(attribute, operator, value)
	if err != nil {
		panic(err)
	}
	return f
}

// Attribute returns the attribute name the filter inspects
func (f *AttributeFilter) Attribute() string { return f.attribute }

// Operator returns the comparison operator
func (f *AttributeFilter) Operator() Operator { return f.operator }

// Value returns the comparison operand
func (f *AttributeFilter) Value() valueobjects.Value { return f.value }

// Matches applies the comparison. A missing attribute never matches, and
// neither does an ordering comparison between values with no natural order.
// A nil filter matches everything.
func (f *AttributeFilter) Matches(record Attributed) bool {
	if f == nil {
		return true
	}
	actual, ok := record.Attribute(f.attribute)
	if !ok {
		return false
	}

	switch f.operator {
	case OpEqual:
		return actual.Equal(f.value)
	case OpNotEqual:
		return !actual.Equal(f.value)
	case OpIn:
		return f.value.Contains(actual)
	case OpContains:
		haystack, ok := actual.AsText()
		if !ok {
			return false
		}
		needle, ok := f.value.AsText()
		if !ok {
			return false
		}
		return valueobjects.Text(haystack).Contains(valueobjects.Text(needle))
	}

	cmp, ok := actual.Compare(f.value)
	if !ok {
		return false
	}
	switch f.operator {
	case OpLessOrEqual:
		return cmp <= 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLess:
		return cmp < 0
	case OpGreater:
		return cmp > 0
	}
	return false
}

// LogicOperator combines the filters of an expression
type LogicOperator string

const (
	And LogicOperator = "AND"
	Or  LogicOperator = "OR"
)

// FilterExpression is a boolean composition of predicates
type FilterExpression struct {
	filters  []Predicate
	operator LogicOperator
}

// NewFilterExpression builds an expression, rejecting anything but AND and OR
func NewFilterExpression(filters []Predicate, operator string) (*FilterExpression, error) {
	op := LogicOperator(operator)
	if op != And && op != Or {
		return nil, pkgerrors.ErrInvalidLogicOperator.New().WithDetail("operator", operator)
	}
	cp := make([]Predicate, 0, len(filters))
	for _, f := range filters {
		if !isNil(f) {
			cp = append(cp, f)
		}
	}
	return &FilterExpression{filters: cp, operator: op}, nil
}

// AddFilter appends a predicate and returns the expression for chaining.
// On a nil expression it starts a new AND expression.
func (e *FilterExpression) AddFilter(filter Predicate) *FilterExpression {
	if e == nil {
		e = &FilterExpression{operator: And}
	}
	if !isNil(filter) {
		e.filters = append(e.filters, filter)
	}
	return e
}

// Operator returns the logic operator
func (e *FilterExpression) Operator() LogicOperator {
	if e == nil {
		return And
	}
	return e.operator
}

// Len returns the number of filters
func (e *FilterExpression) Len() int {
	if e == nil {
		return 0
	}
	return len(e.filters)
}

// Matches evaluates the expression. A nil or empty expression matches
// everything.
func (e *FilterExpression) Matches(record Attributed) bool {
	if e == nil || len(e.filters) == 0 {
		return true
	}
	if e.operator == And {
		for _, f := range e.filters {
			if !f.Matches(record) {
				return false
			}
		}
		return true
	}
	for _, f := range e.filters {
		if f.Matches(record) {
			return true
		}
	}
	return false
}

// Matches applies an optional predicate. A nil predicate matches everything.
func Matches(p Predicate, record Attributed) bool {
	if isNil(p) {
		return true
	}
	return p.Matches(record)
}

// IsNil reports whether p is absent, including a typed nil pointer held in
// the interface.
func IsNil(p Predicate) bool {
	return isNil(p)
}

func isNil(p Predicate) bool {
	switch v := p.(type) {
	case nil:
		return true
	case *AttributeFilter:
		return v == nil
	case *FilterExpression:
		return v == nil
	}
	return false
}
