package filter

import (
	"cmp"
	"fmt"
	"strings"
)

// Operator is a comparison operator name.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNeq Operator = "neq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
)

// ParseOperator matches operator names case-insensitively.
func ParseOperator(name string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(name)))
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}
}

// ConditionKind tags the shape a condition was written in.
type ConditionKind int

const (
	// ScalarCondition is a bare value meaning equality.
	ScalarCondition ConditionKind = iota
	// PairCondition is a single [operator, value] pair.
	PairCondition
	// ConjunctionCondition is a list of pairs that must all hold.
	ConjunctionCondition
)

// Pair is one comparison against an expected value.
type Pair struct {
	Operator Operator
	Value    Value
}

// Condition is a parsed condition. Every shape reduces to an ordered list of
// pairs evaluated as a conjunction.
type Condition struct {
	Kind  ConditionKind
	Pairs []Pair
}

// ParseCondition classifies a decoded YAML or JSON condition.
func ParseCondition(raw any) (Condition, error) {
	if value, err := scalarOf(raw); err == nil {
		return Condition{Kind: ScalarCondition, Pairs: []Pair{{Operator: OpEq, Value: value}}}, nil
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return Condition{}, fmt.Errorf("%w: %T", ErrWrongConditionType, raw)
	}
	if _, ok := items[0].(string); ok {
		pair, err := parsePair(items)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Kind: PairCondition, Pairs: []Pair{pair}}, nil
	}
	if _, ok := items[0].([]any); !ok {
		return Condition{}, fmt.Errorf("%w: list of %T", ErrWrongConditionType, items[0])
	}
	pairs := make([]Pair, 0, len(items))
	for _, item := range items {
		elems, ok := item.([]any)
		if !ok {
			return Condition{}, fmt.Errorf("%w: mixed list element %T", ErrWrongConditionType, item)
		}
		pair, err := parsePair(elems)
		if err != nil {
			return Condition{}, err
		}
		pairs = append(pairs, pair)
	}
	return Condition{Kind: ConjunctionCondition, Pairs: pairs}, nil
}

func parsePair(elems []any) (Pair, error) {
	if len(elems) != 2 {
		return Pair{}, fmt.Errorf("%w: pair needs [operator, value], got %d elements", ErrWrongConditionType, len(elems))
	}
	name, ok := elems[0].(string)
	if !ok {
		return Pair{}, fmt.Errorf("%w: operator must be a string, got %T", ErrWrongConditionType, elems[0])
	}
	op, err := ParseOperator(name)
	if err != nil {
		return Pair{}, err
	}
	value, err := scalarOf(elems[1])
	if err != nil {
		return Pair{}, fmt.Errorf("%w: value %v (%T)", ErrWrongConditionType, elems[1], elems[1])
	}
	return Pair{Operator: op, Value: value}, nil
}

// Eval reports whether left satisfies every pair, stopping at the first
// pair that does not hold.
func (c Condition) Eval(left any) (bool, error) {
	for _, pair := range c.Pairs {
		ok, err := pair.Eval(left)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Eval converts left to the pair's value type and compares.
func (p Pair) Eval(left any) (bool, error) {
	typed, err := coerce(left, p.Value.Kind)
	if err != nil {
		return false, &PairError{Left: left, Operator: p.Operator, Right: p.Value.Interface(), Err: err}
	}
	ok, err := compare(p.Operator, typed, p.Value)
	if err != nil {
		return false, &PairError{Left: typed.Interface(), Operator: p.Operator, Right: p.Value.Interface(), Err: err}
	}
	return ok, nil
}

func (c Condition) String() string {
	parts := make([]string, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		parts = append(parts, fmt.Sprintf("%s %s", p.Operator, p.Value))
	}
	return strings.Join(parts, " and ")
}

func compare(op Operator, left, right Value) (bool, error) {
	var order int
	switch right.Kind {
	case IntValue:
		order = cmp.Compare(left.Int, right.Int)
	case FloatValue:
		order = cmp.Compare(left.Num, right.Num)
	case StringValue:
		order = strings.Compare(left.Str, right.Str)
	case BoolValue:
		switch op {
		case OpEq:
			return left.Bool == right.Bool, nil
		case OpNeq:
			return left.Bool != right.Bool, nil
		default:
			return false, fmt.Errorf("operator %s does not apply to booleans", op)
		}
	}
	switch op {
	case OpEq:
		return order == 0, nil
	case OpNeq:
		return order != 0, nil
	case OpGt:
		return order > 0, nil
	case OpGte:
		return order >= 0, nil
	case OpLt:
		return order < 0, nil
	case OpLte:
		return order <= 0, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, string(op))
	}
}
