package filter

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// FieldModeParameter is the stream parameter resolved by the field mode
// solver when the probe output does not carry it.
const FieldModeParameter = "field_mode"

// ParamCondition binds a condition to a named metadata parameter.
type ParamCondition struct {
	Name      string
	Condition Condition
}

// Rule is one selector with its conditions. Count selectors carry a single
// condition; format and stream selectors carry per-parameter conditions.
type Rule struct {
	Selector Selector
	Params   []ParamCondition
	Count    Condition
}

// Params is a parsed filter. Rules are ordered by selector text.
type Params struct {
	Rules []Rule
}

// Empty reports whether the filter accepts everything.
func (p Params) Empty() bool {
	return len(p.Rules) == 0
}

// ParseParams parses a decoded selector → condition mapping.
func ParseParams(raw map[string]any) (Params, error) {
	selectors := make([]string, 0, len(raw))
	for key := range raw {
		selectors = append(selectors, key)
	}
	sort.Strings(selectors)

	params := Params{Rules: make([]Rule, 0, len(selectors))}
	for _, key := range selectors {
		selector, err := ParseSelector(key)
		if err != nil {
			return Params{}, err
		}
		rule := Rule{Selector: selector}
		if selector.Kind == CountSelector {
			cond, err := ParseCondition(raw[key])
			if err != nil {
				return Params{}, fmt.Errorf("selector %q: %w", key, err)
			}
			rule.Count = cond
		} else {
			conds, err := parseParamConditions(raw[key])
			if err != nil {
				return Params{}, fmt.Errorf("selector %q: %w", key, err)
			}
			rule.Params = conds
		}
		params.Rules = append(params.Rules, rule)
	}
	return params, nil
}

func parseParamConditions(raw any) ([]ParamCondition, error) {
	mapping, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected parameter mapping, got %T", ErrWrongConditionType, raw)
	}
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ParamCondition, 0, len(names))
	for _, name := range names {
		cond, err := ParseCondition(mapping[name])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out = append(out, ParamCondition{Name: name, Condition: cond})
	}
	return out, nil
}

// Decode parses YAML filter text.
func Decode(data []byte) (Params, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Params{}, fmt.Errorf("decode filter: %w", err)
	}
	return ParseParams(raw)
}

// LoadFile reads and parses a YAML filter file.
func LoadFile(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read filter %s: %w", path, err)
	}
	params, err := Decode(data)
	if err != nil {
		return Params{}, fmt.Errorf("%s: %w", path, err)
	}
	return params, nil
}
