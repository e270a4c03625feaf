package filter

import (
	"context"
	"fmt"
	"log/slog"

	"mediasieve/internal/logging"
	"mediasieve/internal/media/metadata"
)

// MetadataSource provides probed metadata for an input.
type MetadataSource interface {
	Get(ctx context.Context, input string) (*metadata.Result, error)
}

// Filter evaluates parsed filters against collected metadata.
type Filter struct {
	source MetadataSource
	logger *slog.Logger
}

// New constructs a filter over source.
func New(source MetadataSource, logger *slog.Logger) *Filter {
	return &Filter{source: source, logger: logging.NewComponentLogger(logger, "filter")}
}

// MatchParams parses raw and evaluates it against input.
func (f *Filter) MatchParams(ctx context.Context, input string, raw map[string]any) (bool, error) {
	params, err := ParseParams(raw)
	if err != nil {
		return false, err
	}
	return f.Match(ctx, input, params)
}

// Match reports whether every rule in params holds for input. Evaluation stops
// at the first rule that fails.
func (f *Filter) Match(ctx context.Context, input string, params Params) (bool, error) {
	meta, err := f.source.Get(ctx, input)
	if err != nil {
		return false, err
	}
	return f.Evaluate(ctx, meta, params)
}

// Evaluate runs params against already collected metadata.
func (f *Filter) Evaluate(ctx context.Context, meta *metadata.Result, params Params) (bool, error) {
	for _, rule := range params.Rules {
		ok, err := f.evalRule(ctx, meta, rule)
		if err != nil {
			return false, fmt.Errorf("selector %q: %w", rule.Selector.Raw, err)
		}
		if !ok {
			f.logger.Debug("filter rejected input",
				logging.String(logging.FieldInput, meta.Input()),
				logging.String("selector", rule.Selector.Raw))
			return false, nil
		}
	}
	f.logger.Debug("filter passed", logging.String(logging.FieldInput, meta.Input()))
	return true, nil
}

func (f *Filter) evalRule(ctx context.Context, meta *metadata.Result, rule Rule) (bool, error) {
	switch rule.Selector.Kind {
	case FormatSelector:
		return f.evalParams(rule.Params, func(name string) (any, error) {
			value, ok := meta.Format()[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
			}
			return value, nil
		})
	case StreamSelector:
		sel := rule.Selector
		stream, ok := meta.Stream(sel.Stream, sel.Index)
		if !ok {
			return false, fmt.Errorf("%w: %s stream %d of %d", ErrStreamIndexOutOfRange, sel.Stream, sel.Index, meta.Count(sel.Stream))
		}
		return f.evalParams(rule.Params, func(name string) (any, error) {
			if value, ok := stream[name]; ok {
				return value, nil
			}
			if name == FieldModeParameter && sel.Stream == metadata.Video {
				mode, err := meta.FieldMode(ctx, sel.Index)
				if err != nil {
					return nil, err
				}
				return mode, nil
			}
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
		})
	case CountSelector:
		count := meta.Count(rule.Selector.Stream)
		f.logger.Debug("evaluating stream count",
			logging.String("kind", string(rule.Selector.Stream)),
			logging.Int("count", count),
			logging.String("condition", rule.Count.String()))
		return rule.Count.Eval(count)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownSelector, rule.Selector.Raw)
	}
}

func (f *Filter) evalParams(params []ParamCondition, lookup func(string) (any, error)) (bool, error) {
	for _, param := range params {
		value, err := lookup(param.Name)
		if err != nil {
			return false, err
		}
		f.logger.Debug("evaluating parameter",
			logging.String("parameter", param.Name),
			logging.Any("value", value),
			logging.String("condition", param.Condition.String()))
		ok, err := param.Condition.Eval(value)
		if err != nil {
			return false, fmt.Errorf("parameter %q: %w", param.Name, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
