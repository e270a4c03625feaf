package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ValueKind is the type of an expected condition value.
type ValueKind int

const (
	IntValue ValueKind = iota
	FloatValue
	StringValue
	BoolValue
)

func (k ValueKind) String() string {
	switch k {
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StringValue:
		return "string"
	case BoolValue:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a typed scalar.
type Value struct {
	Kind ValueKind
	Int  int64
	Num  float64
	Str  string
	Bool bool
}

func (v Value) String() string {
	switch v.Kind {
	case IntValue:
		return strconv.FormatInt(v.Int, 10)
	case FloatValue:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case BoolValue:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// Interface returns the value as a plain Go scalar.
func (v Value) Interface() any {
	switch v.Kind {
	case IntValue:
		return v.Int
	case FloatValue:
		return v.Num
	case BoolValue:
		return v.Bool
	default:
		return v.Str
	}
}

var errNotScalar = errors.New("not a scalar")

// scalarOf converts a decoded YAML or JSON scalar into a Value. The
// conversion preserves the literal's type: 5 is an int, 5.0 a float.
func scalarOf(raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return Value{Kind: StringValue, Str: v}, nil
	case bool:
		return Value{Kind: BoolValue, Bool: v}, nil
	case float32:
		return Value{Kind: FloatValue, Num: float64(v)}, nil
	case float64:
		return Value{Kind: FloatValue, Num: v}, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return Value{Kind: IntValue, Int: n}, nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: FloatValue, Num: f}, nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{Kind: IntValue, Int: rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return Value{}, fmt.Errorf("%d overflows int64", rv.Uint())
		}
		return Value{Kind: IntValue, Int: int64(rv.Uint())}, nil
	}
	return Value{}, errNotScalar
}

// coerce converts a probed value to kind.
func coerce(left any, kind ValueKind) (Value, error) {
	switch kind {
	case IntValue:
		n, err := toInt(left)
		return Value{Kind: IntValue, Int: n}, err
	case FloatValue:
		f, err := toFloat(left)
		return Value{Kind: FloatValue, Num: f}, err
	case StringValue:
		return Value{Kind: StringValue, Str: toString(left)}, nil
	case BoolValue:
		b, err := toBool(left)
		return Value{Kind: BoolValue, Bool: b}, err
	default:
		return Value{}, fmt.Errorf("unsupported kind %s", kind)
	}
}

func toInt(left any) (int64, error) {
	switch v := left.(type) {
	case json.Number:
		return parseIntText(v.String())
	case string:
		return parseIntText(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case float32:
		return truncate(float64(v))
	case float64:
		return truncate(v)
	}
	if left == nil {
		return 0, errors.New("null value")
	}
	rv := reflect.ValueOf(left)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", rv.Uint())
		}
		return int64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("cannot convert %T to int", left)
}

// parseIntText accepts integer text and decimal text, truncating the latter,
// so ffprobe's string-encoded durations compare against integer thresholds.
func parseIntText(text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", text)
	}
	return truncate(f)
}

func truncate(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v is not representable as int", f)
	}
	return int64(f), nil
}

func toFloat(left any) (float64, error) {
	switch v := left.(type) {
	case json.Number:
		return strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", v)
		}
		return f, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}
	n, err := toInt(left)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to float", left)
	}
	return float64(n), nil
}

func toString(left any) string {
	switch v := left.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func toBool(left any) (bool, error) {
	switch v := left.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("invalid boolean %q", v)
		}
		return b, nil
	}
	f, err := toFloat(left)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to bool", left)
	}
	return f != 0, nil
}
