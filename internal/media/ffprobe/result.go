package ffprobe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Result is a decoded ffprobe JSON document. Numbers are kept as json.Number
// so later comparisons can coerce them without losing precision. A Result is
// shared by every consumer of the same invocation and must not be modified.
type Result map[string]any

// Decode parses ffprobe JSON output.
func Decode(data []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var result Result
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode ffprobe json: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("decode ffprobe json: document is not an object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode ffprobe json: trailing data after document")
	}
	return result, nil
}

// Format returns the container-level attributes, or nil when absent.
func (r Result) Format() map[string]any {
	format, _ := r["format"].(map[string]any)
	return format
}

// Streams returns the stream records in ffprobe order.
func (r Result) Streams() []map[string]any {
	return objects(r["streams"])
}

// Frames returns the frame records produced by -show_frames.
func (r Result) Frames() []map[string]any {
	return objects(r["frames"])
}

// Programs returns the program records produced by -show_programs.
func (r Result) Programs() []map[string]any {
	return objects(r["programs"])
}

func objects(value any) []map[string]any {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Int reads an integer attribute from a decoded record. It reports false when
// the key is missing or not an integer.
func Int(record map[string]any, key string) (int, bool) {
	switch v := record[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		return int(v), v == float64(int(v))
	case int:
		return v, true
	default:
		return 0, false
	}
}

// String reads a string attribute from a decoded record.
func String(record map[string]any, key string) string {
	switch v := record[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
