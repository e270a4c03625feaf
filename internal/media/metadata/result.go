package metadata

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"mediasieve/internal/media/ffprobe"
	"mediasieve/internal/media/fieldmode"
)

// Kind is a stream category addressable by filters.
type Kind string

const (
	Video Kind = "video"
	Audio Kind = "audio"
)

// Kinds lists every addressable stream kind in display order.
var Kinds = []Kind{Video, Audio}

// ParseKind accepts "v", "a", "video", or "audio" in any case.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "v", "video":
		return Video, nil
	case "a", "audio":
		return Audio, nil
	default:
		return "", fmt.Errorf("unknown stream kind %q", value)
	}
}

// FieldModeSolver resolves the field order of a video stream.
type FieldModeSolver interface {
	Solve(ctx context.Context, input string, stream int) (fieldmode.Mode, error)
}

// Result wraps the probe output for one input file. Stream partitions are
// computed once on first access; field modes are resolved per stream on
// demand and remembered.
type Result struct {
	input  string
	info   ffprobe.Result
	solver FieldModeSolver

	partitionOnce sync.Once
	byKind        map[Kind][]map[string]any

	modeMu sync.Mutex
	modes  map[int]fieldmode.Mode
}

// NewResult wraps info for input. solver may be nil, in which case FieldMode
// reports an error.
func NewResult(input string, info ffprobe.Result, solver FieldModeSolver) *Result {
	return &Result{
		input:  input,
		info:   info,
		solver: solver,
		modes:  make(map[int]fieldmode.Mode),
	}
}

func (r *Result) partition() {
	r.partitionOnce.Do(func() {
		r.byKind = map[Kind][]map[string]any{Video: nil, Audio: nil}
		for _, stream := range r.info.Streams() {
			switch ffprobe.String(stream, "codec_type") {
			case "video":
				r.byKind[Video] = append(r.byKind[Video], stream)
			case "audio":
				r.byKind[Audio] = append(r.byKind[Audio], stream)
			}
		}
	})
}

// Input returns the path the result was probed from.
func (r *Result) Input() string {
	return r.input
}

// Info returns the underlying probe document.
func (r *Result) Info() ffprobe.Result {
	return r.info
}

// Format returns the container attributes.
func (r *Result) Format() map[string]any {
	return r.info.Format()
}

// Streams returns the streams of kind in probe order.
func (r *Result) Streams(kind Kind) []map[string]any {
	r.partition()
	return r.byKind[kind]
}

// Stream returns the n-th stream of kind.
func (r *Result) Stream(kind Kind, n int) (map[string]any, bool) {
	streams := r.Streams(kind)
	if n < 0 || n >= len(streams) {
		return nil, false
	}
	return streams[n], true
}

// Count returns the number of streams of kind.
func (r *Result) Count(kind Kind) int {
	return len(r.Streams(kind))
}

// StreamsByIndex maps each stream of kind by its container index.
func (r *Result) StreamsByIndex(kind Kind) map[int]map[string]any {
	streams := r.Streams(kind)
	out := make(map[int]map[string]any, len(streams))
	for n, stream := range streams {
		index, ok := ffprobe.Int(stream, "index")
		if !ok {
			index = n
		}
		out[index] = stream
	}
	return out
}

// FilenameExt returns the base name of the input including its extension.
func (r *Result) FilenameExt() string {
	return filepath.Base(r.input)
}

// Filename returns the base name of the input without its extension.
func (r *Result) Filename() string {
	base := r.FilenameExt()
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extension returns the input's extension including the leading dot, or ""
// when the name has none.
func (r *Result) Extension() string {
	return filepath.Ext(r.input)
}

// FieldMode returns the field order of the n-th video stream, solving it on
// first use.
func (r *Result) FieldMode(ctx context.Context, n int) (fieldmode.Mode, error) {
	r.modeMu.Lock()
	defer r.modeMu.Unlock()

	if mode, ok := r.modes[n]; ok {
		return mode, nil
	}
	if r.solver == nil {
		return fieldmode.MixedOrUnknown, fmt.Errorf("field mode of stream %d: no solver configured", n)
	}
	mode, err := r.solver.Solve(ctx, r.input, n)
	if err != nil {
		return fieldmode.MixedOrUnknown, err
	}
	r.modes[n] = mode
	return mode, nil
}

// Summary renders the result as a plain map for display or JSON encoding.
func (r *Result) Summary() map[string]any {
	return map[string]any{
		"filename":     r.Filename(),
		"filename_ext": r.FilenameExt(),
		"extension":    r.Extension(),
		"format":       r.Format(),
		"video":        r.StreamsByIndex(Video),
		"audio":        r.StreamsByIndex(Audio),
	}
}
