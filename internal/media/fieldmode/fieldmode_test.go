package fieldmode

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"mediasieve/internal/media/ffprobe"
)

func frames(pairs ...[2]int) []map[string]any {
	out := make([]map[string]any, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, map[string]any{
			"interlaced_frame": json.Number(itoa(p[0])),
			"top_field_first":  json.Number(itoa(p[1])),
		})
	}
	return out
}

func itoa(v int) string {
	if v == 1 {
		return "1"
	}
	return "0"
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		frames []map[string]any
		want   Mode
	}{
		{"all tff", frames([2]int{1, 1}, [2]int{1, 1}, [2]int{1, 1}), InterlacedTFF},
		{"all bff", frames([2]int{1, 0}, [2]int{1, 0}), InterlacedBFF},
		{"all progressive", frames([2]int{0, 0}, [2]int{0, 0}), Progressive},
		{"mixed", frames([2]int{1, 1}, [2]int{0, 0}), MixedOrUnknown},
		{"bff and progressive", frames([2]int{1, 0}, [2]int{0, 0}), MixedOrUnknown},
		{"empty sample", nil, MixedOrUnknown},
		// Non-interlaced frames flagged top-field-first count toward TFF.
		{"progressive flagged tff", frames([2]int{0, 1}, [2]int{0, 1}), InterlacedTFF},
		{"progressive flagged tff with interlaced tff", frames([2]int{0, 1}, [2]int{1, 1}), InterlacedTFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.frames); got != tt.want {
				t.Fatalf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestModeLabels(t *testing.T) {
	for mode, label := range map[Mode]string{
		MixedOrUnknown: "mixed_or_unknown",
		InterlacedTFF:  "interlaced_tff",
		InterlacedBFF:  "interlaced_bff",
		Progressive:    "progressive",
	} {
		if mode.String() != label {
			t.Fatalf("%d.String() = %q, want %q", int(mode), mode.String(), label)
		}
		parsed, err := ParseMode(label)
		if err != nil || parsed != mode {
			t.Fatalf("ParseMode(%q) = %v, %v", label, parsed, err)
		}
	}
	if parsed, err := ParseMode("2"); err != nil || parsed != InterlacedBFF {
		t.Fatalf("ParseMode(2) = %v, %v", parsed, err)
	}
	if _, err := ParseMode("telecine"); err == nil {
		t.Fatal("expected error for unknown label")
	}
}

type fakeFrameProber struct {
	calls  int
	args   [][3]string
	result ffprobe.Result
	err    error
}

func (f *fakeFrameProber) Frames(_ context.Context, path, selectStreams, readIntervals string) (ffprobe.Result, error) {
	f.calls++
	f.args = append(f.args, [3]string{path, selectStreams, readIntervals})
	return f.result, f.err
}

func TestSolverCachesPerInputAndStream(t *testing.T) {
	prober := &fakeFrameProber{result: ffprobe.Result{"frames": []any{
		map[string]any{"interlaced_frame": json.Number("1"), "top_field_first": json.Number("0")},
	}}}
	solver := NewSolver(prober, "", 0, nil)
	ctx := context.Background()

	mode, err := solver.Solve(ctx, "in.ts", 0)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if mode != InterlacedBFF {
		t.Fatalf("mode = %s", mode)
	}
	if prober.args[0] != [3]string{"in.ts", "v:0", DefaultReadIntervals} {
		t.Fatalf("unexpected probe args %v", prober.args[0])
	}

	if _, err := solver.Solve(ctx, "in.ts", 0); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if prober.calls != 1 {
		t.Fatalf("expected cached decision, calls = %d", prober.calls)
	}

	if _, err := solver.Solve(ctx, "in.ts", 1); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if prober.calls != 2 || prober.args[1][1] != "v:1" {
		t.Fatalf("expected a second probe for stream 1, got %v", prober.args)
	}
	if stats := solver.CacheStats(); stats.Hits != 1 || stats.Misses != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSolverCustomReadIntervals(t *testing.T) {
	prober := &fakeFrameProber{result: ffprobe.Result{}}
	solver := NewSolver(prober, "%+#25", 4, nil)

	mode, err := solver.Solve(context.Background(), "in.ts", 2)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if mode != MixedOrUnknown {
		t.Fatalf("empty sample should be mixed, got %s", mode)
	}
	if prober.args[0][2] != "%+#25" {
		t.Fatalf("read intervals = %q", prober.args[0][2])
	}
}

func TestSolverPropagatesProbeErrors(t *testing.T) {
	prober := &fakeFrameProber{err: ffprobe.ErrTimeout}
	solver := NewSolver(prober, "", 0, nil)

	if _, err := solver.Solve(context.Background(), "in.ts", 0); !errors.Is(err, ffprobe.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if _, err := solver.Solve(context.Background(), "in.ts", 0); err == nil {
		t.Fatal("errors must not be cached")
	}
	if prober.calls != 2 {
		t.Fatalf("calls = %d", prober.calls)
	}
}

func TestSolverRejectsNegativeStream(t *testing.T) {
	prober := &fakeFrameProber{}
	solver := NewSolver(prober, "", 0, nil)
	if _, err := solver.Solve(context.Background(), "in.ts", -1); err == nil {
		t.Fatal("expected error")
	}
	if prober.calls != 0 {
		t.Fatal("prober should not run")
	}
}
